package storage

import (
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestRecordingPrefix(t *testing.T) {
	if got := RecordingPrefix("abc"); got != "recordings/abc/" {
		t.Errorf("RecordingPrefix(abc) = %q", got)
	}
	if got := RecordingPrefix(""); got != "recordings/" {
		t.Errorf("RecordingPrefix(\"\") = %q", got)
	}
}

func TestBucketStatsAdd(t *testing.T) {
	var s BucketStats
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	s.add(10, t2)
	s.add(5, t1)
	if s.TotalObjects != 2 || s.TotalSize != 15 || !s.LastModified.Equal(t2) {
		t.Errorf("stats = %+v", s)
	}
}
