package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"InterviewConv/cache"
	"InterviewConv/core/converter"
	"InterviewConv/model"
)

type memRecordings struct {
	recs map[int64]*model.Recording
}

func (m *memRecordings) GetByID(_ context.Context, id int64) (*model.Recording, error) {
	return m.recs[id], nil
}

func (m *memRecordings) Update(_ context.Context, rec *model.Recording) error {
	m.recs[rec.ID] = rec
	return nil
}

func (m *memRecordings) GetMetaData(context.Context, int64) ([]model.RecordingMetaData, error) {
	return nil, nil
}

type memLogs struct{ logs []model.RecordingLog }

func (m *memLogs) Replace(context.Context, int64, []model.ProcessResult) error { return nil }

func (m *memLogs) ListByRecording(_ context.Context, id int64) ([]model.RecordingLog, error) {
	var out []model.RecordingLog
	for _, l := range m.logs {
		if l.RecordingID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

type memQueue struct{ jobs []cache.ConversionJob }

func (q *memQueue) Enqueue(_ context.Context, job cache.ConversionJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type fixedPresigner struct{}

func (fixedPresigner) PresignedURL(_ context.Context, object string, _ time.Duration) (string, error) {
	return "https://minio.local/" + object, nil
}

var runStart = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestRouter() (http.Handler, *memRecordings, *memQueue) {
	recs := &memRecordings{recs: map[int64]*model.Recording{
		1: {ID: 1, Status: model.RecordingStatusPending},
		2: {ID: 2, Status: model.RecordingStatusConverting, UpdatedAt: runStart},
		3: {ID: 3, Status: model.RecordingStatusProcessed, Hash: "abc"},
		// aborted without usable video
		4: {ID: 4, Status: model.RecordingStatusConverting, UpdatedAt: runStart},
		// running again after an earlier abort
		5: {ID: 5, Status: model.RecordingStatusConverting, UpdatedAt: runStart.Add(time.Hour)},
	}}
	q := &memQueue{}
	logs := &memLogs{logs: []model.RecordingLog{
		{RecordingID: 3, Process: "generate MP4"},
		{RecordingID: 4, Seq: 1, Process: "checkFlvPod_1", ExitCode: 1, CreatedAt: runStart.Add(time.Second)},
		{RecordingID: 4, Seq: 2, Process: converter.NoValidPodsProcess, ExitCode: -1, CreatedAt: runStart.Add(time.Second)},
		{RecordingID: 5, Seq: 1, Process: converter.NoValidPodsProcess, ExitCode: -1, CreatedAt: runStart.Add(time.Second)},
	}}
	return NewRouter(NewRecordingHandler(recs, logs, q, fixedPresigner{})), recs, q
}

func do(h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestConvertHandler(t *testing.T) {
	h, _, q := newTestRouter()

	if rr := do(h, http.MethodPost, "/api/recordings/1/convert", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if len(q.jobs) != 1 || q.jobs[0].RecordingID != 1 || q.jobs[0].Reconvert {
		t.Errorf("jobs = %+v", q.jobs)
	}
	if rr := do(h, http.MethodPost, "/api/recordings/2/convert", ""); rr.Code != http.StatusConflict {
		t.Errorf("converting recording: status = %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/api/recordings/99/convert", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing recording: status = %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/api/recordings/abc/convert", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", rr.Code)
	}
}

func TestReconvertHandler(t *testing.T) {
	h, _, q := newTestRouter()

	rr := do(h, http.MethodPost, "/api/recordings/3/reconvert", `{"leftGain":2}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	job := q.jobs[0]
	if !job.Reconvert || job.LeftGain != 2 || job.RightGain != 1 {
		t.Errorf("job = %+v", job)
	}
	if rr := do(h, http.MethodPost, "/api/recordings/3/reconvert", `{"rightGain":-1}`); rr.Code != http.StatusBadRequest {
		t.Errorf("negative gain: status = %d", rr.Code)
	}
	if rr := do(h, http.MethodPost, "/api/recordings/3/reconvert", `{not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d", rr.Code)
	}
}

func TestGetRecordingHandler_DownloadURL(t *testing.T) {
	h, _, _ := newTestRouter()
	rr := do(h, http.MethodGet, "/api/recordings/3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp RecordingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.DownloadURL != "https://minio.local/recordings/abc/abc.mp4" {
		t.Errorf("DownloadURL = %q", resp.DownloadURL)
	}
	if resp.Recording.Status != model.RecordingStatusProcessed {
		t.Errorf("status = %s", resp.Recording.Status)
	}

	rr = do(h, http.MethodGet, "/api/recordings/1", "")
	resp = RecordingResponse{}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.DownloadURL != "" {
		t.Errorf("unprocessed recording got a download url %q", resp.DownloadURL)
	}
}

func TestGetLogsHandler(t *testing.T) {
	h, _, _ := newTestRouter()
	rr := do(h, http.MethodGet, "/api/recordings/3/logs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var logs []model.RecordingLog
	if err := json.Unmarshal(rr.Body.Bytes(), &logs); err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Process != "generate MP4" {
		t.Errorf("logs = %+v", logs)
	}
}

func getRecording(t *testing.T, h http.Handler, id string) RecordingResponse {
	t.Helper()
	rr := do(h, http.MethodGet, "/api/recordings/"+id, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET %s: status = %d", id, rr.Code)
	}
	var resp RecordingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestGetRecordingHandler_StatusFlags(t *testing.T) {
	h, _, _ := newTestRouter()
	cases := []struct {
		id            string
		finished      bool
		indeterminate bool
	}{
		{"1", false, false},
		{"2", false, false},
		{"3", true, false},
		{"4", false, true},
		{"5", false, false},
	}
	for _, c := range cases {
		resp := getRecording(t, h, c.id)
		if resp.Finished != c.finished || resp.Indeterminate != c.indeterminate {
			t.Errorf("recording %s: finished=%v indeterminate=%v, want %v %v",
				c.id, resp.Finished, resp.Indeterminate, c.finished, c.indeterminate)
		}
	}
}

func TestConvertHandler_AbortedRecordingCanBeEnqueued(t *testing.T) {
	h, _, q := newTestRouter()

	if rr := do(h, http.MethodPost, "/api/recordings/4/convert", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("aborted recording: status = %d, body = %s", rr.Code, rr.Body)
	}
	if rr := do(h, http.MethodPost, "/api/recordings/4/reconvert", `{"leftGain":1.5}`); rr.Code != http.StatusAccepted {
		t.Fatalf("aborted recording reconvert: status = %d", rr.Code)
	}
	if len(q.jobs) != 2 {
		t.Errorf("jobs = %+v", q.jobs)
	}
	// stale abort log from before the current run does not unlock it
	if rr := do(h, http.MethodPost, "/api/recordings/5/convert", ""); rr.Code != http.StatusConflict {
		t.Errorf("running recording: status = %d", rr.Code)
	}
}
