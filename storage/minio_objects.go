package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
)

// recordingsPrefix is where the post-processor uploads finished recordings.
const recordingsPrefix = "recordings/"

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// RecordingPrefix is the object prefix holding one recording's artifacts.
func RecordingPrefix(hash string) string {
	if hash == "" {
		return recordingsPrefix
	}
	return path.Join(recordingsPrefix, hash) + "/"
}

// ListRecordings 列出已上传的录制文件；hash 为空时列出全部
func (m *MinioStore) ListRecordings(ctx context.Context, hash string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    RecordingPrefix(hash),
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		stats.add(object.Size, object.LastModified)
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, stats, nil
}

// DeleteRecording removes every uploaded artifact of a recording.
func (m *MinioStore) DeleteRecording(ctx context.Context, hash string) (int, error) {
	if hash == "" {
		return 0, fmt.Errorf("empty recording hash")
	}
	objects, _, err := m.ListRecordings(ctx, hash)
	if err != nil {
		return 0, err
	}
	for i, obj := range objects {
		if err := m.client.RemoveObject(ctx, m.bucketName, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return i, fmt.Errorf("删除对象 %s 失败: %w", obj.Key, err)
		}
	}
	return len(objects), nil
}

func (s *BucketStats) add(size int64, modified time.Time) {
	s.TotalObjects++
	s.TotalSize += size
	if modified.After(s.LastModified) {
		s.LastModified = modified
	}
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
