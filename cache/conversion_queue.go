package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"InterviewConv/logger"

	"github.com/go-redis/redis/v8"
)

const (
	conversionQueueKey = "rec:convert:queue"
	conversionLockKey  = "rec:convert:lock:"
)

// ErrLocked means another worker holds the recording.
var ErrLocked = errors.New("recording is already being converted")

// ConversionJob 转换任务
type ConversionJob struct {
	RecordingID int64     `json:"recordingId"`
	Reconvert   bool      `json:"reconvert"`
	LeftGain    float64   `json:"leftGain,omitempty"`
	RightGain   float64   `json:"rightGain,omitempty"`
	Attempts    int       `json:"attempts,omitempty"` // times pushed back while locked
	EnqueuedAt  time.Time `json:"enqueuedAt"`
}

// ConversionQueue is a FIFO of conversion jobs in a Redis list.
type ConversionQueue struct {
	client *redis.Client
}

// NewConversionQueue 创建转换队列
func NewConversionQueue(client *redis.Client) *ConversionQueue {
	return &ConversionQueue{client: client}
}

// Enqueue 推入任务
func (q *ConversionQueue) Enqueue(ctx context.Context, job ConversionJob) error {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.client.LPush(ctx, conversionQueueKey, data).Err()
}

// Dequeue blocks up to timeout for the next job. It returns nil, nil when
// the timeout elapsed with nothing queued.
func (q *ConversionQueue) Dequeue(ctx context.Context, timeout time.Duration) (*ConversionJob, error) {
	res, err := q.client.BRPop(ctx, timeout, conversionQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	// BRPOP replies [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}
	var job ConversionJob
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Len 队列长度
func (q *ConversionQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, conversionQueueKey).Result()
}

// ConversionLock keeps two workers off the same recording.
type ConversionLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewConversionLock ttl should exceed the longest expected conversion.
func NewConversionLock(client *redis.Client, ttl time.Duration) *ConversionLock {
	return &ConversionLock{client: client, ttl: ttl}
}

// Acquire returns a release func, or ErrLocked.
func (l *ConversionLock) Acquire(ctx context.Context, recordingID int64, owner string) (func(), error) {
	key := conversionLockKey + strconv.FormatInt(recordingID, 10)
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// only delete our own lock
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseLock(ctx, l.client, key, owner); err != nil {
			logger.Warn("failed to release conversion lock, held until TTL",
				logger.Int64("recordingId", recordingID),
				logger.Duration("ttl", l.ttl),
				logger.ErrorField(err))
		}
	}, nil
}

// releaseLock deletes key only while it still holds owner.
func releaseLock(ctx context.Context, client *redis.Client, key, owner string) error {
	return releaseScript.Run(ctx, client, []string{key}, owner).Err()
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
