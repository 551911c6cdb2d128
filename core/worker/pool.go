package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"InterviewConv/cache"
	"InterviewConv/core/converter"
	"InterviewConv/logger"
	"InterviewConv/model"
)

// JobSource hands out queued conversions.
type JobSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*cache.ConversionJob, error)
}

// Locker serializes conversions of the same recording across workers.
type Locker interface {
	Acquire(ctx context.Context, recordingID int64, owner string) (func(), error)
}

// Converter runs one conversion.
type Converter interface {
	StartConversion(ctx context.Context, id int64, params *converter.ReconversionParams) *converter.Outcome
}

// LogStore persists the run log of a recording.
type LogStore interface {
	Replace(ctx context.Context, recordingID int64, results []model.ProcessResult) error
}

// Pool 转换工作池：每个 worker 串行执行一个录制的全部步骤
type Pool struct {
	source      JobSource
	lock        Locker
	conv        Converter
	logs        LogStore
	workerCount int
	pollTimeout time.Duration
	owner       string

	// requeue is set when the source can also take jobs back; locked
	// reconversions are pushed back instead of dropped.
	requeue      Enqueuer
	requeueDelay time.Duration
	maxRequeue   int

	// OnOutcome, if set, is called after every finished job.
	OnOutcome func(job cache.ConversionJob, out *converter.Outcome)
}

// NewPool 创建工作池；workers <= 0 时按 CPU 数量决定
func NewPool(source JobSource, lock Locker, conv Converter, logs LogStore, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers > 4 {
			workers = 4 // ffmpeg is already multi-threaded
		}
	}
	host, _ := os.Hostname()
	p := &Pool{
		source:      source,
		lock:        lock,
		conv:        conv,
		logs:        logs,
		workerCount: workers,
		pollTimeout: 5 * time.Second,
		owner:       fmt.Sprintf("%s:%d", host, os.Getpid()),
	}
	if q, ok := source.(Enqueuer); ok {
		p.requeue = q
		p.requeueDelay = 5 * time.Second
		p.maxRequeue = 120
	}
	return p
}

// Run blocks until ctx is cancelled and all workers have returned.
func (p *Pool) Run(ctx context.Context) {
	logger.Info("启动转换工作池", logger.Int("workerCount", p.workerCount))

	var wg sync.WaitGroup
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	logger.Info("转换工作池已停止")
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	for ctx.Err() == nil {
		job, err := p.source.Dequeue(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("dequeue failed", logger.Int("workerId", workerID), logger.ErrorField(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}
		p.handle(ctx, workerID, *job)
	}
}

func (p *Pool) handle(ctx context.Context, workerID int, job cache.ConversionJob) {
	owner := fmt.Sprintf("%s/%d", p.owner, workerID)
	release, err := p.lock.Acquire(ctx, job.RecordingID, owner)
	if err != nil {
		switch {
		case errors.Is(err, cache.ErrLocked) && p.shouldRequeue(job):
			p.requeueLater(ctx, job)
		case errors.Is(err, cache.ErrLocked):
			// a normal conversion is covered by the run holding the lock
			logger.Warn("recording already converting elsewhere, dropping job",
				logger.Int64("recordingId", job.RecordingID),
				logger.Bool("reconvert", job.Reconvert),
				logger.Int("attempts", job.Attempts))
		default:
			logger.Error("failed to acquire conversion lock",
				logger.Int64("recordingId", job.RecordingID), logger.ErrorField(err))
		}
		return
	}
	defer release()

	start := time.Now()
	out := p.conv.StartConversion(ctx, job.RecordingID, ParamsOf(job))

	if out.Kind != converter.OutcomeUnattributable {
		if err := p.logs.Replace(ctx, job.RecordingID, out.Log.Items()); err != nil {
			logger.Error("failed to save conversion log",
				logger.Int64("recordingId", job.RecordingID), logger.ErrorField(err))
		}
	}
	logger.Info("conversion job finished",
		logger.Int("workerId", workerID),
		logger.Int64("recordingId", job.RecordingID),
		logger.String("outcome", out.Kind.String()),
		logger.Duration("elapsed", time.Since(start)))
	if p.OnOutcome != nil {
		p.OnOutcome(job, out)
	}
}

// shouldRequeue: only reconversions carry gains the running conversion
// does not know about.
func (p *Pool) shouldRequeue(job cache.ConversionJob) bool {
	return job.Reconvert && p.requeue != nil && job.Attempts < p.maxRequeue
}

func (p *Pool) requeueLater(ctx context.Context, job cache.ConversionJob) {
	if p.requeueDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.requeueDelay):
		}
	}
	job.Attempts++
	if err := p.requeue.Enqueue(ctx, job); err != nil {
		logger.Error("failed to requeue locked reconversion",
			logger.Int64("recordingId", job.RecordingID), logger.ErrorField(err))
		return
	}
	logger.Info("recording locked, reconversion requeued",
		logger.Int64("recordingId", job.RecordingID),
		logger.Int("attempts", job.Attempts))
}

// ParamsOf returns nil for a normal conversion.
func ParamsOf(job cache.ConversionJob) *converter.ReconversionParams {
	if !job.Reconvert {
		return nil
	}
	return &converter.ReconversionParams{LeftSideLoud: job.LeftGain, RightSideLoud: job.RightGain}
}
