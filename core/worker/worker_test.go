package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"InterviewConv/cache"
	"InterviewConv/core/converter"
	"InterviewConv/model"
)

type chanSource struct {
	jobs chan cache.ConversionJob
}

func (s *chanSource) Dequeue(ctx context.Context, timeout time.Duration) (*cache.ConversionJob, error) {
	select {
	case job := <-s.jobs:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

type memLock struct {
	mu   sync.Mutex
	held map[int64]bool
}

func (l *memLock) Acquire(_ context.Context, id int64, _ string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[id] {
		return nil, cache.ErrLocked
	}
	l.held[id] = true
	return func() {
		l.mu.Lock()
		delete(l.held, id)
		l.mu.Unlock()
	}, nil
}

type stubConverter struct {
	mu     sync.Mutex
	params map[int64]*converter.ReconversionParams
	kind   converter.OutcomeKind
}

func (c *stubConverter) StartConversion(_ context.Context, id int64, params *converter.ReconversionParams) *converter.Outcome {
	c.mu.Lock()
	c.params[id] = params
	c.mu.Unlock()
	log := &model.ProcessResultList{}
	log.Add(model.ProcessResult{Process: "generate MP4"})
	return &converter.Outcome{Kind: c.kind, RecordingID: id, Log: log}
}

type memLogs struct {
	mu    sync.Mutex
	saved map[int64]int
}

func (m *memLogs) Replace(_ context.Context, id int64, results []model.ProcessResult) error {
	m.mu.Lock()
	m.saved[id] = len(results)
	m.mu.Unlock()
	return nil
}

func TestPool_RunsJobsAndSavesLogs(t *testing.T) {
	src := &chanSource{jobs: make(chan cache.ConversionJob, 4)}
	conv := &stubConverter{params: map[int64]*converter.ReconversionParams{}}
	logs := &memLogs{saved: map[int64]int{}}
	pool := NewPool(src, &memLock{held: map[int64]bool{}}, conv, logs, 2)
	pool.pollTimeout = 10 * time.Millisecond

	done := make(chan int64, 4)
	pool.OnOutcome = func(job cache.ConversionJob, _ *converter.Outcome) { done <- job.RecordingID }

	src.jobs <- cache.ConversionJob{RecordingID: 1}
	src.jobs <- cache.ConversionJob{RecordingID: 2, Reconvert: true, LeftGain: 2, RightGain: 0.5}

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(finished)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("jobs did not complete")
		}
	}
	cancel()
	<-finished

	if conv.params[1] != nil {
		t.Errorf("normal job got params %+v", conv.params[1])
	}
	if p := conv.params[2]; p == nil || p.LeftSideLoud != 2 || p.RightSideLoud != 0.5 {
		t.Errorf("reconvert params = %+v", p)
	}
	if logs.saved[1] != 1 || logs.saved[2] != 1 {
		t.Errorf("saved logs = %v", logs.saved)
	}
}

func TestPool_SkipsLockedRecording(t *testing.T) {
	lock := &memLock{held: map[int64]bool{7: true}}
	conv := &stubConverter{params: map[int64]*converter.ReconversionParams{}}
	pool := NewPool(&chanSource{}, lock, conv, &memLogs{saved: map[int64]int{}}, 1)

	pool.handle(context.Background(), 0, cache.ConversionJob{RecordingID: 7})
	if _, ran := conv.params[7]; ran {
		t.Error("conversion ran while the recording was locked")
	}
}

// queueSource dequeues from jobs and records what is pushed back.
type queueSource struct {
	*chanSource
	*memQueue
}

func TestPool_LockedReconversionRequeued(t *testing.T) {
	lock := &memLock{held: map[int64]bool{7: true}}
	conv := &stubConverter{params: map[int64]*converter.ReconversionParams{}}
	q := &memQueue{}
	pool := NewPool(queueSource{&chanSource{}, q}, lock, conv, &memLogs{saved: map[int64]int{}}, 1)
	pool.requeueDelay = 0

	pool.handle(context.Background(), 0, cache.ConversionJob{RecordingID: 7, Reconvert: true, LeftGain: 2, RightGain: 1})
	pool.handle(context.Background(), 0, cache.ConversionJob{RecordingID: 7})

	if _, ran := conv.params[7]; ran {
		t.Error("conversion ran while the recording was locked")
	}
	if len(q.jobs) != 1 {
		t.Fatalf("requeued = %+v, want only the reconversion", q.jobs)
	}
	if job := q.jobs[0]; !job.Reconvert || job.LeftGain != 2 || job.Attempts != 1 {
		t.Errorf("requeued job = %+v", job)
	}
}

func TestPool_RequeueStopsAtLimit(t *testing.T) {
	lock := &memLock{held: map[int64]bool{7: true}}
	q := &memQueue{}
	pool := NewPool(queueSource{&chanSource{}, q}, lock, &stubConverter{params: map[int64]*converter.ReconversionParams{}}, &memLogs{saved: map[int64]int{}}, 1)
	pool.requeueDelay = 0

	pool.handle(context.Background(), 0, cache.ConversionJob{RecordingID: 7, Reconvert: true, Attempts: pool.maxRequeue})
	if len(q.jobs) != 0 {
		t.Errorf("requeued past the limit: %+v", q.jobs)
	}
}

func TestPool_UnattributableLogNotSaved(t *testing.T) {
	conv := &stubConverter{params: map[int64]*converter.ReconversionParams{}, kind: converter.OutcomeUnattributable}
	logs := &memLogs{saved: map[int64]int{}}
	pool := NewPool(&chanSource{}, &memLock{held: map[int64]bool{}}, conv, logs, 1)

	pool.handle(context.Background(), 0, cache.ConversionJob{RecordingID: 9})
	if _, ok := logs.saved[9]; ok {
		t.Error("log saved for a recording that could not be loaded")
	}
}

func TestParseMarker(t *testing.T) {
	cases := []struct {
		name string
		id   int64
		ok   bool
	}{
		{"recording_42.done", 42, true},
		{"/spool/recording_7.done", 7, true},
		{"recording_42.done.tmp", 0, false},
		{"recording_x.done", 0, false},
		{"notes.txt", 0, false},
	}
	for _, c := range cases {
		id, ok := ParseMarker(c.name)
		if id != c.id || ok != c.ok {
			t.Errorf("ParseMarker(%q) = (%d, %v), want (%d, %v)", c.name, id, ok, c.id, c.ok)
		}
	}
}

type memQueue struct {
	mu   sync.Mutex
	jobs []cache.ConversionJob
	err  error
}

func (q *memQueue) Enqueue(_ context.Context, job cache.ConversionJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestSpoolWatcher_HandleEnqueuesAndRemoves(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "recording_12.done")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	q := &memQueue{}
	w := NewSpoolWatcher(dir, q)

	w.handle(context.Background(), marker)
	w.handle(context.Background(), marker) // second event for the same file

	if len(q.jobs) != 1 || q.jobs[0].RecordingID != 12 || q.jobs[0].Reconvert {
		t.Errorf("jobs = %+v", q.jobs)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("marker not removed")
	}
}

func TestSpoolWatcher_KeepsMarkerOnEnqueueFailure(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "recording_3.done")
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewSpoolWatcher(dir, &memQueue{err: errors.New("redis down")})
	w.handle(context.Background(), marker)
	if _, err := os.Stat(marker); err != nil {
		t.Error("marker removed although enqueue failed")
	}
}

func TestSpoolWatcher_RunPicksUpExistingMarkers(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "recording_5.done"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	q := &memQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- NewSpoolWatcher(dir, q).Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		q.mu.Lock()
		n := len(q.jobs)
		q.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("existing marker not picked up")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run: %v", err)
	}
}
