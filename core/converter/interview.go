package converter

import (
	"context"
	"errors"
	"fmt"
	"os"

	"InterviewConv/core/process"
	"InterviewConv/logger"
	"InterviewConv/model"
	"InterviewConv/repository"

	"github.com/google/uuid"
)

// PostProcessor finishes a composed recording (duration, thumbnail, upload,
// cleanup). It returns the recording with whatever fields it filled in.
type PostProcessor interface {
	Process(ctx context.Context, rec model.Recording, mp4 string, log *model.ProcessResultList, transient []string) (model.Recording, error)
}

// OutcomeKind 一次转换的结局
type OutcomeKind int

const (
	// OutcomeProcessed: output produced, status PROCESSED persisted.
	OutcomeProcessed OutcomeKind = iota
	// OutcomeFailed: status ERROR persisted.
	OutcomeFailed
	// OutcomeIndeterminate: no usable pod; the run stopped and the status
	// was left at CONVERTING. Callers decide whether to retry or flag it.
	OutcomeIndeterminate
	// OutcomeUnattributable: the recording could not be loaded, nothing
	// was persisted.
	OutcomeUnattributable
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProcessed:
		return "processed"
	case OutcomeFailed:
		return "failed"
	case OutcomeIndeterminate:
		return "indeterminate"
	case OutcomeUnattributable:
		return "unattributable"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome is what StartConversion reports back.
type Outcome struct {
	Kind        OutcomeKind
	RecordingID int64
	Recording   model.Recording // last state known to the converter
	OutputPath  string
	Log         *model.ProcessResultList
	Err         error
}

// InterviewConverter turns an interview recording into one side-by-side MP4.
type InterviewConverter struct {
	recordings repository.RecordingRepository
	audio      *AudioMerger
	pods       *PodResolver
	composer   *Composer
	post       PostProcessor
	opts       Options
}

// NewInterviewConverter wires the three stages on one executor.
func NewInterviewConverter(recordings repository.RecordingRepository, exec process.Executor, post PostProcessor, opts Options) *InterviewConverter {
	opts = opts.withDefaults()
	return &InterviewConverter{
		recordings: recordings,
		audio:      NewAudioMerger(exec, opts),
		pods:       NewPodResolver(exec, opts),
		composer:   NewComposer(exec, opts),
		post:       post,
		opts:       opts,
	}
}

// StartConversion converts one recording synchronously. params nil is a
// normal conversion with unity gains; non-nil is a reconversion.
//
// Nothing guards against two runs of the same recording at once; callers
// serialize that themselves.
func (c *InterviewConverter) StartConversion(ctx context.Context, id int64, params *ReconversionParams) (out *Outcome) {
	out = &Outcome{RecordingID: id, Log: &model.ProcessResultList{}}

	rec, err := c.recordings.GetByID(ctx, id)
	if err == nil && rec == nil {
		err = fmt.Errorf("recording %d not found", id)
	}
	if err != nil {
		logger.Error("[startConversion] unable to load recording",
			logger.Int64("recordingId", id), logger.ErrorField(err))
		out.Kind = OutcomeUnattributable
		out.Err = err
		return out
	}
	logger.Debug("recording loaded", logger.Int64("recordingId", rec.ID))

	if rec.Hash == "" {
		rec.Hash = uuid.NewString()
	}
	rec.Status = model.RecordingStatusConverting
	if err := c.recordings.Update(ctx, rec); err != nil {
		c.fail(ctx, out, *rec, fmt.Errorf("failed to mark recording converting: %w", err))
		return out
	}
	out.Recording = *rec

	defer func() {
		if p := recover(); p != nil {
			c.fail(ctx, out, out.Recording, fmt.Errorf("panic during conversion: %v", p))
		}
	}()

	metas, err := c.recordings.GetMetaData(ctx, rec.ID)
	if err != nil {
		c.fail(ctx, out, *rec, fmt.Errorf("failed to load stream metadata: %w", err))
		return out
	}

	rc := RunContext{
		Recording: *rec,
		MetaData:  metas,
		Gains:     UnityGain,
		WorkDir:   c.opts.Layout.RoomDir(rec.RoomID),
	}
	if params != nil {
		rc.Gains = *params
		rc.Reconvert = true
	}

	final, path, err := c.run(ctx, rc, out.Log)
	switch {
	case errors.Is(err, ErrNoValidPods):
		// status stays CONVERTING; see OutcomeIndeterminate
		logger.Warn("No valid pods found, recording left in converting state",
			logger.Int64("recordingId", rec.ID))
		out.Kind = OutcomeIndeterminate
		out.Err = err
		return out
	case err != nil:
		c.fail(ctx, out, final, err)
		return out
	}

	final.Status = model.RecordingStatusProcessed
	out.Recording = final
	out.OutputPath = path
	if err := c.recordings.Update(ctx, &final); err != nil {
		c.fail(ctx, out, final, fmt.Errorf("failed to mark recording processed: %w", err))
		return out
	}
	out.Kind = OutcomeProcessed
	logger.Info("Interview recording converted",
		logger.Int64("recordingId", final.ID),
		logger.String("output", path),
		logger.Int("width", final.Width),
		logger.Int("height", final.Height))
	return out
}

// run executes the stages in order and returns the recording as it should be
// committed, plus the output path.
func (c *InterviewConverter) run(ctx context.Context, rc RunContext, log *model.ProcessResultList) (model.Recording, string, error) {
	rec := rc.Recording
	if err := os.MkdirAll(rc.WorkDir, 0755); err != nil {
		return rec, "", fmt.Errorf("failed to create work directory: %w", err)
	}

	audio, results, err := c.audio.Merge(ctx, rc)
	addAll(log, results)
	if err != nil {
		return rec, "", fmt.Errorf("audio merge: %w", err)
	}
	var transient []string
	if audio.Generated {
		transient = append(transient, audio.Path)
	}

	image := c.opts.Layout.DefaultImage()
	if _, err := os.Stat(image); err != nil {
		return rec, "", fmt.Errorf("%w: default interview image %s", ErrMissingAsset, image)
	}

	pods, results, err := c.pods.Resolve(ctx, rc)
	addAll(log, results)
	if err != nil {
		return rec, "", fmt.Errorf("pod resolution: %w", err)
	}
	if !pods.Any() {
		log.Add(model.ProcessResult{
			Process:  NoValidPodsProcess,
			Error:    "No valid pods found",
			ExitCode: -1,
		})
		return rec, "", ErrNoValidPods
	}
	for _, pod := range []*ResolvedPod{pods.Left, pods.Right} {
		if pod != nil && pod.Shifted() {
			transient = append(transient, pod.Filler, pod.Path)
		}
	}

	comp, results, err := c.composer.Compose(ctx, rc, pods, audio.Path)
	addAll(log, results)
	if err != nil {
		return rec, "", fmt.Errorf("composition: %w", err)
	}
	rec.Width = comp.Width
	rec.Height = comp.Height

	if c.post != nil {
		rec, err = c.post.Process(ctx, rec, comp.Path, log, transient)
		if err != nil {
			return rec, "", fmt.Errorf("post processing: %w", err)
		}
	}
	return rec, comp.Path, nil
}

// fail persists ERROR on rec and records the failure in out.
func (c *InterviewConverter) fail(ctx context.Context, out *Outcome, rec model.Recording, err error) {
	logger.Error("[startConversion]",
		logger.Int64("recordingId", rec.ID), logger.ErrorField(err))
	rec.Status = model.RecordingStatusError
	out.Kind = OutcomeFailed
	out.Recording = rec
	out.Err = err
	if uerr := c.recordings.Update(ctx, &rec); uerr != nil {
		logger.Error("failed to persist error status",
			logger.Int64("recordingId", rec.ID), logger.ErrorField(uerr))
		out.Err = errors.Join(err, uerr)
	}
}

func addAll(log *model.ProcessResultList, results []model.ProcessResult) {
	for _, r := range results {
		log.Add(r)
	}
}
