package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"InterviewConv/core/process"
	"InterviewConv/logger"
	"InterviewConv/model"
)

// ResolvedPod is the video that fills one side of the composite.
type ResolvedPod struct {
	Slot   model.PodSlot
	MetaID int64
	Source string // recorded artifact
	Path   string // what composition reads; differs from Source when shifted
	Filler string // generated blank clip, empty when not shifted
	Skew   time.Duration
}

// Shifted reports whether filler was prepended to correct the skew.
func (p *ResolvedPod) Shifted() bool {
	return p.Path != p.Source
}

// Pods 左右两个画面位置
type Pods struct {
	Left  *ResolvedPod
	Right *ResolvedPod
}

// Get returns the pod of a slot, nil when unresolved.
func (p Pods) Get(slot model.PodSlot) *ResolvedPod {
	switch slot {
	case model.PodLeft:
		return p.Left
	case model.PodRight:
		return p.Right
	}
	return nil
}

func (p *Pods) set(pod *ResolvedPod) {
	switch pod.Slot {
	case model.PodLeft:
		p.Left = pod
	case model.PodRight:
		p.Right = pod
	}
}

// Any reports whether at least one slot is resolved.
func (p Pods) Any() bool {
	return p.Left != nil || p.Right != nil
}

// PodResolver checks every stream video and aligns it to the recording start.
type PodResolver struct {
	exec process.Executor
	opts Options
}

// NewPodResolver creates a new PodResolver.
func NewPodResolver(exec process.Executor, opts Options) *PodResolver {
	return &PodResolver{exec: exec, opts: opts.withDefaults()}
}

// Resolve walks the streams in order; a later stream of the same slot
// replaces an earlier one. A stream whose check fails is skipped. Failing to
// build filler or to concatenate is returned as an error.
func (r *PodResolver) Resolve(ctx context.Context, rc RunContext) (Pods, []model.ProcessResult, error) {
	var (
		pods    Pods
		results []model.ProcessResult
	)
	for _, meta := range rc.MetaData {
		slot, ok := meta.Slot()
		if !ok || !meta.HasVideo() {
			continue
		}
		path := r.opts.Layout.VideoPath(rc.Recording.RoomID, meta.StreamName)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		check := r.exec.Execute(ctx, fmt.Sprintf("checkFlvPod_%d", slot), r.checkArgs(path), true)
		results = append(results, check)
		if !check.IsOK() {
			logger.Warn("Pod video failed the check, leaving slot to other streams",
				logger.Int64("recordingId", rc.Recording.ID),
				logger.Int64("metaId", meta.ID),
				logger.String("slot", slot.String()))
			continue
		}

		pod := &ResolvedPod{Slot: slot, MetaID: meta.ID, Source: path, Path: path}
		// skew is measured in whole milliseconds
		pod.Skew = meta.RecordStart.Sub(rc.Recording.RecordStart).Truncate(time.Millisecond)
		if pod.Skew < 0 {
			logger.Warn("Stream starts before its recording, treating as aligned",
				logger.Int64("metaId", meta.ID),
				logger.Duration("skew", pod.Skew))
			pod.Skew = 0
		}
		if pod.Skew > 0 {
			shifted, res, err := r.shift(ctx, rc, meta, slot, path, pod.Skew)
			results = append(results, res...)
			if err != nil {
				return pods, results, err
			}
			pod.Path = shifted
			pod.Filler = r.blankPath(rc, meta, slot)
		}
		pods.set(pod)
	}
	return pods, results, nil
}

// checkArgs decodes the whole file to nowhere; only errors are reported.
func (r *PodResolver) checkArgs(path string) []string {
	return []string{r.opts.FFmpegPath, "-y",
		"-i", path,
		"-an", // only the video stream matters here
		"-v", "error",
		"-f", "null",
		"file.null"}
}

func (r *PodResolver) blankPath(rc RunContext, meta model.RecordingMetaData, slot model.PodSlot) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("%s_pod_%d_blank.%s", meta.StreamName, slot, videoExtension))
}

// shift prepends skew worth of the default image to the stream video.
func (r *PodResolver) shift(ctx context.Context, rc RunContext, meta model.RecordingMetaData, slot model.PodSlot, path string, skew time.Duration) (string, []model.ProcessResult, error) {
	w, h := r.opts.PodWidth, r.opts.PodHeight
	blank := r.blankPath(rc, meta, slot)
	blankArgs := []string{r.opts.FFmpegPath, "-y",
		"-loop", "1", "-i", r.opts.Layout.DefaultImage(),
		"-filter_complex", fmt.Sprintf("[0:0]scale=%d:%d", w, h),
		"-c:v", "libx264",
		"-t", formatSeconds(skew),
		"-pix_fmt", "yuv420p",
		blank}
	blankRes := r.exec.Execute(ctx, fmt.Sprintf("blankFlvPod_%d", slot), blankArgs, false)
	if err := toolError(blankRes); err != nil {
		return "", []model.ProcessResult{blankRes}, err
	}

	shifted := filepath.Join(rc.WorkDir, fmt.Sprintf("%s_pod_%d.%s", meta.StreamName, slot, videoExtension))
	concatArgs := []string{r.opts.FFmpegPath, "-y",
		"-i", blank,
		"-i", path,
		"-filter_complex", fmt.Sprintf("[0:0]setsar=1/1[sarfix];[1:0]scale=%d:%d,setsar=1/1[scale];[sarfix] [scale] concat=n=2:v=1:a=0 [v]", w, h),
		"-map", "[v]",
		shifted}
	concatRes := r.exec.Execute(ctx, fmt.Sprintf("shiftedFlvPod_%d", slot), concatArgs, false)
	return shifted, []model.ProcessResult{blankRes, concatRes}, toolError(concatRes)
}
