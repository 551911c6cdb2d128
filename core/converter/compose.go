package converter

import (
	"context"
	"fmt"
	"os"

	"InterviewConv/core/process"
	"InterviewConv/model"
)

// Composition is the muxed side-by-side output.
type Composition struct {
	Path     string
	Width    int
	Height   int
	Shortest bool
}

// Composer overlays both pods into one frame and muxes the merged audio.
type Composer struct {
	exec process.Executor
	opts Options
}

// NewComposer creates a new Composer.
func NewComposer(exec process.Executor, opts Options) *Composer {
	return &Composer{exec: exec, opts: opts.withDefaults()}
}

// Compose runs a single ffmpeg invocation. An unresolved slot is filled with
// the looped default image, which has no end, so the output is then cut to
// the shortest input.
func (c *Composer) Compose(ctx context.Context, rc RunContext, pods Pods, wav string) (Composition, []model.ProcessResult, error) {
	args, shortest := c.args(pods, wav)
	out := c.opts.Layout.RecordingFile(rc.Recording.Hash, recordingExtension)
	if err := os.MkdirAll(c.opts.Layout.RecordingsDir, 0755); err != nil {
		return Composition{}, nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}

	full := make([]string, 0, len(args)+len(encodeArgs)+3)
	full = append(full, c.opts.FFmpegPath, "-y")
	full = append(full, args...)
	full = append(full, encodeArgs...)
	full = append(full, out)

	res := c.exec.Execute(ctx, "generate MP4", full, false)
	comp := Composition{
		Path:     out,
		Width:    2 * c.opts.PodWidth,
		Height:   c.opts.PodHeight,
		Shortest: shortest,
	}
	return comp, []model.ProcessResult{res}, toolError(res)
}

// encodeArgs 最终 MP4 的编码参数
var encodeArgs = []string{
	"-c:v", "h264",
	"-crf", "24",
	"-pix_fmt", "yuv420p",
	"-preset", "medium",
	"-profile:v", "baseline",
	"-c:a", "aac",
	"-ar", "22050",
	"-b:a", "32k",
}

// args builds inputs, filter graph and mapping, without the binary, the
// encoder settings and the output path.
func (c *Composer) args(pods Pods, wav string) ([]string, bool) {
	var (
		args     []string
		shortest bool
	)
	for _, slot := range []model.PodSlot{model.PodLeft, model.PodRight} {
		if pod := pods.Get(slot); pod != nil {
			args = append(args, "-i", pod.Path)
			continue
		}
		shortest = true
		args = append(args, "-loop", "1", "-i", c.opts.Layout.DefaultImage())
	}
	args = append(args, "-i", wav)

	w, h := c.opts.PodWidth, c.opts.PodHeight
	overlay := "overlay=main_w/2:0"
	if shortest {
		overlay += ":shortest=1"
	}
	args = append(args, "-filter_complex",
		fmt.Sprintf("[0:v]scale=%[1]d:%[2]d,pad=2*%[1]d:%[2]d[left];[1:v]scale=%[1]d:%[2]d[right];[left][right]%[3]s[v]", w, h, overlay))
	if shortest {
		args = append(args, "-shortest")
	}
	// composite video plus the merged audio
	return append(args,
		"-map", "[v]",
		"-map", "2:a",
		"-qmax", "1",
		"-qmin", "1"), shortest
}
