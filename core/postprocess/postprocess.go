package postprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"InterviewConv/core/process"
	"InterviewConv/logger"
	"InterviewConv/model"
)

// Uploader stores a finished artifact somewhere durable.
type Uploader interface {
	UploadFile(ctx context.Context, objectName, filePath, contentType string) error
}

// FFmpegPostProcessor probes, thumbnails and optionally uploads the final MP4,
// then removes the run's transient files.
type FFmpegPostProcessor struct {
	exec        process.Executor
	ffmpegPath  string
	ffprobePath string
	uploader    Uploader // nil = keep local only
}

// New creates a new FFmpegPostProcessor.
func New(exec process.Executor, ffmpegPath, ffprobePath string, uploader Uploader) *FFmpegPostProcessor {
	return &FFmpegPostProcessor{
		exec:        exec,
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		uploader:    uploader,
	}
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Process fills in Duration. A failed probe or thumbnail is logged and
// tolerated; a failed upload fails the run.
func (p *FFmpegPostProcessor) Process(ctx context.Context, rec model.Recording, mp4 string, log *model.ProcessResultList, transient []string) (model.Recording, error) {
	if dur, err := p.probeDuration(ctx, mp4, log); err != nil {
		logger.Warn("could not get recording duration",
			logger.Int64("recordingId", rec.ID), logger.ErrorField(err))
	} else {
		rec.Duration = FormatDuration(dur)
	}

	thumb := strings.TrimSuffix(mp4, filepath.Ext(mp4)) + ".jpg"
	thumbRes := p.exec.Execute(ctx, "generate thumbnail", []string{p.ffmpegPath, "-y",
		"-ss", "1",
		"-i", mp4,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", rec.Width, rec.Height),
		thumb}, true)
	log.Add(thumbRes)
	if !thumbRes.IsOK() {
		thumb = ""
	}

	if p.uploader != nil {
		prefix := path.Join("recordings", rec.Hash)
		if err := p.uploader.UploadFile(ctx, path.Join(prefix, filepath.Base(mp4)), mp4, "video/mp4"); err != nil {
			return rec, fmt.Errorf("failed to upload recording: %w", err)
		}
		if thumb != "" {
			if err := p.uploader.UploadFile(ctx, path.Join(prefix, filepath.Base(thumb)), thumb, "image/jpeg"); err != nil {
				logger.Warn("thumbnail upload failed",
					logger.Int64("recordingId", rec.ID), logger.ErrorField(err))
			}
		}
	}

	for _, f := range transient {
		if f == "" || f == mp4 {
			continue
		}
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove transient file", logger.String("path", f), logger.ErrorField(err))
		}
	}
	return rec, nil
}

// probeDuration uses ffprobe to get the duration of the output.
func (p *FFmpegPostProcessor) probeDuration(ctx context.Context, file string, log *model.ProcessResultList) (time.Duration, error) {
	res := p.exec.Execute(ctx, "probe duration", []string{p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		file}, false)
	// stdout is JSON noise in the run log
	logged := res
	logged.Out = ""
	log.Add(logged)
	if !res.IsOK() {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %s", file, res.Error)
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal([]byte(res.Out), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", file, err)
	}
	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s", file)
	}
	secs, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}
	return time.Duration(secs * float64(time.Second)).Round(time.Millisecond), nil
}

// FormatDuration renders HH:MM:SS.mmm.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms%1000)
}
