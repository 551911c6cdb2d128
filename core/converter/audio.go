package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"InterviewConv/core/process"
	"InterviewConv/logger"
	"InterviewConv/model"
)

// MergedAudio is the single audio track handed to composition.
type MergedAudio struct {
	Path string
	// Generated is false when an existing stream wave is passed through.
	Generated bool
}

// AudioMerger builds the interview's full-length audio track with sox.
type AudioMerger struct {
	exec process.Executor
	opts Options
}

// NewAudioMerger creates a new AudioMerger.
func NewAudioMerger(exec process.Executor, opts Options) *AudioMerger {
	return &AudioMerger{exec: exec, opts: opts.withDefaults()}
}

// mergedWavePath 合成后的完整音轨
func (a *AudioMerger) mergedWavePath(rc RunContext) string {
	return filepath.Join(rc.WorkDir, fmt.Sprintf("INTERVIEW_%d_FINAL_WAVE.wav", rc.Recording.ID))
}

// waveFiles returns the existing wave files of the run in metadata order.
func (a *AudioMerger) waveFiles(rc RunContext) []string {
	var files []string
	for _, meta := range rc.MetaData {
		if !meta.HasAudio() {
			continue
		}
		path := a.opts.Layout.AudioPath(rc.Recording.RoomID, meta.FullWavAudioData)
		if _, err := os.Stat(path); err != nil {
			logger.Warn("Wave file of stream is missing, skipping",
				logger.Int64("recordingId", rc.Recording.ID),
				logger.Int64("metaId", meta.ID),
				logger.String("path", path))
			continue
		}
		files = append(files, path)
	}
	return files
}

// Merge produces one audio track covering the whole recording.
//
// No waves: one second of silence padded to the recording length.
// One wave: used as is, nothing is invoked.
// Several: mixed by sox with a per-side volume.
func (a *AudioMerger) Merge(ctx context.Context, rc RunContext) (MergedAudio, []model.ProcessResult, error) {
	waves := a.waveFiles(rc)
	out := a.mergedWavePath(rc)

	switch len(waves) {
	case 0:
		silence := a.opts.Layout.OneSecondWave()
		if _, err := os.Stat(silence); err != nil {
			return MergedAudio{}, nil, fmt.Errorf("%w: %s", ErrMissingAsset, silence)
		}
		if err := removeIfExists(out); err != nil {
			return MergedAudio{}, nil, err
		}
		args := []string{a.opts.SoxPath, silence, out, "pad", "0", formatSeconds(rc.Recording.Length())}
		res := a.exec.Execute(ctx, "generateSampleAudio", args, false)
		return MergedAudio{Path: out, Generated: true}, []model.ProcessResult{res}, toolError(res)
	case 1:
		return MergedAudio{Path: waves[0]}, nil, nil
	}

	if err := removeIfExists(out); err != nil {
		return MergedAudio{}, nil, err
	}
	gains := UnityGain
	if rc.Reconvert {
		gains = rc.Gains
	}
	args := a.mixArgs(waves, out, rc.MetaData, gains)
	res := a.exec.Execute(ctx, "mergeAudioToWaves", args, false)
	return MergedAudio{Path: out, Generated: true}, []model.ProcessResult{res}, toolError(res)
}

// mixArgs builds `sox -m -v <gain> <in>... <out>`. The gain of an input is
// taken from the stream whose wave file name matches it.
func (a *AudioMerger) mixArgs(waves []string, out string, metas []model.RecordingMetaData, gains ReconversionParams) []string {
	args := make([]string, 0, 3*len(waves)+3)
	args = append(args, a.opts.SoxPath, "-m")
	for _, wav := range waves {
		gain := 1.0
		name := filepath.Base(wav)
		for _, meta := range metas {
			if filepath.Base(meta.FullWavAudioData) == name {
				gain = gains.gainFor(meta.Slot())
				break
			}
		}
		args = append(args, "-v", formatGain(gain), wav)
	}
	return append(args, out)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
