package converter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"InterviewConv/model"
)

const (
	defaultImageName   = "default_interview_image.png"
	oneSecondWaveName  = "one_second.wav"
	defaultPodWidth    = 320
	defaultPodHeight   = 260
	videoExtension     = "flv"
	recordingExtension = "mp4"
)

// Layout resolves where artifacts live on disk.
type Layout struct {
	StreamsDir    string // <StreamsDir>/<roomId>/ holds a room's streams and working files
	AssetsDir     string // shared assets
	RecordingsDir string // finished recordings
	// Explicit overrides for the shared assets; empty means AssetsDir/<default name>.
	DefaultImagePath   string
	DefaultSilencePath string
}

// RoomDir 某个房间的流目录，同时也是转换的工作目录
func (l Layout) RoomDir(roomID int64) string {
	return filepath.Join(l.StreamsDir, strconv.FormatInt(roomID, 10))
}

// VideoPath is the recorded video artifact of a stream.
func (l Layout) VideoPath(roomID int64, streamName string) string {
	return filepath.Join(l.RoomDir(roomID), streamName+"."+videoExtension)
}

// AudioPath is the extracted wave of a stream.
func (l Layout) AudioPath(roomID int64, wavName string) string {
	return filepath.Join(l.RoomDir(roomID), filepath.Base(wavName))
}

func (l Layout) DefaultImage() string {
	if l.DefaultImagePath != "" {
		return l.DefaultImagePath
	}
	return filepath.Join(l.AssetsDir, defaultImageName)
}

func (l Layout) OneSecondWave() string {
	if l.DefaultSilencePath != "" {
		return l.DefaultSilencePath
	}
	return filepath.Join(l.AssetsDir, oneSecondWaveName)
}

// RecordingFile is the final artifact named after the recording hash.
func (l Layout) RecordingFile(hash, ext string) string {
	return filepath.Join(l.RecordingsDir, fmt.Sprintf("%s.%s", hash, ext))
}

// Options 转换器所需的全部外部配置，由调用方显式注入
type Options struct {
	SoxPath    string
	FFmpegPath string
	PodWidth   int
	PodHeight  int
	Layout     Layout
}

func (o Options) withDefaults() Options {
	if o.SoxPath == "" {
		o.SoxPath = "sox"
	}
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.PodWidth <= 0 {
		o.PodWidth = defaultPodWidth
	}
	if o.PodHeight <= 0 {
		o.PodHeight = defaultPodHeight
	}
	return o
}

// ReconversionParams 重新转换时左右两侧的音量
type ReconversionParams struct {
	LeftSideLoud  float64 `json:"leftGain"`
	RightSideLoud float64 `json:"rightGain"`
}

// UnityGain is what a normal conversion always uses.
var UnityGain = ReconversionParams{LeftSideLoud: 1, RightSideLoud: 1}

// gainFor returns the mixer volume for a pod slot; streams without a valid
// slot stay at unity.
func (p ReconversionParams) gainFor(slot model.PodSlot, ok bool) float64 {
	if !ok {
		return 1
	}
	switch slot {
	case model.PodLeft:
		return p.LeftSideLoud
	case model.PodRight:
		return p.RightSideLoud
	}
	return 1
}

// RunContext is the read-only input of one conversion run, handed by value to
// every stage. Only the InterviewConverter writes to storage.
type RunContext struct {
	Recording model.Recording
	MetaData  []model.RecordingMetaData
	Gains     ReconversionParams
	Reconvert bool
	WorkDir   string
}

// formatSeconds renders a duration in seconds with millisecond precision and
// no trailing zeros, e.g. 4.2 or 30.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Milliseconds())/1000, 'f', -1, 64)
}

func formatGain(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}
