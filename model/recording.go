package model

import (
	"fmt"
	"time"
)

// RecordingStatus 录制记录的转换状态
type RecordingStatus string

const (
	RecordingStatusNone       RecordingStatus = "NONE"
	RecordingStatusPending    RecordingStatus = "PENDING"
	RecordingStatusConverting RecordingStatus = "CONVERTING"
	RecordingStatusProcessed  RecordingStatus = "PROCESSED"
	RecordingStatusError      RecordingStatus = "ERROR"
)

// Terminal reports whether no further conversion step will change the status.
func (s RecordingStatus) Terminal() bool {
	return s == RecordingStatusProcessed || s == RecordingStatusError
}

// Recording 一次访谈录制（转换的基本单元）
type Recording struct {
	ID          int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Hash        string          `json:"hash" gorm:"size:64;index"`
	Status      RecordingStatus `json:"status" gorm:"size:20;default:'NONE';index"`
	RoomID      int64           `json:"roomId" gorm:"index;not null"`
	RecordStart time.Time       `json:"recordStart"`
	RecordEnd   time.Time       `json:"recordEnd"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Duration    string          `json:"duration,omitempty" gorm:"size:32"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TableName 指定表名
func (Recording) TableName() string {
	return "recordings"
}

// Length is RecordEnd - RecordStart, never negative.
func (r Recording) Length() time.Duration {
	d := r.RecordEnd.Sub(r.RecordStart)
	if d < 0 {
		return 0
	}
	return d
}

// PodSlot 访谈画面中的位置，只有左右两个
type PodSlot int

const (
	PodLeft  PodSlot = 1
	PodRight PodSlot = 2
)

// ParsePodSlot accepts only 1 and 2.
func ParsePodSlot(v int) (PodSlot, error) {
	switch PodSlot(v) {
	case PodLeft, PodRight:
		return PodSlot(v), nil
	}
	return 0, fmt.Errorf("invalid interview pod id %d", v)
}

func (p PodSlot) String() string {
	switch p {
	case PodLeft:
		return "left"
	case PodRight:
		return "right"
	}
	return fmt.Sprintf("pod(%d)", int(p))
}

// RecordingMetaData 录制中单个参与者的一路流
type RecordingMetaData struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID      int64     `json:"recordingId" gorm:"index;not null"`
	InterviewPodID   *int      `json:"interviewPodId,omitempty" gorm:"column:interview_pod_id"`
	StreamName       string    `json:"streamName" gorm:"size:255"`
	FullWavAudioData string    `json:"fullWavAudioData,omitempty" gorm:"size:255"`
	RecordStart      time.Time `json:"recordStart"`
	RecordEnd        time.Time `json:"recordEnd"`
	AudioOnly        bool      `json:"audioOnly"`
	VideoOnly        bool      `json:"videoOnly"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TableName 指定表名
func (RecordingMetaData) TableName() string {
	return "recording_metadata"
}

// Slot returns the pod slot and whether it is one of the two valid values.
func (m RecordingMetaData) Slot() (PodSlot, bool) {
	if m.InterviewPodID == nil {
		return 0, false
	}
	slot, err := ParsePodSlot(*m.InterviewPodID)
	return slot, err == nil
}

// HasAudio reports whether the stream carries a separate audio artifact.
func (m RecordingMetaData) HasAudio() bool {
	return !m.VideoOnly && m.FullWavAudioData != ""
}

// HasVideo reports whether the stream carries a video artifact.
func (m RecordingMetaData) HasVideo() bool {
	return !m.AudioOnly && m.StreamName != ""
}
