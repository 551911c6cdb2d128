package model

import "time"

// ProcessResult 单次外部工具调用的结果，记录后不再修改
type ProcessResult struct {
	Process  string        `json:"process"`
	Command  []string      `json:"command"`
	ExitCode int           `json:"exitCode"`
	Out      string        `json:"out,omitempty"`
	Error    string        `json:"error,omitempty"`
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed"`
}

// IsOK reports a zero exit code.
func (r ProcessResult) IsOK() bool {
	return r.ExitCode == 0
}

// ProcessResultList is the append-only log of one conversion run.
// Not safe for concurrent use; a run is single-threaded.
type ProcessResultList struct {
	items []ProcessResult
}

// Add appends a result; Command is copied so later caller edits don't leak in.
func (l *ProcessResultList) Add(r ProcessResult) {
	r.Command = append([]string(nil), r.Command...)
	l.items = append(l.items, r)
}

// Items returns a copy of the results in append order.
func (l *ProcessResultList) Items() []ProcessResult {
	return append([]ProcessResult(nil), l.items...)
}

func (l *ProcessResultList) Len() int {
	return len(l.items)
}

// HasError reports whether any recorded invocation failed.
func (l *ProcessResultList) HasError() bool {
	for _, r := range l.items {
		if !r.IsOK() {
			return true
		}
	}
	return false
}

// Last returns the most recent result.
func (l *ProcessResultList) Last() (ProcessResult, bool) {
	if len(l.items) == 0 {
		return ProcessResult{}, false
	}
	return l.items[len(l.items)-1], true
}

// RecordingLog 持久化的转换日志，每条对应一个 ProcessResult
type RecordingLog struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID int64     `json:"recordingId" gorm:"index;not null"`
	Seq         int       `json:"seq"`
	Process     string    `json:"process" gorm:"size:100"`
	Command     string    `json:"command" gorm:"type:text"`
	ExitCode    int       `json:"exitCode"`
	Message     string    `json:"message" gorm:"type:text"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName 指定表名
func (RecordingLog) TableName() string {
	return "recording_logs"
}
