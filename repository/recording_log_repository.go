package repository

import (
	"context"
	"strings"

	"InterviewConv/model"

	"gorm.io/gorm"
)

// RecordingLogRepository 转换日志数据访问接口
type RecordingLogRepository interface {
	// Replace drops earlier logs of the recording and stores the new run.
	Replace(ctx context.Context, recordingID int64, results []model.ProcessResult) error
	ListByRecording(ctx context.Context, recordingID int64) ([]model.RecordingLog, error)
}

type gormRecordingLogRepository struct {
	db *gorm.DB
}

// NewGormRecordingLogRepository 创建 GORM 日志仓库
func NewGormRecordingLogRepository(db *gorm.DB) RecordingLogRepository {
	return &gormRecordingLogRepository{db: db}
}

// Replace 在一个事务里替换日志
func (r *gormRecordingLogRepository) Replace(ctx context.Context, recordingID int64, results []model.ProcessResult) error {
	logs := ToRecordingLogs(recordingID, results)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recording_id = ?", recordingID).Delete(&model.RecordingLog{}).Error; err != nil {
			return err
		}
		if len(logs) == 0 {
			return nil
		}
		return tx.CreateInBatches(logs, 100).Error
	})
}

// ListByRecording 按顺序获取日志
func (r *gormRecordingLogRepository) ListByRecording(ctx context.Context, recordingID int64) ([]model.RecordingLog, error) {
	var logs []model.RecordingLog
	err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("seq ASC").
		Find(&logs).Error
	return logs, err
}

// ToRecordingLogs maps a run's results to rows, keeping the run order in Seq.
// The message is stderr, or stdout when the process succeeded quietly.
func ToRecordingLogs(recordingID int64, results []model.ProcessResult) []model.RecordingLog {
	logs := make([]model.RecordingLog, 0, len(results))
	for i, res := range results {
		msg := res.Error
		if res.IsOK() && strings.TrimSpace(msg) == "" {
			msg = res.Out
		}
		logs = append(logs, model.RecordingLog{
			RecordingID: recordingID,
			Seq:         i,
			Process:     res.Process,
			Command:     strings.Join(res.Command, " "),
			ExitCode:    res.ExitCode,
			Message:     msg,
		})
	}
	return logs
}
