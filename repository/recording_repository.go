package repository

import (
	"context"
	"errors"

	"InterviewConv/model"

	"gorm.io/gorm"
)

// RecordingRepository 录制记录数据访问接口
type RecordingRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Recording, error)
	// Update writes the whole record; last write wins.
	Update(ctx context.Context, rec *model.Recording) error
	// GetMetaData returns the streams of a recording ordered by id.
	GetMetaData(ctx context.Context, recordingID int64) ([]model.RecordingMetaData, error)
}

// gormRecordingRepository GORM 实现
type gormRecordingRepository struct {
	db *gorm.DB
}

// NewGormRecordingRepository 创建 GORM 录制仓库
func NewGormRecordingRepository(db *gorm.DB) RecordingRepository {
	return &gormRecordingRepository{db: db}
}

// GetByID 根据ID获取录制，不存在时返回 nil, nil
func (r *gormRecordingRepository) GetByID(ctx context.Context, id int64) (*model.Recording, error) {
	var rec model.Recording
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Update 更新录制
func (r *gormRecordingRepository) Update(ctx context.Context, rec *model.Recording) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// GetMetaData 获取录制的全部流
func (r *gormRecordingRepository) GetMetaData(ctx context.Context, recordingID int64) ([]model.RecordingMetaData, error) {
	var metas []model.RecordingMetaData
	err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("id ASC").
		Find(&metas).Error
	return metas, err
}
