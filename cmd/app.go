package cmd

import (
	"fmt"
	"time"

	"InterviewConv/cache"
	"InterviewConv/config"
	"InterviewConv/core/converter"
	"InterviewConv/core/postprocess"
	"InterviewConv/core/process"
	"InterviewConv/db"
	"InterviewConv/logger"
	"InterviewConv/repository"
	"InterviewConv/storage"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// app holds the wired components shared by the subcommands.
type app struct {
	gdb        *gorm.DB
	redis      *redis.Client
	store      *storage.MinioStore // nil when MinIO is not configured
	recordings repository.RecordingRepository
	logs       repository.RecordingLogRepository
	converter  *converter.InterviewConverter
}

func converterOptions(cfg *config.Config) converter.Options {
	return converter.Options{
		SoxPath:    cfg.SoxPath,
		FFmpegPath: cfg.FFmpegPath,
		PodWidth:   cfg.PodWidth,
		PodHeight:  cfg.PodHeight,
		Layout: converter.Layout{
			StreamsDir:         cfg.StreamsDir,
			AssetsDir:          cfg.AssetsDir,
			RecordingsDir:      cfg.RecordingsDir,
			DefaultImagePath:   cfg.DefaultImagePath,
			DefaultSilencePath: cfg.DefaultSilencePath,
		},
	}
}

// newApp connects the database (and Redis when withRedis is set) and builds
// the converter.
func newApp(cfg *config.Config, withRedis bool) (*app, error) {
	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		gdb:        gdb,
		recordings: repository.NewGormRecordingRepository(gdb),
		logs:       repository.NewGormRecordingLogRepository(gdb),
	}

	if withRedis {
		if a.redis, err = cache.ConnectRedis(cfg); err != nil {
			a.close()
			return nil, err
		}
	}

	if a.store, err = storage.NewMinioStore(cfg); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to init MinIO: %w", err)
	}
	var uploader postprocess.Uploader
	if a.store != nil {
		uploader = a.store
	} else {
		logger.Info("MinIO not configured, recordings stay on local disk")
	}

	exec := process.NewExecExecutor(cfg.ProcessTimeout)
	post := postprocess.New(exec, cfg.FFmpegPath, cfg.FFprobePath, uploader)
	a.converter = converter.NewInterviewConverter(a.recordings, exec, post, converterOptions(cfg))
	return a, nil
}

func (a *app) queue() *cache.ConversionQueue {
	return cache.NewConversionQueue(a.redis)
}

func (a *app) lock() *cache.ConversionLock {
	// longer than any sane conversion; released explicitly on completion
	return cache.NewConversionLock(a.redis, 2*time.Hour)
}

func (a *app) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("failed to close redis", logger.ErrorField(err))
		}
	}
	if err := db.CloseGormDB(a.gdb); err != nil {
		logger.Warn("failed to close database", logger.ErrorField(err))
	}
}
