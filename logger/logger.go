package logger

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger = zap.NewNop()
	once         sync.Once
)

// LogLevel 定义日志级别
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Config 定义日志配置
type Config struct {
	Level      LogLevel
	OutputPath string // empty = stdout only
	MaxSize    int    // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger 初始化日志系统，只生效一次
func InitLogger(config Config) {
	once.Do(func() {
		level := config.Level.zapLevel()

		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		cores := []zapcore.Core{
			zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level),
		}

		if config.OutputPath != "" {
			if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
				panic(err)
			}
			// 使用 lumberjack 进行日志轮转
			fileWriter := zapcore.AddSync(&lumberjack.Logger{
				Filename:   config.OutputPath,
				MaxSize:    config.MaxSize,
				MaxBackups: config.MaxBackups,
				MaxAge:     config.MaxAge,
				Compress:   config.Compress,
			})
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level))
		}

		globalLogger = zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddCallerSkip(1), // skip the package-level wrappers
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	})
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = globalLogger.Sync()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	return globalLogger
}

func Debug(msg string, fields ...zap.Field) { globalLogger.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field) { globalLogger.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { globalLogger.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { globalLogger.Error(msg, fields...) }

// Fatal 输出致命错误级别日志并退出程序
func Fatal(msg string, fields ...zap.Field) { globalLogger.Fatal(msg, fields...) }

// 辅助函数，用于创建字段
func String(key string, val string) zap.Field { return zap.String(key, val) }
func Strings(key string, val []string) zap.Field { return zap.Strings(key, val) }
func Int(key string, val int) zap.Field { return zap.Int(key, val) }
func Int64(key string, val int64) zap.Field { return zap.Int64(key, val) }
func Float64(key string, val float64) zap.Field { return zap.Float64(key, val) }
func Bool(key string, val bool) zap.Field { return zap.Bool(key, val) }
func ErrorField(err error) zap.Field { return zap.Error(err) }
func Any(key string, val interface{}) zap.Field { return zap.Any(key, val) }
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
