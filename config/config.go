package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Tool paths and default assets are handed to the converter explicitly,
// nothing below the cmd layer reads the environment.
type Config struct {
	// 外部工具
	SoxPath     string
	FFmpegPath  string
	FFprobePath string

	// 资源与目录
	AssetsDir          string // shared assets (default image, one second silence)
	DefaultImagePath   string // overrides AssetsDir/default_interview_image.png
	DefaultSilencePath string // overrides AssetsDir/one_second.wav
	StreamsDir         string // per-room stream folders
	RecordingsDir      string // final mp4 outputs
	SpoolDir           string // recorder drops recording_<id>.done here

	PodWidth       int
	PodHeight      int
	ProcessTimeout time.Duration // 0 = no timeout
	Workers        int
	HTTPAddr       string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置，Endpoint 为空时不上传
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	ffmpegPath := getEnv("FFMPEG_PATH", "ffmpeg")
	streamsBase := getEnv("STREAMS_DIR", filepath.Join("data", "streams"))

	return &Config{
		SoxPath:            getEnv("SOX_PATH", "sox"),
		FFmpegPath:         ffmpegPath,
		FFprobePath:        getEnv("FFPROBE_PATH", siblingTool(ffmpegPath, "ffprobe")),
		AssetsDir:          getEnv("ASSETS_DIR", filepath.Join(streamsBase, "hibernate")),
		DefaultImagePath:   getEnv("DEFAULT_IMAGE_PATH", ""),
		DefaultSilencePath: getEnv("DEFAULT_SILENCE_PATH", ""),
		StreamsDir:         streamsBase,
		RecordingsDir:      getEnv("RECORDINGS_DIR", filepath.Join("data", "recordings")),
		SpoolDir:           getEnv("SPOOL_DIR", filepath.Join("data", "spool")),
		PodWidth:           getEnvInt("POD_WIDTH", 320),
		PodHeight:          getEnvInt("POD_HEIGHT", 260),
		ProcessTimeout:     getEnvDuration("PROCESS_TIMEOUT", 0),
		Workers:            getEnvInt("WORKERS", 2),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBHost:             getEnv("DB_HOST", "127.0.0.1"),
		DBPort:             getEnv("DB_PORT", "3306"),
		DBUser:             getEnv("DB_USER", "root"),
		DBPassword:         os.Getenv("DB_PASSWORD"), // no hardcoded default for the password
		DBName:             getEnv("DB_NAME", "openmeetings"),
		RedisHost:          getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		MinioEndpoint:      getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:        getEnv("MINIO_BUCKET", "recordings"),
		MinioRegion:        getEnv("MINIO_REGION", ""),
		MinioUseSSL:        getEnvBool("MINIO_USE_SSL", false),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
	}
}

// siblingTool derives e.g. /opt/ffmpeg/bin/ffprobe from /opt/ffmpeg/bin/ffmpeg.
func siblingTool(ffmpegPath, name string) string {
	dir := filepath.Dir(ffmpegPath)
	if dir == "." && filepath.Base(ffmpegPath) == ffmpegPath {
		return name
	}
	return filepath.Join(dir, name)
}
