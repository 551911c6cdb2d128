package storage

import (
	"context"
	"fmt"
	"time"

	"InterviewConv/config"
	"InterviewConv/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore 封装了 MinIO 客户端，用于保存转换完成的录制
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStore connects to MinIO and makes sure the bucket exists.
// It returns nil, nil when no endpoint is configured.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	if cfg.MinioEndpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("MinIO bucket created", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("MinIO client ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return &MinioStore{client: client, bucketName: cfg.MinioBucket}, nil
}

// UploadFile 上传本地文件
func (m *MinioStore) UploadFile(ctx context.Context, objectName, filePath, contentType string) error {
	info, err := m.client.FPutObject(ctx, m.bucketName, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("上传文件 %s 失败: %w", objectName, err)
	}
	logger.Info("Uploaded object",
		logger.String("bucket", m.bucketName),
		logger.String("object", objectName),
		logger.Int64("size", info.Size))
	return nil
}

// PresignedURL returns a time-limited download link for an object.
func (m *MinioStore) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成下载链接失败: %w", err)
	}
	return u.String(), nil
}
