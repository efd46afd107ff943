package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/BerylCAtieno/docvault-api/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const healthInterval = 30 * time.Second

// BlobStore archives original files in object storage.
type BlobStore interface {
	Available() bool
	UploadFile(ctx context.Context, localPath, key, contentType string) error
}

// S3Storage is a BlobStore backed by any S3-compatible endpoint.
type S3Storage struct {
	client     *minio.Client
	bucket     string
	stopHealth context.CancelFunc
}

func NewS3Storage(ctx context.Context, cfg *config.Config) (*S3Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.S3BucketName); err != nil {
		return nil, err
	}

	stop, err := client.HealthCheck(healthInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to start S3 health check: %w", err)
	}

	return &S3Storage{client: client, bucket: cfg.S3BucketName, stopHealth: stop}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
	}
	return nil
}

// Available reports the result of the last background health check.
func (s *S3Storage) Available() bool {
	return s.client.IsOnline()
}

// UploadFile streams the file at localPath to key.
func (s *S3Storage) UploadFile(ctx context.Context, localPath, key, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}

	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, opts); err != nil {
		return fmt.Errorf("failed to archive %s as %s: %w", localPath, key, err)
	}

	return nil
}

func (s *S3Storage) Close() {
	if s.stopHealth != nil {
		s.stopHealth()
	}
}
