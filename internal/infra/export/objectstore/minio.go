package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/campushelp/canvas-assistant/internal/domain/export"
)

// MinioSink writes export artifacts to any S3-compatible object store.
type MinioSink struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioSink constructs the storage adapter.
func NewMinioSink(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*MinioSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleanEndpoint := sanitizeEndpoint(endpoint)
	useSSL := strings.HasPrefix(strings.ToLower(endpoint), "https")
	client, err := minio.New(cleanEndpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &MinioSink{client: client, bucket: bucket, logger: logger.With("component", "export.objectstore")}, nil
}

func (s *MinioSink) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// Put uploads one export artifact.
func (s *MinioSink) Put(ctx context.Context, key string, data []byte, contentType string) (export.StoredObject, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return export.StoredObject{}, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: len(data) < 5*1024*1024,
	})
	if err != nil {
		return export.StoredObject{}, err
	}
	return export.StoredObject{
		Key:  key,
		Size: info.Size,
		ETag: info.ETag,
	}, nil
}

func sanitizeEndpoint(endpoint string) string {
	trimmed := strings.TrimSpace(endpoint)
	trimmed = strings.TrimPrefix(trimmed, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")
	return strings.TrimRight(trimmed, "/")
}

var _ export.Sink = (*MinioSink)(nil)
