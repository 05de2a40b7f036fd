package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient is the object store client for the data lake.
type MinIOClient struct {
	client *minio.Client
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string // e.g., "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string // optional; skips bucket location lookups when set
}

// Error is returned for any failed storage operation. Storage errors are
// never retried by the pipeline.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("storage: %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewMinIOClient creates a new MinIO storage client. No request is made
// until the first operation.
func NewMinIOClient(ctx context.Context, cfg MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOClient{client: client}, nil
}

// BucketExists reports whether the bucket exists.
func (m *MinIOClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, &Error{Op: "bucket exists", Bucket: bucket, Err: err}
	}
	return exists, nil
}

// CreateBucket creates the bucket. A bucket already owned by the caller is
// not an error, so concurrent flows can provision the same bucket.
func (m *MinIOClient) CreateBucket(ctx context.Context, bucket string) error {
	err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
		return nil
	}
	return &Error{Op: "create bucket", Bucket: bucket, Err: err}
}

// Put stores data at bucket/key, creating the bucket first if it is
// missing. Any existing object at key is overwritten.
func (m *MinIOClient) Put(ctx context.Context, bucket, key string, data []byte, opts PutOptions) error {
	exists, err := m.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.CreateBucket(ctx, bucket); err != nil {
			return err
		}
		slog.InfoContext(ctx, "created bucket", "bucket", bucket)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return &Error{Op: "put object", Bucket: bucket, Key: key, Err: err}
	}

	return nil
}

// PutOptions carries object attributes for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}
