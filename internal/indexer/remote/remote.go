// Package remote copies index snapshots to S3-compatible object storage.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

var ErrNotFound = errors.New("remote object not found")

// Sink stores whole snapshot files by name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

// MinioSink is a Sink backed by a MinIO or S3 bucket. Calls go through a
// circuit breaker so an unreachable endpoint fails fast.
type MinioSink struct {
	client  *minio.Client
	bucket  string
	prefix  string
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewMinioSink(cfg config.RemoteConfig) (*MinioSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client for %s: %w", cfg.Endpoint, err)
	}
	return &MinioSink{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		breaker: resilience.NewCircuitBreaker("snapshot-remote", resilience.CircuitBreakerConfig{
			IsFailure: func(err error) bool { return err != nil && !errors.Is(err, ErrNotFound) },
		}),
		logger: slog.Default().With("component", "snapshot-remote", "bucket", cfg.Bucket),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("creating bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created")
	return nil
}

func (s *MinioSink) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *MinioSink) Put(ctx context.Context, name string, data []byte) error {
	return s.breaker.Execute(func() error {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", s.key(name), err)
		}
		return nil
	})
}

func (s *MinioSink) Get(ctx context.Context, name string) ([]byte, error) {
	return resilience.Call(s.breaker, func() ([]byte, error) {
		obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
		if err != nil {
			return nil, s.translate(name, err)
		}
		defer obj.Close()
		data, err := io.ReadAll(obj)
		if err != nil {
			return nil, s.translate(name, err)
		}
		return data, nil
	})
}

func (s *MinioSink) translate(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, s.key(name))
	}
	return fmt.Errorf("downloading %s: %w", s.key(name), err)
}
