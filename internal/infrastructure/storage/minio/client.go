// Package minio stores contract documents and finished analyses in an
// S3-compatible bucket.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

const connectTimeout = 10 * time.Second

// ObjectAPI is the subset of the MinIO SDK the store needs. Open replaces
// GetObject so readers can be faked without a server.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
	Open(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
}

// sdkAPI adapts *minio.Client to ObjectAPI.
type sdkAPI struct {
	*minio.Client
}

func (a sdkAPI) Open(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	return a.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
}

// Connect dials the endpoint, creates the bucket when missing and returns a
// ready ContractStore.
func Connect(cfg config.MinIOConfig, log logging.Logger) (*ContractStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.InvalidParam("minio endpoint is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	store := NewContractStore(sdkAPI{client}, cfg.Bucket, cfg.MaxObjectMiB<<20, log)
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("minio connected", logging.String("endpoint", cfg.Endpoint), logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return store, nil
}

func applyDefaults(cfg *config.MinIOConfig) {
	if cfg.Bucket == "" {
		cfg.Bucket = config.DefaultMinIOBucket
	}
	if cfg.MaxObjectMiB <= 0 {
		cfg.MaxObjectMiB = 20
	}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *ContractStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to reach minio")
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket").WithDetail(s.bucket)
	}
	s.log.Info("created bucket", logging.String("bucket", s.bucket))
	return nil
}

// HealthCheck reports whether the bucket is reachable.
func (s *ContractStore) HealthCheck(ctx context.Context) error {
	ok, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	if !ok {
		return ErrBucketNotFound.WithDetail(s.bucket)
	}
	return nil
}

//Personal.AI order the ending
