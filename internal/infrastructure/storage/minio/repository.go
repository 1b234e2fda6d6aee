package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeObjectNotFound, "object not found")
	ErrBucketNotFound = errors.New(errors.ErrCodeObjectNotFound, "bucket not found")
	ErrObjectTooLarge = errors.New(errors.ErrCodeValidation, "object exceeds size limit")
	ErrNotText        = errors.New(errors.ErrCodeValidation, "object is not UTF-8 text")
)

const (
	textContentType = "text/plain; charset=utf-8"
	jsonContentType = "application/json"
	analysisPrefix  = "analyses/"
	listLimit       = 1000
)

// ObjectInfo describes one stored contract.
type ObjectInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ETag         string            `json:"etag"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ContractStore reads and writes contract texts and analysis documents in a
// single bucket.
type ContractStore struct {
	api      ObjectAPI
	bucket   string
	maxBytes int64
	log      logging.Logger
}

// NewContractStore builds a store over api. maxBytes <= 0 disables the size
// check on reads.
func NewContractStore(api ObjectAPI, bucket string, maxBytes int64, log logging.Logger) *ContractStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ContractStore{api: api, bucket: bucket, maxBytes: maxBytes, log: log}
}

// Bucket returns the bucket name.
func (s *ContractStore) Bucket() string { return s.bucket }

// PutContract uploads contract text under key.
func (s *ContractStore) PutContract(ctx context.Context, key, text string, metadata map[string]string) (*ObjectInfo, error) {
	if key == "" {
		return nil, errors.InvalidParam("object key is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty")
	}
	return s.put(ctx, key, []byte(text), textContentType, metadata)
}

// GetContractText downloads the object at key and returns it as text.
func (s *ContractStore) GetContractText(ctx context.Context, key string) (string, error) {
	data, err := s.read(ctx, key)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrNotText.WithDetail(key)
	}
	return string(data), nil
}

// PutAnalysis persists a finished analysis as JSON under analyses/<id>.json.
func (s *ContractStore) PutAnalysis(ctx context.Context, a *contract.ContractAnalysis) error {
	if a == nil || a.ID == "" {
		return errors.InvalidParam("analysis id is required")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode analysis")
	}
	_, err = s.put(ctx, analysisKey(a.ID), data, jsonContentType, map[string]string{"contract-type": string(a.ContractType)})
	return err
}

// GetAnalysis loads a previously persisted analysis.
func (s *ContractStore) GetAnalysis(ctx context.Context, id string) (*contract.ContractAnalysis, error) {
	data, err := s.read(ctx, analysisKey(id))
	if err != nil {
		return nil, err
	}
	var a contract.ContractAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode analysis").WithDetail(id)
	}
	return &a, nil
}

// Exists reports whether key is present.
func (s *ContractStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.stat(ctx, key)
	if errors.IsCode(err, errors.ErrCodeObjectNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *ContractStore) Delete(ctx context.Context, key string) error {
	if err := s.api.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to delete object").WithDetail(key)
	}
	return nil
}

// List returns up to 1000 contract objects under prefix, skipping stored
// analyses.
func (s *ContractStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []ObjectInfo
	for obj := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "failed to list objects")
		}
		if strings.HasPrefix(obj.Key, analysisPrefix) {
			continue
		}
		out = append(out, toObjectInfo(obj))
		if len(out) == listLimit {
			break
		}
	}
	return out, nil
}

// PresignedURL returns a time-limited download link for key.
func (s *ContractStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.api.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "failed to presign url").WithDetail(key)
	}
	return u.String(), nil
}

func (s *ContractStore) put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (*ObjectInfo, error) {
	info, err := s.api.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to upload object").WithDetail(key)
	}
	s.log.Debug("object stored", logging.String("bucket", s.bucket), logging.String("key", key), logging.Int64("size", info.Size))
	return &ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  contentType,
		LastModified: info.LastModified,
		Metadata:     metadata,
	}, nil
}

func (s *ContractStore) stat(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := s.api.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return info, ErrObjectNotFound.WithDetail(key)
		}
		return info, errors.Wrap(err, errors.ErrCodeStorageError, "failed to stat object").WithDetail(key)
	}
	return info, nil
}

func (s *ContractStore) read(ctx context.Context, key string) ([]byte, error) {
	info, err := s.stat(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && info.Size > s.maxBytes {
		return nil, ErrObjectTooLarge.WithDetail(key)
	}

	rc, err := s.api.Open(ctx, s.bucket, key)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to open object").WithDetail(key)
	}
	defer rc.Close()

	var r io.Reader = rc
	if s.maxBytes > 0 {
		r = io.LimitReader(rc, s.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to read object").WithDetail(key)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrObjectTooLarge.WithDetail(key)
	}
	return data, nil
}

func analysisKey(id string) string { return analysisPrefix + id + ".json" }

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

func toObjectInfo(obj minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          obj.Key,
		Size:         obj.Size,
		ETag:         obj.ETag,
		ContentType:  obj.ContentType,
		LastModified: obj.LastModified,
		Metadata:     obj.UserMetadata,
	}
}

//Personal.AI order the ending
