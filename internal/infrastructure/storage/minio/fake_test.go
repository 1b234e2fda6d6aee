package minio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
)

type fakeObject struct {
	data        []byte
	contentType string
	meta        map[string]string
}

// fakeAPI is an in-memory single-bucket ObjectAPI.
type fakeAPI struct {
	mu       sync.Mutex
	buckets  map[string]bool
	objects  map[string]fakeObject
	failWith error
	made     []string
}

func newFakeAPI(buckets ...string) *fakeAPI {
	f := &fakeAPI{buckets: map[string]bool{}, objects: map[string]fakeObject{}}
	for _, b := range buckets {
		f.buckets[b] = true
	}
	return f
}

func noSuchKey() error { return minio.ErrorResponse{Code: "NoSuchKey", Message: "not found"} }

func (f *fakeAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return false, f.failWith
	}
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[bucket] = true
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeAPI) PutObject(_ context.Context, _, key string, r io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return minio.UploadInfo{}, f.failWith
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[key] = fakeObject{data: data, contentType: opts.ContentType, meta: opts.UserMetadata}
	return minio.UploadInfo{Key: key, Size: int64(len(data)), ETag: "etag-" + key, LastModified: time.Unix(0, 0)}, nil
}

func (f *fakeAPI) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return minio.ObjectInfo{}, f.failWith
	}
	obj, ok := f.objects[key]
	if !ok {
		return minio.ObjectInfo{}, noSuchKey()
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (f *fakeAPI) RemoveObject(_ context.Context, _, key string, _ minio.RemoveObjectOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeAPI) ListObjects(_ context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.mu.Lock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	infos := make([]minio.ObjectInfo, len(keys))
	for i, k := range keys {
		infos[i] = minio.ObjectInfo{Key: k, Size: int64(len(f.objects[k].data))}
	}
	failErr := f.failWith
	f.mu.Unlock()

	ch := make(chan minio.ObjectInfo, len(infos)+1)
	if failErr != nil {
		ch <- minio.ObjectInfo{Err: failErr}
	}
	for _, info := range infos {
		ch <- info
	}
	close(ch)
	return ch
}

func (f *fakeAPI) PresignedGetObject(_ context.Context, bucket, key string, expiry time.Duration, _ url.Values) (*url.URL, error) {
	return url.Parse("http://minio.local/" + bucket + "/" + key + "?X-Amz-Expires=" + expiry.String())
}

func (f *fakeAPI) Open(_ context.Context, _, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return nil, noSuchKey()
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

//Personal.AI order the ending
