// Package filestoretest provides an in-memory filestore.Store for tests.
package filestoretest

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/filestore"
)

// Store keeps objects in memory, keyed by "bucket/key".
type Store struct {
	mu      sync.Mutex
	objects map[string]stored
	closed  bool
}

type stored struct {
	data []byte
	info filestore.ObjectInfo
}

var _ filestore.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[string]stored)}
}

// Put seeds an object.
func (s *Store) Put(bucket, key string, data []byte) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = stored{
		data: append([]byte(nil), data...),
		info: filestore.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(data)), LastModified: time.Now()},
	}
	return s
}

// Data returns the content stored under bucket/key.
func (s *Store) Data(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[bucket+"/"+key]
	return o.data, ok
}

// Closed reports whether Close was called.
func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) PutObject(_ context.Context, bucket, key string, r io.Reader, _ int64, contentType string) (*filestore.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "upload "+bucket+"/"+key, err)
	}
	info := filestore.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         int64(len(data)),
		ContentType:  contentType,
		LastModified: time.Now(),
	}

	s.mu.Lock()
	s.objects[bucket+"/"+key] = stored{data: data, info: info}
	s.mu.Unlock()
	return &info, nil
}

func (s *Store) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	s.mu.Lock()
	o, ok := s.objects[bucket+"/"+key]
	s.mu.Unlock()
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "download %s/%s: no such key", bucket, key)
	}
	info := o.info
	return &object{Reader: bytes.NewReader(o.data), info: &info}, nil
}

type object struct {
	*bytes.Reader
	info *filestore.ObjectInfo
}

func (o *object) Close() error                 { return nil }
func (o *object) Info() *filestore.ObjectInfo { return o.info }
