// Package snapshot stores exported configuration documents either on the
// local filesystem or in object storage.
//
// A target is a filesystem path, or s3://bucket/key for object storage.
// s3:///key uses the store's default bucket.
package snapshot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/filestore"
)

const (
	scheme      = "s3://"
	contentType = "application/yaml"
)

// Target is a parsed snapshot location.
type Target struct {
	Path   string // local file; empty for remote targets
	Bucket string
	Key    string
}

// Remote reports whether the target lives in object storage.
func (t Target) Remote() bool {
	return t.Path == ""
}

func (t Target) String() string {
	if t.Remote() {
		return scheme + t.Bucket + "/" + t.Key
	}
	return t.Path
}

// ParseTarget parses s. defaultBucket fills an empty bucket.
func ParseTarget(s, defaultBucket string) (Target, error) {
	if s == "" {
		return Target{}, errs.New(errs.ErrKindInvalidInput, "empty snapshot target")
	}
	if !strings.HasPrefix(s, scheme) {
		return Target{Path: s}, nil
	}

	rest := strings.TrimPrefix(s, scheme)
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		bucket = defaultBucket
	}
	if bucket == "" || key == "" {
		return Target{}, errs.Newf(errs.ErrKindInvalidInput, "snapshot target %q needs a bucket and a key", s)
	}
	return Target{Bucket: bucket, Key: key}, nil
}

// Write stores data at target. store may be nil for local targets.
func Write(ctx context.Context, store filestore.Store, t Target, data []byte) error {
	if !t.Remote() {
		if dir := filepath.Dir(t.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errs.Wrap(errs.ErrKindQueryFailed, "create snapshot directory", err)
			}
		}
		if err := os.WriteFile(t.Path, data, 0o644); err != nil {
			return errs.Wrap(errs.ErrKindQueryFailed, "write snapshot "+t.Path, err)
		}
		return nil
	}

	if store == nil {
		return errs.Newf(errs.ErrKindInvalidInput, "%s: no object store configured", t)
	}
	_, err := store.PutObject(ctx, t.Bucket, t.Key, bytes.NewReader(data), int64(len(data)), contentType)
	return err
}

// Read loads the snapshot at target.
func Read(ctx context.Context, store filestore.Store, t Target) ([]byte, error) {
	if !t.Remote() {
		data, err := os.ReadFile(t.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errs.Wrap(errs.ErrKindNotFound, "read snapshot "+t.Path, err)
			}
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "read snapshot "+t.Path, err)
		}
		return data, nil
	}

	if store == nil {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "%s: no object store configured", t)
	}
	obj, err := store.GetObject(ctx, t.Bucket, t.Key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	size := int64(-1)
	if info := obj.Info(); info != nil {
		size = info.Size
	}
	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	if _, err := buf.ReadFrom(obj); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "read snapshot "+t.String(), err)
	}
	if size >= 0 && int64(buf.Len()) != size {
		return nil, errs.Newf(errs.ErrKindQueryFailed, "read snapshot %s: got %d of %d bytes", t, buf.Len(), size)
	}
	return buf.Bytes(), nil
}
