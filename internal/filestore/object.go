package filestore

import (
	"io"
	"time"
)

// ObjectInfo describes a stored snapshot object.
type ObjectInfo struct {
	Bucket       string
	Key          string
	Size         int64 // -1 when unknown
	ContentType  string
	ETag         string
	LastModified time.Time // may be zero right after an upload
}

// Object streams an object's content. Close it after reading.
type Object interface {
	io.ReadCloser
	Info() *ObjectInfo
}
