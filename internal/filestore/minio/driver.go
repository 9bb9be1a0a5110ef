// Package minio stores snapshots in MinIO or any S3-compatible service.
package minio

import (
	"context"
	"io"

	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver implements filestore.Store over a minio-go client.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New builds a client for cfg and pings it.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "create object store client for "+cfg.Endpoint, err)
	}

	d := &Driver{client: client, bucket: cfg.DefaultBucket}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping checks that the default bucket exists. Without a default bucket it
// only checks that the credentials can list buckets.
func (d *Driver) Ping(ctx context.Context) error {
	if d.bucket == "" {
		_, err := d.client.ListBuckets(ctx)
		if err != nil {
			return mapError(err, "list buckets")
		}
		return nil
	}

	found, err := d.client.BucketExists(ctx, d.bucket)
	switch {
	case err != nil:
		return mapError(err, "check bucket "+d.bucket)
	case !found:
		return errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", d.bucket)
	}
	return nil
}

// Close releases nothing: the client keeps no connection open.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	up, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, mapError(err, "upload "+bucket+"/"+key)
	}
	return &filestore.ObjectInfo{
		Bucket:       up.Bucket,
		Key:          up.Key,
		Size:         up.Size,
		ContentType:  contentType,
		ETag:         up.ETag,
		LastModified: up.LastModified,
	}, nil
}

func (d *Driver) GetObject(ctx context.Context, bucket, key string) (filestore.Object, error) {
	obj, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "download "+bucket+"/"+key)
	}

	// The download is lazy; Stat reports a missing key before the first Read.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, mapError(err, "download "+bucket+"/"+key)
	}

	return &object{ReadCloser: obj, info: &filestore.ObjectInfo{
		Bucket:       bucket,
		Key:          key,
		Size:         st.Size,
		ContentType:  st.ContentType,
		ETag:         st.ETag,
		LastModified: st.LastModified,
	}}, nil
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo { return o.info }
