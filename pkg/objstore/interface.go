// Package objstore defines the object storage abstraction used to persist
// dataset splits and trained model artifacts outside of PostgreSQL.
package objstore

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string // Key is the object key within the bucket.
	Size int64  // Size is the stored object size in bytes.
	ETag string // ETag is the backend's entity tag for the upload.
}

// Store is the abstraction over S3-compatible object storage. Implementations
// stream content and never buffer whole objects on local disk.
//
//go:generate mockgen -package mockobjstore -source=interface.go -destination=mock/mockobjstore.go *
type Store interface {
	// Put uploads an object under the given key. Size must be the exact number
	// of bytes when known, or -1 to let the backend chunk the upload.
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) (ObjectInfo, error)
	// Get returns the object content as a streaming reader. It returns
	// serrors.ErrNotFound when no object exists under the key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that downloads the object without
	// credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
