// Package miniostore provides an objstore.Store implementation backed by any
// S3-compatible server via the MinIO client.
package miniostore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"trainer/pkg/objstore"
	"trainer/pkg/serrors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options defines the configuration parameters for the object store connection.
type Options struct {
	// Endpoint is the host:port of the S3-compatible server
	Endpoint string
	// AccessKey is the access key id used for authentication
	AccessKey string
	// SecretKey is the secret access key used for authentication
	SecretKey string
	// Bucket is the bucket all objects are stored in
	Bucket string
	// UseSSL enables TLS towards the endpoint
	UseSSL bool
}

// Store talks to an S3-compatible object store and fulfills the
// objstore.Store interface. It is safe for concurrent use.
type Store struct {
	client *minio.Client
	bucket string
}

// Ensure Store conforms to the objstore.Store interface at compile time.
var _ objstore.Store = (*Store)(nil)

// New constructs a Store and ensures the configured bucket exists, creating
// it when missing.
func New(ctx context.Context, options Options) (*Store, error) {
	cli, err := minio.New(options.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(options.AccessKey, options.SecretKey, ""),
		Secure: options.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, options.Bucket)
	if err != nil {
		return nil, fmt.Errorf("could not check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, options.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("could not create bucket: %w", err)
		}
	}

	return &Store{
		client: cli,
		bucket: options.Bucket,
	}, nil
}

// Put uploads an object using streaming I/O.
func (s *Store) Put(ctx context.Context,
	key, contentType string,
	r io.Reader,
	size int64) (objstore.ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return objstore.ObjectInfo{}, fmt.Errorf("could not put object: %w", err)
	}

	return objstore.ObjectInfo{
		Key:  key,
		Size: info.Size,
		ETag: info.ETag,
	}, nil
}

// Get returns the object content as a streaming reader. The object is stat'ed
// up front so that a missing key surfaces as ErrNotFound instead of a read
// error later.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("could not get object: %w", err)
	}

	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()

		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, serrors.With(serrors.ErrNotFound, "object %q not found", key)
		}

		return nil, fmt.Errorf("could not stat object: %w", err)
	}

	return obj, nil
}

// Delete removes an object by key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("could not remove object: %w", err)
	}

	return nil
}

// PresignGet generates a pre-signed GET URL with the given expiry.
func (s *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("could not presign object: %w", err)
	}

	return u.String(), nil
}
