// Package blobstore keeps binary assets such as profile pictures in an
// S3-compatible bucket and hands out presigned download URLs.
package blobstore

import (
	"context"
	"io"
	"time"
)

type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
