package storage

import (
	"context"
	"io"
	"strings"
	"time"
)

// UploadInput describes a single object to store.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// Service stores uploaded profile and cover pictures in remote object storage.
type Service interface {
	Upload(ctx context.Context, in UploadInput) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// ParseLocation splits an s3://bucket/key location produced by Upload.
func ParseLocation(location string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(location, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
