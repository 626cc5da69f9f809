// Package types holds the object storage contract used to mirror backups
// off the host.
package types

import (
	"context"
	"io"
)

// ObjectStorage is the subset of object storage operations a backup mirror
// needs. An empty bucket means the implementation's configured bucket.
type ObjectStorage interface {
	// Put stores an object under key
	Put(ctx context.Context, bucket, key string, reader io.Reader, metadata ObjectMetadata) error
}

// ObjectMetadata describes an uploaded object
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	UserMetadata  map[string]string
}
