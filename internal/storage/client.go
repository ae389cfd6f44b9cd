package storage

import (
	"context"
	"time"
)

// Client defines the interface for S3-compatible storage operations
type Client interface {
	// PutFile uploads a local file to the given object.
	PutFile(ctx context.Context, bucket, key, filePath string, opts PutOptions) error
	// StatObject gets object metadata.
	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	// ListObjects lists objects with prefix.
	ListObjects(ctx context.Context, bucket, prefix string) (<-chan ObjectInfo, <-chan error)
	// RemoveObject deletes an object.
	RemoveObject(ctx context.Context, bucket, key string) error
	// MoveObject renames src to dst. The data transfer happens server-side;
	// dst only ever receives a complete object.
	MoveObject(ctx context.Context, src, dst Path) error
}

// ObjectInfo contains object metadata
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
}

// PutOptions contains options for put operations
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Config contains client configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Region    string
}
