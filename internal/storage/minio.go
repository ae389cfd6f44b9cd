package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient implements the Client interface using minio-go
type MinIOClient struct {
	client *minio.Client
}

// NewMinIOClient creates a new MinIO client. When no static credentials are
// configured it falls back to the standard AWS environment chain.
func NewMinIOClient(cfg Config) (*MinIOClient, error) {
	endpoint, err := cleanEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewEnvAWS()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinIOClient{client: client}, nil
}

// cleanEndpoint removes protocol and path from endpoint URL to get host:port format
func cleanEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if strings.Contains(endpoint, "/") {
			return "", fmt.Errorf("endpoint contains path but no protocol")
		}
		return endpoint, nil
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint URL: %w", err)
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return "", fmt.Errorf("endpoint URL cannot have paths, only host:port is allowed (got path: %s)", parsedURL.Path)
	}

	return parsedURL.Host, nil
}

// PutFile uploads a local file. minio-go switches to multipart internally
// above its own threshold.
func (c *MinIOClient) PutFile(ctx context.Context, bucket, key, filePath string, opts PutOptions) error {
	putOpts := minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	}

	_, err := c.client.FPutObject(ctx, bucket, key, filePath, putOpts)
	return err
}

// StatObject gets object metadata
func (c *MinIOClient) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
	}, nil
}

// ListObjects lists objects with prefix
func (c *MinIOClient) ListObjects(ctx context.Context, bucket, prefix string) (<-chan ObjectInfo, <-chan error) {
	objCh := make(chan ObjectInfo)
	errCh := make(chan error, 1)

	go func() {
		defer close(objCh)
		defer close(errCh)

		for obj := range c.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				errCh <- obj.Err
				return
			}

			select {
			case objCh <- ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				ETag:         obj.ETag,
				LastModified: obj.LastModified,
				ContentType:  obj.ContentType,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return objCh, errCh
}

// RemoveObject deletes an object
func (c *MinIOClient) RemoveObject(ctx context.Context, bucket, key string) error {
	return c.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

// MoveObject renames src to dst with a server-side copy followed by a
// delete of the source. S3-class stores have no native rename; this is
// what their own CLIs do for mv.
func (c *MinIOClient) MoveObject(ctx context.Context, src, dst Path) error {
	_, err := c.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: dst.Bucket, Object: dst.Key},
		minio.CopySrcOptions{Bucket: src.Bucket, Object: src.Key},
	)
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	if err := c.client.RemoveObject(ctx, src.Bucket, src.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove staged object %s: %w", src, err)
	}

	return nil
}
