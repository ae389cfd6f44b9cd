package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Path identifies one remote object as bucket plus key.
type Path struct {
	Bucket string
	Key    string
}

// ParsePath parses an s3://bucket/key style URL. The s3n and s3a scheme
// variants used by Hadoop-era tooling are accepted as synonyms.
func ParsePath(raw string) (Path, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Path{}, fmt.Errorf("invalid remote path %q: %w", raw, err)
	}

	switch u.Scheme {
	case "s3", "s3n", "s3a":
	default:
		return Path{}, fmt.Errorf("remote path %q must use an s3 scheme, got %q", raw, u.Scheme)
	}

	if u.Host == "" {
		return Path{}, fmt.Errorf("remote path %q has no bucket", raw)
	}

	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return Path{}, fmt.Errorf("remote path %q has no object key", raw)
	}

	return Path{Bucket: u.Host, Key: key}, nil
}

// Join returns a path for a named object under this one.
func (p Path) Join(name string) Path {
	return Path{Bucket: p.Bucket, Key: path.Join(p.Key, name)}
}

func (p Path) String() string {
	return "s3://" + p.Bucket + "/" + p.Key
}
