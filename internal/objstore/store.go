// Package objstore abstracts the bucket/key object storage the pipeline reads
// raw files from and writes staged and combined files to.
package objstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
)

// Location addresses one object.
type Location struct {
	Bucket string
	Key    string
}

func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// Base returns the final path element of the key.
func (l Location) Base() string {
	return path.Base(l.Key)
}

// Object is a listing entry.
type Object struct {
	Key  string
	Size int64
}

// Store is a bucket/key object store.
type Store interface {
	// List returns the objects in bucket whose key starts with prefix,
	// sorted by key.
	List(ctx context.Context, bucket, prefix string) ([]Object, error)

	// Get reads a whole object.
	Get(ctx context.Context, loc Location) ([]byte, error)

	// Put writes a whole object, replacing any existing one.
	Put(ctx context.Context, loc Location, data []byte) error

	// URI returns the address a warehouse uses to read the object.
	URI(loc Location) string
}

// Config selects and configures a backend.
type Config struct {
	// Type is "s3" or "local".
	Type string

	// Root is the directory holding one subdirectory per bucket (local).
	Root string

	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Open builds the backend described by cfg.
func Open(cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch strings.ToLower(cfg.Type) {
	case "", "s3":
		return NewS3Store(cfg, logger)
	case "local":
		return NewLocalStore(cfg.Root, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q (want s3 or local)", cfg.Type)
	}
}
