package objstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalStore keeps each bucket as a directory under Root. Keys map to
// slash-separated relative paths.
type LocalStore struct {
	root   string
	logger *slog.Logger
}

// NewLocalStore returns a store rooted at root.
func NewLocalStore(root string, logger *slog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root not specified")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalStore{root: abs, logger: logger}, nil
}

func checkBucket(bucket string) error {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return fmt.Errorf("invalid bucket %q", bucket)
	}
	return nil
}

func (s *LocalStore) path(loc Location) (string, error) {
	if err := checkBucket(loc.Bucket); err != nil {
		return "", err
	}
	p := filepath.Join(s.root, loc.Bucket, filepath.FromSlash(loc.Key))
	bucketDir := filepath.Join(s.root, loc.Bucket)
	if p == bucketDir || !strings.HasPrefix(p, bucketDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", loc.Key)
	}
	return p, nil
}

// List walks the bucket directory and returns matching keys in lexical order.
func (s *LocalStore) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	if err := checkBucket(bucket); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, bucket)

	var objects []Object
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size()})
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("bucket %s does not exist: %w", bucket, err)
		}
		return nil, fmt.Errorf("failed to list %s/%s: %w", bucket, prefix, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Get reads the object's file.
func (s *LocalStore) Get(_ context.Context, loc Location) ([]byte, error) {
	p, err := s.path(loc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p) //nolint:gosec // path is confined to the storage root
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", loc, err)
	}
	return data, nil
}

// Put writes the object's file, creating parent directories. The write goes
// to a temporary file renamed into place so readers never see a partial object.
func (s *LocalStore) Put(_ context.Context, loc Location, data []byte) error {
	p, err := s.path(loc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", loc, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", loc, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to put %s: %w", loc, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to put %s: %w", loc, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to put %s: %w", loc, err)
	}

	s.logger.Debug("stored object", slog.String("location", loc.String()), slog.Int("bytes", len(data)))
	return nil
}

// URI returns the object's filesystem path.
func (s *LocalStore) URI(loc Location) string {
	return filepath.Join(s.root, loc.Bucket, filepath.FromSlash(loc.Key))
}
