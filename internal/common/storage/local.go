package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage stores objects as files under Root/bucket/objectKey.
type LocalStorage struct {
	Root string
}

// NewLocalStorage creates the root directory if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root failed: %w", err)
	}
	return &LocalStorage{Root: root}, nil
}

func (s *LocalStorage) GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error) {
	path, err := s.path(bucket, objectKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, s.wrap("open", err)
	}
	return f, nil
}

// PutObject writes to a temp file in the target directory and renames it
// into place, so readers never observe a partial object.
func (s *LocalStorage) PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error {
	if reader == nil {
		return fmt.Errorf("reader is required")
	}
	path, err := s.path(bucket, objectKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir failed: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file failed: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	src := reader
	if sizeBytes >= 0 {
		src = io.LimitReader(reader, sizeBytes)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write object failed: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file failed: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename object failed: %w", err)
	}
	return nil
}

func (s *LocalStorage) StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error) {
	path, err := s.path(bucket, objectKey)
	if err != nil {
		return ObjectStat{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ObjectStat{}, s.wrap("stat", err)
	}
	sum := md5.Sum(data)
	return ObjectStat{SizeBytes: int64(len(data)), ETag: hex.EncodeToString(sum[:])}, nil
}

func (s *LocalStorage) RemoveObject(ctx context.Context, bucket, objectKey string) error {
	path, err := s.path(bucket, objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove object failed: %w", err)
	}
	return nil
}

// path resolves an object path and refuses keys that escape the bucket.
func (s *LocalStorage) path(bucket, objectKey string) (string, error) {
	if bucket == "" || objectKey == "" {
		return "", fmt.Errorf("bucket and objectKey are required")
	}
	base := filepath.Join(s.Root, filepath.Clean("/"+bucket))
	full := filepath.Join(base, filepath.FromSlash(objectKey))
	if full == base || !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return full, nil
}

func (s *LocalStorage) wrap(op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local %s failed: %w", op, ErrObjectNotFound)
	}
	return fmt.Errorf("local %s failed: %w", op, err)
}
