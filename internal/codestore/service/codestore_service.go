// Package service stores editor documents in object storage.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"codearena/internal/common/storage"
	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	defaultMaxBytes = 1 << 20
	contentType     = "application/zstd"
)

var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Config configures the code store.
type Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	MaxBytes int    `yaml:"maxBytes"`
}

// Service saves and loads named text documents.
type Service struct {
	storage  storage.ObjectStorage
	bucket   string
	prefix   string
	maxBytes int
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

// NewService creates a code store on top of objectStorage.
func NewService(objectStorage storage.ObjectStorage, cfg Config) (*Service, error) {
	if objectStorage == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(cfg.MaxBytes)*2))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Service{
		storage:  objectStorage,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		maxBytes: cfg.MaxBytes,
		encoder:  encoder,
		decoder:  decoder,
	}, nil
}

// Save stores content under filename, replacing any previous version.
func (s *Service) Save(ctx context.Context, filename, content string) error {
	if filename == "" || content == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("Filename and content are required.")
	}
	if err := validateFilename(filename); err != nil {
		return err
	}
	if len(content) > s.maxBytes {
		return appErr.Newf(appErr.CodeTooLarge, "content exceeds %d bytes", s.maxBytes)
	}

	compressed := s.encoder.EncodeAll([]byte(content), nil)
	if err := s.storage.PutObject(ctx, s.bucket, s.key(filename), bytes.NewReader(compressed), int64(len(compressed)), contentType); err != nil {
		return appErr.Wrapf(err, appErr.CodeFileSaveFailed, "Failed to save file.")
	}
	logger.Info(ctx, "code file saved",
		zap.String("filename", filename),
		zap.Int("bytes", len(content)),
		zap.Int("stored_bytes", len(compressed)),
	)
	return nil
}

// Load returns the content stored under filename.
func (s *Service) Load(ctx context.Context, filename string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", err
	}
	rc, err := s.storage.GetObject(ctx, s.bucket, s.key(filename))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", appErr.New(appErr.CodeFileNotFound).WithMessage("File not found.")
		}
		return "", appErr.Wrapf(err, appErr.InternalServerError, "Failed to read file.")
	}
	defer func() { _ = rc.Close() }()

	compressed, err := io.ReadAll(io.LimitReader(rc, int64(s.maxBytes)*2))
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "Failed to read file.")
	}
	content, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InternalServerError, "Failed to read file.")
	}
	return string(content), nil
}

// Close releases the codec resources.
func (s *Service) Close() {
	_ = s.encoder.Close()
	s.decoder.Close()
}

func (s *Service) key(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return path.Join(s.prefix, filename)
}

func validateFilename(filename string) error {
	if filename == "." || filename == ".." || !filenamePattern.MatchString(filename) {
		return appErr.New(appErr.InvalidFilename).WithMessagef("invalid filename %q", filename)
	}
	return nil
}
