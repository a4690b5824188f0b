// Package storage archives uploaded files (subscriber CSV imports) so an
// import can be previewed in one request and committed in a later one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/letteros/letteros/internal/config"
	"github.com/letteros/letteros/internal/pkg/awsconf"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("archived object not found")

// Archive stores opaque blobs by key.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// New builds the archive selected by cfg.Type. profile is the AWS shared
// config profile, empty for the default chain.
func New(ctx context.Context, cfg config.ArchiveConfig, profile string) (Archive, error) {
	switch cfg.Type {
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("archive: s3_bucket is required for s3 archive")
		}
		awsCfg, err := awsconf.Load(ctx, cfg.AWSRegion, profile)
		if err != nil {
			return nil, err
		}
		return NewS3Archive(newS3Client(awsCfg), cfg.S3Bucket, cfg.S3Prefix), nil
	case "", "local":
		return NewLocalArchive(cfg.LocalPath)
	}
	return nil, fmt.Errorf("archive: unknown type %q", cfg.Type)
}

// LocalArchive keeps objects as files under a root directory.
type LocalArchive struct {
	root string
}

// NewLocalArchive creates root if needed.
func NewLocalArchive(root string) (*LocalArchive, error) {
	if root == "" {
		root = "./data/imports"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}
	return &LocalArchive{root: root}, nil
}

func (a *LocalArchive) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("archive: invalid key %q", key)
	}
	return filepath.Join(a.root, clean), nil
}

func (a *LocalArchive) Put(_ context.Context, key string, data []byte, _ string) error {
	p, err := a.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	return os.WriteFile(p, data, 0o600)
}

func (a *LocalArchive) Get(_ context.Context, key string) ([]byte, error) {
	p, err := a.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}
