// Package storage publishes finished bundles to their destination.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local moves bundles into place on the local filesystem. The destination
// either holds the previous file or the new bundle, never a partial one.
type Local struct{}

// Publish implements bundle.Publisher.
func (Local) Publish(ctx context.Context, localPath, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Rename(localPath, dest); err == nil {
		return nil
	}
	// Different filesystem: copy next to dest, then rename over it.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+"-*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	src, err := os.Open(localPath)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("open bundle: %w", err)
	}
	_, err = io.Copy(tmp, src)
	src.Close()
	if err != nil {
		tmp.Close()
		return fmt.Errorf("copy bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// Router picks the S3 publisher for s3:// destinations and Local otherwise.
type Router struct {
	Local Local
	// S3 is created lazily; nil means s3:// destinations are rejected.
	S3 func(ctx context.Context) (*S3Publisher, error)
}

// Publish implements bundle.Publisher.
func (r Router) Publish(ctx context.Context, localPath, dest string) error {
	if !IsS3(dest) {
		return r.Local.Publish(ctx, localPath, dest)
	}
	if r.S3 == nil {
		return fmt.Errorf("%w: s3 publishing not configured", ErrNotS3)
	}
	p, err := r.S3(ctx)
	if err != nil {
		return err
	}
	return p.Publish(ctx, localPath, dest)
}

// IsS3 reports whether dest is an s3:// URL.
func IsS3(dest string) bool { return strings.HasPrefix(dest, "s3://") }
