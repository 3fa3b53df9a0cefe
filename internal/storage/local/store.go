// Package local writes debug artifacts, such as page screenshots, to a
// directory on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local artifact store.
type Config struct {
	// Dir is the directory artifacts are written to. It is created if missing.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Store writes artifacts below a single directory.
type Store struct {
	dir string
}

// New creates the store, making sure Dir exists and is writable.
func New(cfg Config) (*Store, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}

	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create artifact directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat artifact directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("artifact path %s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("artifact directory is not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	if err := os.Remove(name); err != nil {
		return nil, fmt.Errorf("clean up write probe: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory artifacts are written to.
func (s *Store) Dir() string {
	return s.dir
}

// PutObject writes data to name inside the store and returns a file:// URI.
// The content type is accepted for interface parity with remote stores.
func (s *Store) PutObject(ctx context.Context, name, _ string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("artifact name is required")
	}

	base := filepath.Clean(s.dir)
	full := filepath.Clean(filepath.Join(base, name))
	if !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact name %q escapes the store", name)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	// #nosec G304 -- full is confined to the store directory above.
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return "file://" + full, nil
}
