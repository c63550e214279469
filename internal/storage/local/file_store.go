// Package local implements the local filesystem download destination.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local file store.
type Config struct {
	// BaseDir is the directory downloaded files are written to.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// FileStore reads and writes downloaded files in a single directory.
type FileStore struct {
	baseDir string
}

// New creates the base directory if needed and checks it is writable.
func New(cfg Config) (*FileStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &FileStore{baseDir: cfg.BaseDir}, nil
}

// Dir returns the base directory.
func (s *FileStore) Dir() string {
	return s.baseDir
}

// Exists reports whether name is already present in the base directory.
func (s *FileStore) Exists(name string) (bool, error) {
	full, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
	return true, nil
}

// Save streams r into name. Data goes to a temporary file first and is
// renamed into place only once fully written.
func (s *FileStore) Save(ctx context.Context, name string, r io.Reader) (int64, error) {
	full, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context canceled: %w", err)
	}
	tmp, err := os.CreateTemp(s.baseDir, "."+name+".*.part")
	if err != nil {
		return 0, fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort removal of partial file
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		cleanup()
		return written, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return written, fmt.Errorf("close %s: %w", name, err)
	}
	// #nosec G302 -- downloaded documents are meant to be readable by other tools.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return written, fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		cleanup()
		return written, fmt.Errorf("rename %s: %w", name, err)
	}
	return written, nil
}

// Open opens name for reading.
func (s *FileStore) Open(name string) (io.ReadCloser, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	// #nosec G304 -- path is confined to the base directory by resolve.
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// resolve joins name onto the base directory and rejects anything that
// would escape it.
func (s *FileStore) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	cleanBaseDir := filepath.Clean(s.baseDir)
	cleanFullPath := filepath.Clean(filepath.Join(s.baseDir, name))
	if !strings.HasPrefix(cleanFullPath, cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return cleanFullPath, nil
}
