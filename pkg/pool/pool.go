// Package pool manages the folder of auxiliary files (images, sounds,
// stimulus tables) that travels with an experiment.
package pool

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/aretw0/sesame/internal/logging"
)

// ErrNotInPool is returned when a logical name resolves to no file.
var ErrNotInPool = errors.New("file not in pool")

// Pool is a folder of files addressed by logical names relative to it.
type Pool struct {
	folder   string
	fallback string
	owned    bool
	logger   *slog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithFallback sets a folder consulted when a name is not in the pool,
// typically the shared resources folder.
func WithFallback(folder string) Option {
	return func(p *Pool) {
		p.fallback = folder
	}
}

// WithLogger configures a logger for best-effort cleanup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// New opens the pool at folder, creating it if needed. An empty folder
// creates a temporary one that Close removes.
func New(folder string, opts ...Option) (*Pool, error) {
	p := &Pool{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if folder == "" {
		dir, err := os.MkdirTemp("", "sesame-pool-")
		if err != nil {
			return nil, fmt.Errorf("failed to create pool folder: %w", err)
		}
		folder, p.owned = dir, true
	} else if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure pool folder: %w", err)
	}
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, err
	}
	p.folder = abs
	return p, nil
}

// Folder returns the absolute pool folder.
func (p *Pool) Folder() string { return p.folder }

// FallbackFolder returns the fallback folder, or "" when none is set.
func (p *Pool) FallbackFolder() string { return p.fallback }

func (p *Pool) local(name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid pool name %q", name)
	}
	return filepath.Join(p.folder, rel), nil
}

// Path resolves a logical name to an absolute path. The pool folder is
// searched first, then the fallback folder. Existing absolute paths are
// returned unchanged.
func (p *Pool) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotInPool)
	}
	if filepath.IsAbs(name) {
		if isFile(name) {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotInPool, name)
	}
	if path, err := p.local(name); err == nil && isFile(path) {
		return path, nil
	}
	if p.fallback != "" {
		path := filepath.Join(p.fallback, filepath.FromSlash(name))
		if filepath.IsLocal(filepath.FromSlash(name)) && isFile(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotInPool, name)
}

// Contains reports whether name is a file in the pool folder itself.
func (p *Pool) Contains(name string) bool {
	path, err := p.local(name)
	return err == nil && isFile(path)
}

// Add copies src into the pool under name, or under the base name of src
// when name is empty. An existing file is replaced. It returns the logical
// name used.
func (p *Pool) Add(src, name string) (string, error) {
	if name == "" {
		name = filepath.Base(src)
	}
	dst, err := p.local(name)
	if err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create pool file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy into pool: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return filepath.ToSlash(name), nil
}

// Remove deletes name from the pool.
func (p *Pool) Remove(name string) error {
	path, err := p.local(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotInPool, name)
		}
		return err
	}
	return nil
}

// Rename moves a pool file to a new logical name.
func (p *Pool) Rename(old, new string) error {
	from, err := p.local(old)
	if err != nil {
		return err
	}
	to, err := p.local(new)
	if err != nil {
		return err
	}
	if !isFile(from) {
		return fmt.Errorf("%w: %s", ErrNotInPool, old)
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("pool file %q already exists", new)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return err
	}
	return os.Rename(from, to)
}

// Files lists the logical names of every file in the pool, sorted.
// Names in subfolders use forward slashes.
func (p *Pool) Files() ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(p.folder, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pool: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

// Close removes the pool folder when the pool created it. Failures are
// logged, not returned.
func (p *Pool) Close() error {
	if !p.owned {
		return nil
	}
	p.owned = false
	if err := os.RemoveAll(p.folder); err != nil {
		p.logger.Warn("Failed to remove pool folder", "folder", p.folder, "err", err)
	}
	return nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
