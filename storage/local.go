package storage

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

const tempPrefix = ".partial-"

// LocalBackend stores objects as files in a single directory.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates root if needed and returns a backend rooted there.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalBackend{root: root}, nil
}

func (b *LocalBackend) path(locator string) (string, error) {
	if err := ValidateLocator(locator); err != nil {
		return "", err
	}
	return filepath.Join(b.root, locator), nil
}

// Write streams r into a temp file next to the target and renames it into
// place once everything has been flushed to disk.
func (b *LocalBackend) Write(ctx context.Context, locator string, r io.Reader) (err error) {
	target, err := b.path(locator)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", locator, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", locator, err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("publish %s: %w", locator, err)
	}
	return nil
}

func (b *LocalBackend) Read(_ context.Context, locator string) (io.ReadCloser, error) {
	p, err := b.path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (b *LocalBackend) Exists(_ context.Context, locator string) (bool, error) {
	p, err := b.path(locator)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (b *LocalBackend) Delete(_ context.Context, locator string) error {
	p, err := b.path(locator)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	return err
}

// List returns every published locator; in-flight temp files are skipped.
func (b *LocalBackend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, err
	}
	locators := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		locators = append(locators, entry.Name())
	}
	return locators, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
