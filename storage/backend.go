// Package storage holds the byte stores that ciphertext containers are written to.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// ErrObjectNotFound is returned when no object exists under a locator.
var ErrObjectNotFound = errors.New("storage object not found")

// ErrInvalidLocator is returned for locators that could escape the store.
var ErrInvalidLocator = errors.New("invalid storage locator")

var locatorPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// Backend is a durable blob store keyed by opaque locators.
//
// Write must be atomic with respect to Read and Exists: a write that fails or
// is cancelled part way never leaves a readable object behind.
type Backend interface {
	Write(ctx context.Context, locator string, r io.Reader) error
	Read(ctx context.Context, locator string) (io.ReadCloser, error)
	Exists(ctx context.Context, locator string) (bool, error)
	Delete(ctx context.Context, locator string) error
	List(ctx context.Context) ([]string, error)
}

// ValidateLocator rejects empty locators and anything containing path separators.
func ValidateLocator(locator string) error {
	if !locatorPattern.MatchString(locator) {
		return fmt.Errorf("%w: %q", ErrInvalidLocator, locator)
	}
	return nil
}
