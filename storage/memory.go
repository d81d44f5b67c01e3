package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
)

// MemoryBackend keeps objects in process memory. Used for development and tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{objects: make(map[string][]byte)}
}

func (m *MemoryBackend) Write(ctx context.Context, locator string, r io.Reader) error {
	if err := ValidateLocator(locator); err != nil {
		return err
	}
	data, err := io.ReadAll(contextReader{ctx: ctx, r: r})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[locator] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Read(_ context.Context, locator string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.objects[locator]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryBackend) Exists(_ context.Context, locator string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[locator]
	return ok, nil
}

func (m *MemoryBackend) Delete(_ context.Context, locator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[locator]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, locator)
	return nil
}

func (m *MemoryBackend) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	locators := make([]string, 0, len(m.objects))
	for locator := range m.objects {
		locators = append(locators, locator)
	}
	sort.Strings(locators)
	return locators, nil
}
