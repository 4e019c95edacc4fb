package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage persists the serialized auth cache. Load returns (nil, nil) when
// nothing is stored.
type Storage interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Clear() error
}

// MemoryStorage keeps the cache in process.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStorage returns an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns a copy of the stored bytes, or nil when empty.
func (m *MemoryStorage) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

// Save replaces the stored bytes with a copy of data.
func (m *MemoryStorage) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

// Clear drops the stored bytes.
func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// FileStorage keeps the cache in a single file, replaced atomically on save.
type FileStorage struct {
	path string
}

// NewFileStorage stores the cache at path. The directory must exist.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the cache file. A missing file reads as empty.
func (f *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save writes data to a temporary file in the same directory, restricts it
// to the owner, and renames it over the cache file.
func (f *FileStorage) Save(data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".tgauth-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// Clear removes the cache file. Removing a missing file is not an error.
func (f *FileStorage) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
