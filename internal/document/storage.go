package document

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage holds document photos. Paths handed back by Save are relative
// to the store and are what gets persisted on the Document.
type Storage interface {
	// Save writes a photo and returns its storage path.
	Save(filename string, data []byte) (string, error)

	// Get reads a photo by storage path.
	Get(path string) ([]byte, error)

	// Delete removes a photo.
	Delete(path string) error
}

// LocalStorage keeps photos as plain files under a base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes a photo and returns its storage path.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	full := filepath.Join(l.basePath, filename)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("creating photo directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return filename, nil
}

// Get reads a photo by storage path.
func (l *LocalStorage) Get(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, path))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	return data, nil
}

// Delete removes a photo.
func (l *LocalStorage) Delete(path string) error {
	if err := os.Remove(filepath.Join(l.basePath, path)); err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}
