package symbols

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Cache is the local flat-file copy of the last successfully resolved list
type Cache struct {
	fs   afero.Fs
	path string
}

// NewCache creates a cache backed by path on fs
func NewCache(fs afero.Fs, path string) *Cache {
	return &Cache{fs: fs, path: path}
}

// Path returns the cache file location
func (c *Cache) Path() string {
	return c.path
}

// Read returns the cached symbols in file order
func (c *Cache) Read() ([]string, error) {
	data, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol cache %s: %w", c.path, err)
	}
	return ParseList(string(data)), nil
}

// Write replaces the cache contents with symbols
func (c *Cache) Write(symbols []string) error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create symbol cache directory: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.path, []byte(JoinList(symbols)), 0o644); err != nil {
		return fmt.Errorf("failed to write symbol cache %s: %w", c.path, err)
	}
	return nil
}
