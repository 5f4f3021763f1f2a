package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Store caches rendered post HTML on disk, keyed by slug.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the cache file path for a post slug.
func (s *Store) Path(slug string) string {
	hash := generateHash(slug)
	shortHash := hash[:16]
	return filepath.Join(s.root, fmt.Sprintf("%s_%s.html", slug, shortHash))
}

// generateHash generates an xxHash hash for the given string
func generateHash(v string) string {
	hash := xxhash.Sum64String(v)
	// Convert uint64 to hex string
	return fmt.Sprintf("%016x", hash)
}

// Write stores HTML content for a slug.
func (s *Store) Write(slug, html string) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.Path(slug), []byte(html), 0644)
}

// Read returns cached HTML if it exists and is not older than maxAge.
func (s *Store) Read(slug string, maxAge time.Duration) (string, bool) {
	cachePath := s.Path(slug)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// Clear removes the cache file for a slug. Missing files are not an error.
func (s *Store) Clear(slug string) error {
	err := os.Remove(s.Path(slug))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
