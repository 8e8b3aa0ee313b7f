// Package storage persists fetched options chains as per-variation JSON
// artifacts and reports what is on disk.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"optionsfetcher/internal/calendar"
	"optionsfetcher/internal/fetcher"
)

// OptionsDir is the artifact root, relative to the base dir
var OptionsDir = filepath.Join("hub", "options")

// ErrInvalidVariation is the cause of a PersistenceError for a variation
// that cannot name a directory of its own
var ErrInvalidVariation = errors.New("invalid variation name")

// PersistenceError wraps a failure to create a directory or write an artifact
type PersistenceError struct {
	Path  string
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}

// Stats summarizes the artifact tree
type Stats struct {
	// Symbols is the number of variation directories
	Symbols int
	// Files is the number of JSON artifacts across all variation directories
	Files int
}

// Store writes artifacts under baseDir. Each variation owns its own
// directory, so concurrent saves of different variations never collide.
type Store struct {
	fs      afero.Fs
	baseDir string
}

// New creates a new Store
func New(fs afero.Fs, baseDir string) *Store {
	return &Store{fs: fs, baseDir: baseDir}
}

// FileName returns the artifact file name for a variation and quote date
func FileName(variation string, quoteDate time.Time) string {
	return fmt.Sprintf("options-chain-%s-%s.json", variation, calendar.Format(quoteDate))
}

// ArtifactPath returns where Save writes the artifact for variation and quoteDate
func (s *Store) ArtifactPath(variation string, quoteDate time.Time) string {
	return filepath.Join(s.baseDir, OptionsDir, variation, FileName(variation, quoteDate))
}

// Save serializes doc to the variation's artifact for quoteDate, replacing
// any previous content. The returned path is the file written.
func (s *Store) Save(variation string, doc fetcher.Document, quoteDate time.Time) (string, error) {
	if err := ValidateVariation(variation); err != nil {
		return "", &PersistenceError{Path: variation, Op: "validate", Cause: err}
	}

	dir := filepath.Join(s.baseDir, OptionsDir, variation)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", &PersistenceError{Path: dir, Op: "mkdir", Cause: err}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", &PersistenceError{Path: dir, Op: "encode", Cause: err}
	}

	path := s.ArtifactPath(variation, quoteDate)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", &PersistenceError{Path: path, Op: "write", Cause: err}
	}

	return path, nil
}

// ValidateVariation rejects names that would resolve outside their own
// directory under OptionsDir
func ValidateVariation(variation string) error {
	switch {
	case variation == "", variation == ".":
		return fmt.Errorf("%w: %q", ErrInvalidVariation, variation)
	case strings.Contains(variation, ".."), strings.ContainsAny(variation, `/\`+"\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidVariation, variation)
	}
	return nil
}

// Rel returns path relative to the base dir, or path itself when it lies elsewhere
func (s *Store) Rel(path string) string {
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// Stats enumerates the artifact tree. A tree that does not exist yet counts as empty.
func (s *Store) Stats() (Stats, error) {
	root := filepath.Join(s.baseDir, OptionsDir)

	entries, err := afero.ReadDir(s.fs, root)
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("failed to list %s: %w", root, err)
	}

	var stats Stats
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stats.Symbols++
	}

	files, err := afero.Glob(s.fs, filepath.Join(root, "*", "*.json"))
	if err != nil {
		return Stats{}, fmt.Errorf("failed to glob artifacts: %w", err)
	}
	stats.Files = len(files)

	return stats, nil
}
