package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Dir is the log directory, relative to the base dir
const Dir = "log"

// FileName returns the log file name for a run stamp (ddmmyyyy)
func FileName(stamp string) string {
	return fmt.Sprintf("cboe-options-%s.log", stamp)
}

// Path returns the log file path for a run stamp under baseDir
func Path(baseDir, stamp string) string {
	return filepath.Join(baseDir, Dir, FileName(stamp))
}

// Run is an open run log
type Run struct {
	Logger *slog.Logger
	Path   string
	file   afero.File
}

// Close flushes and closes the underlying file
func (r *Run) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Open creates the log directory if needed and opens the run's log file for
// appending. When mirror is non-nil every line is also written there.
func Open(fs afero.Fs, baseDir, stamp string, level slog.Leveler, mirror io.Writer) (*Run, error) {
	if err := fs.MkdirAll(filepath.Join(baseDir, Dir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := Path(baseDir, stamp)
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var w io.Writer = f
	if mirror != nil {
		w = io.MultiWriter(f, mirror)
	}

	return &Run{
		Logger: slog.New(NewHandler(w, level)),
		Path:   path,
		file:   f,
	}, nil
}
