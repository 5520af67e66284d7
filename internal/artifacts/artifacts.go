// Package artifacts writes the screenshots and page dumps a run leaves behind.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout is used in timestamped artifact names.
const TimestampLayout = "20060102_150405"

// Fixed-name diagnostics.
const (
	LoginFailed   = "login_failed.png"
	CookieInvalid = "cookie_invalid.png"
	NoButtonFound = "no_button_found.png"
	PageSource    = "page_source.html"
)

// Prefixes for timestamped artifacts.
const (
	TaskResultPrefix  = "task_result"
	FinalResultPrefix = "final_result"
	ErrorPrefix       = "error"
)

// Writer saves artifacts into a single directory.
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a writer for dir. An empty dir means the working directory.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "."
	}
	return &Writer{dir: dir, now: time.Now}
}

// WithClock overrides the clock used for timestamped names.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Timestamped returns "<prefix>_<timestamp><ext>".
func (w *Writer) Timestamped(prefix, ext string) string {
	return fmt.Sprintf("%s_%s%s", prefix, w.now().Format(TimestampLayout), ext)
}

// Save writes data to name inside the output directory and returns its path.
func (w *Writer) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}

	return path, nil
}
