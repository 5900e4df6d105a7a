// Package logging wraps charmbracelet/log into the process-wide logger
// used by every other package, plus an ErrorChain helper mirroring the
// original implementation's AnyhowErrorToStringChain: each error in a Go
// error chain is rendered as its own " -> "-joined segment so a single
// log line shows the full failure path. Each segment is that error's full
// Error() text, which for fmt.Errorf("...: %w") wrappers also contains
// the text of the errors it wraps.
package logging

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	current = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
	})
)

// Logger returns the current process-wide logger. Safe for concurrent use.
func Logger() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Reload swaps the logger's output sink, mirroring the original's
// RELOAD_FN/GUARD pair that lets the file sink be replaced when the
// configured download directory changes mid-run.
func Reload(w io.Writer, level log.Level) {
	mu.Lock()
	defer mu.Unlock()
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
	})
	l.SetLevel(level)
	current = l
}

// ErrorChain renders err and every error it wraps as a " -> "-joined
// string, so the root cause is never lost behind a generic top-level
// message.
func ErrorChain(err error) string {
	if err == nil {
		return ""
	}
	var segments []string
	for err != nil {
		segments = append(segments, err.Error())
		err = errors.Unwrap(err)
	}
	return strings.Join(segments, " -> ")
}
