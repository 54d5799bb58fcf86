// Package log provides the logging backend shared by every component of
// the onion-routing core, based around the go-logging package.
package log

import (
	"io"
	"os"
	"sync"

	logging "gopkg.in/op/go-logging.v1"
)

var (
	once    sync.Once
	backend *Backend
)

// Backend is a leveled logging backend that every package-level logger
// created with GetLogger shares.
type Backend struct {
	logging.LeveledBackend

	mu  sync.RWMutex
	raw logging.LeveledBackend
}

// Init configures the process-wide backend. Calling it more than once is a
// no-op; the first call wins. w defaults to os.Stderr when nil.
func Init(level string, w io.Writer) *Backend {
	once.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		fmtr := logging.MustStringFormatter(
			"%{time:2006-01-02 15:04:05.000} %{level:.4s} %{module}: %{message}",
		)
		base := logging.NewLogBackend(w, "", 0)
		formatted := logging.NewBackendFormatter(base, fmtr)
		leveled := logging.AddModuleLevel(formatted)
		lvl, err := logging.LogLevel(level)
		if err != nil {
			lvl = logging.NOTICE
		}
		leveled.SetLevel(lvl, "")
		backend = &Backend{LeveledBackend: leveled, raw: leveled}
	})
	return backend
}

// GetLogger returns a per-module logger. Init must have been called first;
// if it hasn't, GetLogger lazily initializes a NOTICE-level stderr backend
// so that packages used as libraries (tests, the CLI tools) never need to
// remember to call Init explicitly.
func GetLogger(module string) *logging.Logger {
	if backend == nil {
		Init("NOTICE", nil)
	}
	l := logging.MustGetLogger(module)
	backend.mu.RLock()
	l.SetBackend(backend.raw)
	backend.mu.RUnlock()
	return l
}

// TruncatePeerID truncates a hex-encoded peer identity to 8 characters for
// non-debug log lines, per the propagation policy that forbids logging a
// full peer id outside debug level.
func TruncatePeerID(hexID string) string {
	if len(hexID) <= 8 {
		return hexID
	}
	return hexID[:8]
}
