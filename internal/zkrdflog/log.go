// Package zkrdflog provides the package-wide logger used across zkrdf.
//
// The core is stateless and synchronous (see SPEC_FULL.md §A), so there is
// a single process-wide sink rather than a request-scoped logger threaded
// through call chains — mirroring gnark's own internal/logger package.
package zkrdflog

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(zerolog.InfoLevel)
)

// Logger returns the current package-wide logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// SetOutput redirects the logger to w, preserving the current level.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Output(w)
}

// SetLevel changes the minimum level emitted by the logger.
func SetLevel(lvl zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	log = log.Level(lvl)
}

// Named returns a sub-logger tagged with a component name, so log lines can
// be filtered by origin. The top-level package uses "zkrdf" and the CLI
// "cmd"; the pipeline packages do not log.
func Named(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}
