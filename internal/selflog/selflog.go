// Package selflog is the out-of-band diagnostic channel used by sinks to report
// their own failures. It is disabled until Enable is called and is kept apart
// from the application's log stream so a failing sink cannot feed itself.
package selflog

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// Enable routes diagnostics to w. A nil writer disables the channel.
func Enable(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if w == nil {
		logger = zerolog.Nop()
		return
	}
	logger = zerolog.New(zerolog.SyncWriter(w)).With().Timestamp().Logger()
}

func Disable() {
	Enable(nil)
}

// Printf writes one diagnostic line.
func Printf(format string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	l.Warn().Msgf(format, args...)
}
