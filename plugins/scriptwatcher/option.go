package scriptwatcher

import (
	"time"

	"github.com/bft-labs/timelinewatch/pkg/log"
)

// Config holds configuration options for the script watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Logger receives reload and watcher errors. Default: no-op.
	Logger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}
