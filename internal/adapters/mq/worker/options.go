package worker

import (
	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName sets the loop name for identification and logging.
func WithName(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(logger logger.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock replaces the real clock, typically with a fake one in tests.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loop) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithBufferSize sets the task queue buffer.
func WithBufferSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.bufferSize = n
		}
	}
}
