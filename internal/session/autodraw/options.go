package autodraw

import (
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// DefaultInterval is the delay between a finished draw and the next one.
const DefaultInterval = 7 * time.Second

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the draw cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWarningHandler receives automatic draw failures that are not
// game-over. Manual draws report through their done callback.
func WithWarningHandler(fn func(error)) Option {
	return func(s *Scheduler) {
		s.onWarning = fn
	}
}

// WithDrawnHandler runs on the loop after every draw response that may
// have changed remote state, typically to refresh the snapshot.
func WithDrawnHandler(fn func()) Option {
	return func(s *Scheduler) {
		s.onDrawn = fn
	}
}

// WithStoppedHandler runs on the loop when a game-over draw response
// returns the scheduler to Idle, before the drawn handler.
func WithStoppedHandler(fn func(error)) Option {
	return func(s *Scheduler) {
		s.onStopped = fn
	}
}

// WithGameLabel names the game in logs and metrics.
func WithGameLabel(label string) Option {
	return func(s *Scheduler) {
		if label != "" {
			s.label = label
		}
	}
}
