package service

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/election"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Session defaults.
const (
	DefaultPollInterval     = 3 * time.Second
	DefaultLobbyInterval    = 10 * time.Second
	DefaultAutoDrawInterval = 7 * time.Second
	DefaultRequestTimeout   = 10 * time.Second
	DefaultStaleAfter       = election.DefaultStaleAfter
)

// EventSink receives trigger events, for example a message bus publisher.
type EventSink interface {
	Publish(ev model.Event) error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSessionID fixes the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithPollInterval sets the game state refresh interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithRequestTimeout bounds every backend call made by the session.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithFailureThreshold sets how many consecutive poll failures are tolerated
// before the user is told.
func WithFailureThreshold(n int) Option {
	return func(s *Session) {
		if n >= 0 {
			s.failureThreshold = n
		}
	}
}

// WithMaxBackoff caps the poll retry delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.maxBackoff = d
		}
	}
}

// WithAutoDrawInterval sets the delay between automatic draws.
func WithAutoDrawInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.drawInterval = d
		}
	}
}

// WithStaleAfter sets how long after the scheduled start a host is
// considered stale.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithAutoDraw switches automatic drawing on whenever the local user hosts a
// drawable game.
func WithAutoDraw(on bool) Option {
	return func(s *Session) {
		s.wantAuto = on
	}
}

// WithEventSink forwards every trigger event to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithEventHandler registers fn for trigger events. It runs on the session
// loop and must not block or call back into the session.
func WithEventHandler(fn func(model.Event)) Option {
	return func(s *Session) {
		s.onEvent = fn
	}
}

// WithNoticeHandler registers fn for background notices such as a started
// game or a failing poll. It runs on the session loop and must not block
// or call back into the session.
func WithNoticeHandler(fn func(Notice)) Option {
	return func(s *Session) {
		s.onNotice = fn
	}
}
