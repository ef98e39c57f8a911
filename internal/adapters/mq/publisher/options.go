package publisher

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Defaults for the NATS publisher.
const (
	DefaultSubjectPrefix = "bingo.events"
	DefaultMaxReconnects = -1
	DefaultReconnectWait = 2 * time.Second
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithSubjectPrefix sets the subject prefix; events go to
// <prefix>.game.<n>.<kind>.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithSessionID tags every event with the publishing session.
func WithSessionID(id string) Option {
	return func(p *Publisher) {
		if id != "" {
			p.session = id
		}
	}
}

// WithClock sets the clock used for envelope timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger sets the publisher logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.log = l
		}
	}
}
