package poller

import (
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Default polling cadence.
const (
	DefaultInterval         = 3 * time.Second
	DefaultTimeout          = 5 * time.Second
	DefaultFailureThreshold = 5
	DefaultMaxBackoff       = time.Minute
)

type settings struct {
	name             string
	interval         time.Duration
	timeout          time.Duration
	failureThreshold int
	maxBackoff       time.Duration
	onFailure        FailureFunc
	log              logger.Logger
}

func defaultSettings() settings {
	return settings{
		name:             "poller",
		interval:         DefaultInterval,
		timeout:          DefaultTimeout,
		failureThreshold: DefaultFailureThreshold,
		maxBackoff:       DefaultMaxBackoff,
	}
}

// Option configures a Poller.
type Option func(*settings)

// WithName labels the poller in logs and metrics.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithInterval sets the delay between a completed fetch and the next one.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTimeout bounds a single fetch; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithFailureThreshold sets how many consecutive failures trigger the
// persistent-failure notice and backoff; zero disables both.
func WithFailureThreshold(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.failureThreshold = n
		}
	}
}

// WithMaxBackoff caps the backoff delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.maxBackoff = d
		}
	}
}

// WithFailureHandler is told once per failure streak that reaches the threshold.
func WithFailureHandler(fn FailureFunc) Option {
	return func(s *settings) {
		s.onFailure = fn
	}
}

// WithLogger sets the poller logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
