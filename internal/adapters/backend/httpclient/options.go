package httpclient

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Defaults for backend calls.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetries    = 2
	DefaultRetryDelay = 250 * time.Millisecond
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetries sets how many times a failed call is resent with the same
// request ID. Transport errors, 5xx responses and in-flight
// rejections are retried.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithRetryDelay sets the pause before each retry.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithClock sets the clock used for retry pauses.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}
