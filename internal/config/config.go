// Package config defines the process configuration and its loading.
//
// Durations are configured in milliseconds and exposed as time.Duration by
// accessor methods.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// BackendURL is the root of the game backend API.
	BackendURL string `koanf:"backend_url"`

	// Identity is the principal the session acts as. Empty means anonymous.
	Identity string `koanf:"identity"`

	// GameID selects the game to follow; zero watches the lobby only.
	GameID uint64 `koanf:"game_id"`

	// AutoDraw enables the auto-draw timer when the local user hosts.
	AutoDraw bool `koanf:"auto_draw"`

	PollIntervalMS     int `koanf:"poll_interval_ms"`
	ListPollIntervalMS int `koanf:"list_poll_interval_ms"`
	AutoDrawIntervalMS int `koanf:"auto_draw_interval_ms"`
	RequestTimeoutMS   int `koanf:"request_timeout_ms"`
	HostStaleAfterMS   int `koanf:"host_stale_after_ms"`

	// PollFailureThreshold is the number of consecutive poll failures that
	// raises a notice and starts backing off.
	PollFailureThreshold int `koanf:"poll_failure_threshold"`
	PollMaxBackoffMS     int `koanf:"poll_max_backoff_ms"`

	// ServiceFeeAccount receives the registration service fee.
	ServiceFeeAccount string `koanf:"service_fee_account"`

	// GameAccount receives the net registration amount.
	GameAccount string `koanf:"game_account"`

	// MetricsAddr serves /metrics for the client daemon; empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// ListenAddr is the fake backend listen address.
	ListenAddr string `koanf:"listen_addr"`

	// NATSURL enables event publishing when set.
	NATSURL           string `koanf:"nats_url"`
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	// DedupeSize bounds the fake backend's request-ID cache.
	DedupeSize int `koanf:"dedupe_size"`
}

// New returns a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "json",
		BackendURL:           "http://localhost:9080",
		PollIntervalMS:       3_000,
		ListPollIntervalMS:   10_000,
		AutoDrawIntervalMS:   7_000,
		RequestTimeoutMS:     5_000,
		HostStaleAfterMS:     300_000,
		PollFailureThreshold: 5,
		PollMaxBackoffMS:     60_000,
		ServiceFeeAccount:    "bingo-service-fee",
		GameAccount:          "bingo-backend",
		MetricsAddr:          ":9091",
		ListenAddr:           ":9080",
		NATSSubjectPrefix:    "bingo.events",
		DedupeSize:           10_000,
	}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) PollInterval() time.Duration     { return ms(c.PollIntervalMS) }
func (c *Config) ListPollInterval() time.Duration { return ms(c.ListPollIntervalMS) }
func (c *Config) AutoDrawInterval() time.Duration { return ms(c.AutoDrawIntervalMS) }
func (c *Config) RequestTimeout() time.Duration   { return ms(c.RequestTimeoutMS) }
func (c *Config) HostStaleAfter() time.Duration   { return ms(c.HostStaleAfterMS) }
func (c *Config) PollMaxBackoff() time.Duration   { return ms(c.PollMaxBackoffMS) }
