// Package simulate plays a complete game against a running backend over
// HTTP: one host, a set of players, draws until someone wins, then the
// winner claims.
package simulate

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// Config holds configuration for a simulated game.
type Config struct {
	BaseURL      string        // Base URL of the backend
	Host         string        // Host principal
	Players      int           // Number of registered players
	WinType      model.WinType // Winning pattern
	DrawInterval time.Duration // Pause between draws
	Timeout      time.Duration // Per-request timeout
	Verbose      bool          // Log every draw
	Clock        clockwork.Clock

	// Registration accounts; empty keeps the registrar defaults.
	ServiceFeeAccount string
	GameAccount       string
}

// Stats holds simulation statistics.
type Stats struct {
	Game          uint64
	Registrations int
	Cards         int
	Draws         int
	WinChecks     int
	Winner        model.Identity
	Claimed       bool
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
