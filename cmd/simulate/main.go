package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/config"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/simulate"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 8
	defaultTimeout     = 10 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the backend")
		host     = flag.String("host", "sim-host", "Host principal")
		players  = flag.Int("players", defaultPlayers, "Number of players to seat")
		blackout = flag.Bool("blackout", false, "Play for a full card instead of a line")
		interval = flag.Duration("interval", 0, "Pause between draws")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		format   = flag.String("log-format", "text", "Log format: text or json")
		verbose  = flag.Bool("verbose", false, "Log every draw")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	sim := &simulate.Config{
		BaseURL:           *baseURL,
		Host:              *host,
		Players:           *players,
		WinType:           model.WinStandard,
		DrawInterval:      *interval,
		Timeout:           *timeout,
		Verbose:           *verbose,
		ServiceFeeAccount: cfg.ServiceFeeAccount,
		GameAccount:       cfg.GameAccount,
	}
	if *blackout {
		sim.WinType = model.WinBlackout
	}

	if _, err := simulate.Run(ctx, sim); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		return
	}
}
