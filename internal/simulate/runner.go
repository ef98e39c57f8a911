package simulate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/httpclient"
	service "github.com/dickhery/Blockchain-Bingo-on-ICP/internal/app"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/card"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/winclaim"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

type player struct {
	who     model.Identity
	backend *httpclient.Client
	card    card.Card
	marks   card.Marks
	claim   *winclaim.Flow
}

// mark daubs n if it is on the card.
func (p *player) mark(n int) {
	for i, v := range p.card {
		if v == n && i != card.Center {
			p.marks[i] = true
		}
	}
}

// Run plays one game and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Players <= 0 || config.Host == "" {
		return nil, fmt.Errorf("%w: need a host and at least one player", ErrBadConfig)
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: config.Clock.Now()}

	log.Info(ctx, "starting game simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("host", config.Host),
		logger.Int("players", config.Players),
		logger.String("winType", config.WinType.String()))

	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	host := newClient(config, model.Identity(config.Host))
	id, _, err := service.CreateGame(ctx, host, service.GameForm{
		Name:           "Simulation " + config.Clock.Now().Format("15:04:05"),
		ScheduledStart: config.Clock.Now(),
		WinType:        config.WinType,
		HostPercentage: "10",
	})
	if err != nil {
		return stats, fmt.Errorf("create game: %w", err)
	}
	stats.Game = id
	log.Info(ctx, "game created", logger.GameID(id))

	players, err := seat(ctx, config, id, stats)
	if err != nil {
		return stats, err
	}

	if err := host.StartGame(ctx, id); err != nil {
		return stats, fmt.Errorf("start game: %w", err)
	}

	winner, err := play(ctx, config, host, id, players, stats)
	if err != nil {
		return stats, err
	}
	stats.Winner = winner.who

	if err := claim(ctx, config, id, winner, stats); err != nil {
		return stats, err
	}

	stats.EndTime = config.Clock.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

func newClient(config *Config, who model.Identity) *httpclient.Client {
	opts := []httpclient.Option{httpclient.WithClock(config.Clock)}
	if config.Timeout > 0 {
		opts = append(opts, httpclient.WithHTTPClient(&http.Client{Timeout: config.Timeout}))
	}
	return httpclient.New(config.BaseURL, who, opts...)
}

// checkServiceHealth verifies the backend answers /healthz.
func checkServiceHealth(ctx context.Context, config *Config) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(config.BaseURL, "/")+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := (&http.Client{Timeout: config.Timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// registrarOptions points player payments at the configured accounts.
func registrarOptions(config *Config) []service.RegistrarOption {
	var opts []service.RegistrarOption
	if config.ServiceFeeAccount != "" {
		opts = append(opts, service.WithServiceFeeAccount(model.Identity(config.ServiceFeeAccount)))
	}
	if config.GameAccount != "" {
		opts = append(opts, service.WithGameAccount(model.Identity(config.GameAccount)))
	}
	if config.Timeout > 0 {
		opts = append(opts, service.WithRegistrarTimeout(config.Timeout))
	}
	return opts
}

// seat registers every player and deals their cards concurrently.
func seat(ctx context.Context, config *Config, id uint64, stats *Stats) ([]*player, error) {
	host := newClient(config, model.Identity(config.Host))
	games, err := host.GetActiveGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	var summary model.GameSummary
	for _, g := range games {
		if g.GameNumber == id {
			summary = g
		}
	}

	players := make([]*player, config.Players)
	g, gctx := errgroup.WithContext(ctx)
	for i := range players {
		who := model.Identity("player-" + strconv.Itoa(i+1))
		c := newClient(config, who)
		p := &player{who: who, backend: c, claim: winclaim.New(id, who, c)}
		p.marks[card.Center] = true
		players[i] = p

		g.Go(func() error {
			reg := service.NewRegistrar(c, nil, who, registrarOptions(config)...)
			if _, err := reg.Register(gctx, summary, ""); err != nil {
				return fmt.Errorf("register %s: %w", who, err)
			}
			cells, err := c.GenerateCard(gctx, id)
			if err != nil {
				return fmt.Errorf("card for %s: %w", who, err)
			}
			if p.card, err = card.FromSlice(cells); err != nil {
				return fmt.Errorf("card for %s: %w", who, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.Registrations = len(players)
	stats.Cards = len(players)
	return players, nil
}

// play draws until a player's card wins and the backend confirms it.
func play(ctx context.Context, config *Config, host *httpclient.Client, id uint64, players []*player, stats *Stats) (*player, error) {
	log := logger.Get().Named("simulate")
	var called []int
	for {
		if err := host.DrawNextNumber(ctx, id); err != nil {
			if model.IsGameOver(err) {
				return nil, ErrNoWinner
			}
			return nil, fmt.Errorf("draw: %w", err)
		}
		stats.Draws++
		n, ok, err := host.GetLatestNumber(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("latest number: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: no latest number after a draw", ErrMismatch)
		}
		called = append(called, n)
		if config.Verbose {
			log.Info(ctx, "number called", logger.GameID(id), logger.String("number", card.Label(n)))
		}

		for _, p := range players {
			p.mark(n)
			if !card.Wins(p.card, p.marks, called, config.WinType) {
				continue
			}
			stats.WinChecks++
			st, err := p.claim.CheckWin(ctx, p.marks.Slice())
			if err != nil {
				return nil, fmt.Errorf("check win for %s: %w", p.who, err)
			}
			if st == winclaim.Won {
				log.Info(ctx, "bingo", logger.GameID(id), logger.String("winner", string(p.who)),
					logger.Int("draws", stats.Draws))
				return p, nil
			}
		}

		if config.DrawInterval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-config.Clock.After(config.DrawInterval):
			}
		}
	}
}

// claim distributes the winnings and checks the backend agrees on the winner.
func claim(ctx context.Context, config *Config, id uint64, winner *player, stats *Stats) error {
	snap, err := service.FetchSnapshot(ctx, winner.backend, id, config.Clock.Now())
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if snap == nil || !snap.IsWinner(winner.who) {
		return fmt.Errorf("%w: %s is not the recorded winner", ErrMismatch, winner.who)
	}
	if err := winner.claim.ClaimWinnings(ctx, snap); err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	stats.Claimed = true
	return nil
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Named("simulate").Info(ctx, "final statistics",
		logger.GameID(stats.Game),
		logger.Int("registrations", stats.Registrations),
		logger.Int("cards", stats.Cards),
		logger.Int("draws", stats.Draws),
		logger.Int("winChecks", stats.WinChecks),
		logger.String("winner", string(stats.Winner)),
		logger.Bool("claimed", stats.Claimed),
		logger.Duration("duration", stats.Duration))
}
