// Package memory is an in-memory authoritative bingo backend.
//
// Store keeps every game and enforces the same rules the remote service
// does: only the host draws and starts, takeovers follow the staleness
// window, cards require payment, and the winner collects once. Client binds
// a caller identity to the store and implements model.Backend.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/ledger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/card"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/election"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

type game struct {
	id           uint64
	name         string
	host         model.Identity
	scheduledMs  int64
	startMs      *int64
	lastDrawMs   *int64
	hostAssigned int64
	priceE8s     uint64
	hostBP       int
	winType      model.WinType
	password     *string

	inProgress bool
	completed  bool
	winner     *model.Identity
	prizePaid  bool
	called     []int
	deck       []int

	cards map[model.Identity]card.Card
	paid  map[model.Identity]bool
}

// Store is the authoritative game state.
type Store struct {
	clock      clockwork.Clock
	ledger     *ledger.Book
	account    model.Identity
	staleAfter time.Duration
	log        logger.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	nextID    uint64
	games     map[uint64]*game
	usernames map[model.Identity]string
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:      clockwork.NewRealClock(),
		account:    DefaultGameAccount,
		staleAfter: election.DefaultStaleAfter,
		games:      make(map[uint64]*game),
		usernames:  make(map[model.Identity]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.log == nil {
		s.log = logger.Get().Named("backend")
	}
	return s
}

// GameAccount returns the account entry payments are sent to.
func (s *Store) GameAccount() model.Identity { return s.account }

// SetUsername records a display name.
func (s *Store) SetUsername(who model.Identity, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernames[who] = name
}

func (s *Store) nowMs() int64 { return s.clock.Now().UnixMilli() }

func (s *Store) get(id uint64) (*game, error) {
	g, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", id, model.ErrGameNotFound)
	}
	return g, nil
}

func (s *Store) winnerOf(g *game) *model.Winner {
	if g.winner == nil {
		return nil
	}
	return &model.Winner{AccountID: *g.winner, DisplayName: s.usernames[*g.winner]}
}

func (s *Store) summary(g *game) model.GameSummary {
	assigned := g.hostAssigned
	return model.GameSummary{
		GameNumber:                g.id,
		GameName:                  g.name,
		HostPrincipalID:           g.host,
		ScheduledStartTimeMs:      g.scheduledMs,
		StartTimeMs:               g.startMs,
		LastDrawTimeMs:            g.lastDrawMs,
		HostAssignedTimeMs:        &assigned,
		PriceE8s:                  g.priceE8s,
		HostPercentageBasisPoints: g.hostBP,
		CardCount:                 uint64(len(g.cards)),
		InProgress:                g.inProgress,
		Completed:                 g.completed,
		Winner:                    s.winnerOf(g),
		WinType:                   g.winType,
		CalledNumbers:             g.called,
		PasswordProtected:         g.password != nil,
	}
}

func (s *Store) snapshot(g *game) *model.Snapshot {
	sum := s.summary(g)
	return model.NewSnapshot(sum, model.Fields{
		InProgress:      g.inProgress,
		Winner:          sum.Winner,
		CalledNumbers:   g.called,
		WinType:         g.winType,
		CardCount:       sum.CardCount,
		AllNumbersDrawn: len(g.deck) == 0,
	}, s.clock.Now())
}

func (s *Store) createGame(ctx context.Context, who model.Identity, req model.CreateGameRequest) (uint64, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case who == model.Anonymous:
		return 0, model.ErrUnauthorized
	case name == "":
		return 0, fmt.Errorf("%w: game name is required", model.ErrInvalidArgument)
	case req.HostPercentageBasisPoints < 0 || req.HostPercentageBasisPoints > finance.BasisPointScale:
		return 0, fmt.Errorf("%w: host percentage %d", model.ErrInvalidArgument, req.HostPercentageBasisPoints)
	case req.WinType != model.WinStandard && req.WinType != model.WinBlackout:
		return 0, fmt.Errorf("%w: win type %d", model.ErrInvalidArgument, req.WinType)
	case req.Password != nil && *req.Password == "":
		return 0, fmt.Errorf("%w: empty password", model.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	g := &game{
		id:           s.nextID,
		name:         name,
		host:         who,
		scheduledMs:  req.ScheduledStartTimeMs,
		hostAssigned: s.nowMs(),
		priceE8s:     req.PriceE8s,
		hostBP:       req.HostPercentageBasisPoints,
		winType:      req.WinType,
		deck:         make([]int, 0, model.MaxNumber),
		cards:        make(map[model.Identity]card.Card),
		paid:         make(map[model.Identity]bool),
	}
	if req.Password != nil {
		pw := *req.Password
		g.password = &pw
	}
	for _, i := range s.rng.Perm(model.MaxNumber) {
		g.deck = append(g.deck, i+model.MinNumber)
	}
	s.games[g.id] = g
	s.log.Info(ctx, "game created", logger.GameID(g.id), logger.String("host", string(who)),
		logger.Uint64("price", g.priceE8s))
	return g.id, nil
}

func (s *Store) activeGames() []model.GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.GameSummary, 0, len(s.games))
	for _, g := range s.games {
		sum := s.summary(g)
		sum.CalledNumbers = append([]int(nil), g.called...)
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameNumber < out[j].GameNumber })
	return out
}

// read runs fn on game id under the lock.
func (s *Store) read(id uint64, fn func(g *game)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return err
	}
	fn(g)
	return nil
}

func (s *Store) drawNext(ctx context.Context, who model.Identity, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return err
	}
	switch {
	case g.host != who:
		return model.ErrNotHost
	case g.winner != nil:
		return model.ErrWinnerDeclared
	case !g.inProgress:
		return model.ErrGameNotInProgress
	case len(g.deck) == 0:
		return model.ErrAllNumbersDrawn
	}
	n := g.deck[0]
	g.deck = g.deck[1:]
	g.called = append(g.called, n)
	now := s.nowMs()
	g.lastDrawMs = &now
	s.log.Debug(ctx, "number drawn", logger.GameID(id), logger.String("number", card.Label(n)))
	return nil
}

func (s *Store) checkWin(ctx context.Context, who model.Identity, id uint64, marks []bool) (model.CheckWinResult, error) {
	m, err := card.MarksFromSlice(marks)
	if err != nil {
		return model.CheckWinUnknown, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return model.CheckWinUnknown, err
	}
	if g.winner != nil {
		if *g.winner == who {
			return model.CheckWinWon, nil
		}
		return model.CheckWinAlreadyWon, nil
	}
	c, ok := g.cards[who]
	if !ok {
		return model.CheckWinUnknown, model.ErrNoCard
	}
	if !g.inProgress || !card.Wins(c, m, g.called, g.winType) {
		return model.CheckWinNotWon, nil
	}

	winner := who
	g.winner = &winner
	g.inProgress = false
	s.log.Info(ctx, "winner declared", logger.GameID(id), logger.String("winner", string(who)),
		logger.Int("called", len(g.called)))
	return model.CheckWinWon, nil
}

func (s *Store) startGame(ctx context.Context, who model.Identity, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return err
	}
	now := s.nowMs()
	switch {
	case g.host != who:
		return model.ErrNotHost
	case g.completed || g.winner != nil:
		return model.ErrGameCompleted
	case g.inProgress:
		return model.ErrGameAlreadyStarted
	case now < g.scheduledMs:
		return model.ErrTooEarlyToStart
	}
	g.inProgress = true
	g.startMs = &now
	s.log.Info(ctx, "game started", logger.GameID(id))
	return nil
}

func (s *Store) becomeHost(ctx context.Context, who model.Identity, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return false, err
	}
	switch {
	case g.winner != nil || g.completed:
		return false, model.ErrGameHasWinner
	case g.host == who:
		return false, model.ErrAlreadyHost
	case !g.paid[who]:
		return false, model.ErrNotPaid
	}

	now := s.nowMs()
	if now < g.hostAssigned+s.staleAfter.Milliseconds() {
		return false, model.ErrHostAlreadyAssigned
	}
	threshold, ok := election.NewRule(s.staleAfter).Threshold(s.snapshot(g))
	if !ok || now < threshold {
		if g.inProgress {
			return false, model.ErrGameInProgress
		}
		return false, model.ErrTooEarlyToHost
	}

	prev := g.host
	g.host = who
	g.hostAssigned = now
	s.log.Info(ctx, "host taken over", logger.GameID(id),
		logger.String("from", string(prev)), logger.String("to", string(who)))
	return true, nil
}

func (s *Store) distributeWinnings(ctx context.Context, who model.Identity, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return false, err
	}
	switch {
	case g.winner == nil || *g.winner != who:
		return false, model.ErrNotWinner
	case g.completed:
		return false, model.ErrAlreadyDistributed
	}

	fin, err := finance.Compute(g.priceE8s, uint64(len(g.cards)), g.hostBP)
	if err != nil {
		return false, err
	}
	if !g.prizePaid {
		if err := s.payout(ctx, who, fin.PrizePoolE8s, id); err != nil {
			return false, fmt.Errorf("pay winner: %w", err)
		}
		g.prizePaid = true
	}
	if err := s.payout(ctx, g.host, fin.HostCutE8s(), id); err != nil {
		return false, fmt.Errorf("pay host: %w", err)
	}
	g.completed = true
	s.log.Info(ctx, "winnings distributed", logger.GameID(id),
		logger.Uint64("prize", fin.PrizePoolE8s), logger.Uint64("host_cut", fin.HostCutE8s()))
	return true, nil
}

// payout sends share minus the ledger fee from the game account.
func (s *Store) payout(ctx context.Context, to model.Identity, share, memo uint64) error {
	if s.ledger == nil || to == s.account {
		return nil
	}
	fee := s.ledger.Fee()
	if share <= fee {
		return nil
	}
	_, err := s.ledger.Transfer(ctx, s.account, model.TransferRequest{
		To: to, AmountE8s: share - fee, FeeE8s: fee, Memo: memo,
	})
	return err
}

func (s *Store) generateCard(ctx context.Context, who model.Identity, id uint64) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return nil, err
	}
	switch {
	case g.completed || g.winner != nil:
		return nil, model.ErrGameCompleted
	case !g.paid[who]:
		return nil, model.ErrNotPaid
	}
	if _, ok := g.cards[who]; ok {
		return nil, model.ErrAlreadyHasCard
	}
	c := card.Generate(s.rng)
	g.cards[who] = c
	s.log.Debug(ctx, "card dealt", logger.GameID(id), logger.String("player", string(who)))
	return c.Slice(), nil
}

func (s *Store) myCard(id uint64, who model.Identity) ([]int, error) {
	var (
		c  card.Card
		ok bool
	)
	if err := s.read(id, func(g *game) { c, ok = g.cards[who] }); err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrNoCard
	}
	return c.Slice(), nil
}

func (s *Store) recordPayment(ctx context.Context, who model.Identity, id uint64, password *string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.get(id)
	if err != nil {
		return false, err
	}
	switch {
	case who == model.Anonymous:
		return false, model.ErrUnauthorized
	case g.completed || g.winner != nil:
		return false, model.ErrGameCompleted
	case g.paid[who]:
		return false, model.ErrAlreadyPaid
	case g.password != nil && (password == nil || *password != *g.password):
		return false, model.ErrInvalidPassword
	}

	if g.priceE8s > 0 && s.ledger != nil {
		_, net := finance.RegistrationSplit(g.priceE8s)
		tx, err := s.ledger.Claim(who, s.account, net)
		if errors.Is(err, ledger.ErrTxNotFound) {
			return false, model.ErrNotPaid
		}
		if err != nil {
			return false, err
		}
		s.log.Debug(ctx, "payment claimed", logger.GameID(id), logger.Uint64("tx", tx.ID))
	}
	g.paid[who] = true
	s.log.Info(ctx, "player registered", logger.GameID(id), logger.String("player", string(who)))
	return true, nil
}
