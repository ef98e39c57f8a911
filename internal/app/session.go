// Package service ties the polling, auto-draw, host election and win-claim
// machinery together for one game as seen by one local participant, and
// adds the lobby and registration flows around it.
package service

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/worker"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/card"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/election"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/winclaim"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/session/autodraw"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/session/poller"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// View is an immutable picture of the session for readers off the loop.
type View struct {
	Game       uint64
	Snapshot   *model.Snapshot // nil until the first poll lands
	Financials finance.Financials
	Eligible   bool // the local user may take over hosting
	IsHost     bool
	IsWinner   bool
	CanClaim   bool
	AutoDraw   autodraw.State
	AutoDrawOn bool
	Card       *card.Card
	Marks      card.Marks
	Claim      winclaim.State
	Gone       bool // the backend no longer knows the game
}

type cardState int

const (
	cardUnknown cardState = iota
	cardLoading
	cardChecked
)

// Session keeps one game in sync for one local identity.
//
// All mutable state is owned by a worker loop. Public methods may be called
// from any goroutine except the handlers passed in options.
type Session struct {
	id      string
	game    uint64
	local   model.Identity
	backend model.Backend
	clock   clockwork.Clock
	log     logger.Logger

	pollInterval     time.Duration
	requestTimeout   time.Duration
	failureThreshold int
	maxBackoff       time.Duration
	drawInterval     time.Duration
	staleAfter       time.Duration

	sink     EventSink
	onEvent  func(model.Event)
	onNotice func(Notice)

	loop  *worker.Loop
	draws *autodraw.Scheduler
	claim *winclaim.Flow
	rule  election.Rule
	poll  *poller.Handle[*model.Snapshot]

	started  atomic.Bool
	stopOnce sync.Once
	view     atomic.Pointer[View]

	// Loop-owned state.
	latest      *model.Snapshot
	financials  finance.Financials
	eligible    bool
	wantAuto    bool
	lastNumber  int
	winnerSeen  bool
	drainedSeen bool
	gone        bool
	card        *card.Card
	marks       card.Marks
	cardState   cardState
	busy        map[string]bool
}

// NewSession creates a stopped session for game on behalf of local.
func NewSession(backend model.Backend, game uint64, local model.Identity, opts ...Option) *Session {
	s := &Session{
		id:               uuid.NewString(),
		game:             game,
		local:            local,
		backend:          backend,
		clock:            clockwork.NewRealClock(),
		pollInterval:     DefaultPollInterval,
		requestTimeout:   DefaultRequestTimeout,
		failureThreshold: poller.DefaultFailureThreshold,
		maxBackoff:       poller.DefaultMaxBackoff,
		drawInterval:     DefaultAutoDrawInterval,
		staleAfter:       DefaultStaleAfter,
		busy:             make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("session")
	}
	s.log = s.log.With(logger.GameID(game), logger.String("session", s.id))

	label := strconv.FormatUint(game, 10)
	s.loop = worker.NewLoop(context.Background(),
		worker.WithName("game-"+label),
		worker.WithClock(s.clock),
		worker.WithLogger(s.log))
	s.draws = autodraw.New(s.loop, s.drawOnce,
		autodraw.WithInterval(s.drawInterval),
		autodraw.WithLogger(s.log),
		autodraw.WithGameLabel(label),
		autodraw.WithWarningHandler(s.drawFailed),
		autodraw.WithDrawnHandler(s.drawn),
		autodraw.WithStoppedHandler(s.drawStopped))
	s.claim = winclaim.New(game, local, backend, winclaim.WithLogger(s.log))
	s.rule = election.NewRule(s.staleAfter)
	s.view.Store(&View{Game: game})
	return s
}

// ID identifies the session in logs and published events.
func (s *Session) ID() string { return s.id }

// Game is the game number being followed.
func (s *Session) Game() uint64 { return s.game }

// Local is the identity the session acts for.
func (s *Session) Local() model.Identity { return s.local }

// View returns the latest published view. It never returns nil.
func (s *Session) View() *View { return s.view.Load() }

// Start runs the loop and begins polling. The session stops when ctx is
// done or Stop is called.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.loop.Start()
	metrics.IncActiveSessions()

	p := poller.New(s.loop, s.fetch,
		poller.WithName("game"),
		poller.WithInterval(s.pollInterval),
		poller.WithTimeout(s.requestTimeout),
		poller.WithFailureThreshold(s.failureThreshold),
		poller.WithMaxBackoff(s.maxBackoff),
		poller.WithFailureHandler(s.pollFailing),
		poller.WithLogger(s.log),
	).WithValidator(model.CheckConsistency)
	h := p.Start(s.onSnapshot)
	if err := s.loop.Do(func() {
		s.poll = h
		if s.gone {
			h.StopInLoop()
		}
	}); err != nil {
		return ErrSessionStopped
	}
	context.AfterFunc(ctx, s.Stop)
	s.log.Info(ctx, "session started", logger.String("local", string(s.local)))
	return nil
}

// Stop halts polling and auto-draw and stops the loop. It is idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if !s.started.Load() {
			s.loop.Stop()
			return
		}
		_ = s.loop.Do(func() {
			if s.poll != nil {
				s.poll.StopInLoop()
			}
			s.draws.Close()
		})
		s.loop.Stop()
		metrics.DecActiveSessions()
		s.log.Info(context.Background(), "session stopped")
	})
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} { return s.loop.Done() }

// Refresh asks for an immediate poll.
func (s *Session) Refresh() {
	if !s.started.Load() {
		return
	}
	_ = s.run(func() {
		if s.poll != nil {
			s.poll.RefreshInLoop()
		}
	})
}

// PollStats reports the game poller counters.
func (s *Session) PollStats() poller.Stats {
	var st poller.Stats
	_ = s.run(func() {
		if s.poll != nil {
			st = s.poll.Stats()
		}
	})
	return st
}

// run executes fn on the loop and waits for it.
func (s *Session) run(fn func()) error {
	if !s.started.Load() {
		return ErrSessionStopped
	}
	if err := s.loop.Do(fn); err != nil {
		return ErrSessionStopped
	}
	return nil
}

func (s *Session) fetch(ctx context.Context) (*model.Snapshot, error) {
	return FetchSnapshot(ctx, s.backend, s.game, s.clock.Now())
}

func (s *Session) drawOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	return s.backend.DrawNextNumber(ctx, s.game)
}

func (s *Session) drawn() {
	if s.poll != nil {
		s.poll.RefreshInLoop()
	}
	s.publishView()
}

// drawStopped drops the auto-draw intent so only a manual enable resumes.
func (s *Session) drawStopped(err error) {
	if s.wantAuto {
		s.log.Info(s.loop.Context(), "game over, auto-draw intent cleared", logger.Error(err))
	}
	s.wantAuto = false
}

func (s *Session) drawFailed(err error) {
	s.notify(warning("draw_failed", "Error drawing next number: "+err.Error()))
}

func (s *Session) pollFailing(err error, consecutive int) {
	s.notify(failure("poll_failing", "Lost contact with the game server, still retrying."))
}

// onSnapshot runs on the loop for every accepted poll result.
func (s *Session) onSnapshot(snap *model.Snapshot) {
	if snap == nil {
		s.vanished()
		return
	}
	prev := s.latest
	s.latest = snap
	s.draws.Observe(snap)

	fin, err := finance.Compute(snap.PriceE8s, snap.CardCount, finance.ClampHostPercentage(snap.HostPercentageBasisPoints))
	if err != nil {
		s.log.Error(s.loop.Context(), "financials failed", logger.Error(err))
	}
	s.financials = fin
	s.eligible = s.rule.Eligible(snap, s.clock.Now().UnixMilli(), s.local)

	s.transitions(prev, snap)
	s.syncAutoDraw(snap)
	if s.cardState == cardUnknown && s.local != model.Anonymous {
		s.loadCard()
	}
	s.publishView()
}

// transitions emits the trigger events implied by moving from prev to snap.
// The first snapshot only primes the called number.
func (s *Session) transitions(prev, snap *model.Snapshot) {
	if prev != nil && !prev.InProgress && snap.InProgress {
		s.emit(model.Event{Kind: model.EventGameStarted})
		s.notify(info("game_started", "Game has started!"))
	}

	if n, ok := snap.LatestNumber(); ok && n != s.lastNumber {
		if prev != nil {
			s.emit(model.Event{Kind: model.EventNumberCalled, Number: n, Letter: card.Letter(n)})
		}
		s.lastNumber = n
	}

	if snap.HasWinner() && !s.winnerSeen {
		s.winnerSeen = true
		w := *snap.Winner
		s.emit(model.Event{Kind: model.EventWinnerDeclared, Winner: &w})
		if snap.IsWinner(s.local) {
			s.notify(success("winner_declared", "You won the game!"))
		} else {
			s.notify(info("winner_declared", w.Label()+" won the game."))
		}
	}

	if snap.AllNumbersDrawn && !s.drainedSeen {
		s.drainedSeen = true
		s.emit(model.Event{Kind: model.EventAllNumbersDrawn})
		s.notify(info("all_numbers_drawn", "All numbers have been drawn in this game!"))
	}
}

func (s *Session) syncAutoDraw(snap *model.Snapshot) {
	ctx := s.loop.Context()
	if !snap.IsHost(s.local) {
		if s.draws.Enabled() {
			s.draws.Disable()
			s.notify(warning("host_lost", "You are no longer the host, automatic drawing stopped."))
			s.log.Info(ctx, "host changed, auto-draw disabled", logger.String("host", string(snap.HostPrincipalID)))
		}
		return
	}
	if s.wantAuto && !s.draws.Enabled() && snap.Drawable() {
		if err := s.draws.Enable(); err != nil {
			s.log.Warn(ctx, "auto-draw not enabled", logger.Error(err))
		}
	}
}

func (s *Session) vanished() {
	if s.gone {
		return
	}
	s.gone = true
	s.log.Warn(s.loop.Context(), "game not found, polling stopped")
	s.emit(model.Event{Kind: model.EventGameNotFound})
	s.notify(failure("game_not_found", "Game not found."))
	if s.poll != nil {
		s.poll.StopInLoop()
	}
	s.draws.Close()
	s.publishView()
}

func (s *Session) loadCard() {
	s.cardState = cardLoading
	worker.Call(s.loop, func(ctx context.Context) ([]int, error) {
		ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
		has, err := s.backend.HasCard(ctx, s.game, s.local)
		if err != nil || !has {
			return nil, err
		}
		return s.backend.GetMyCard(ctx, s.game, s.local)
	}, func(cells []int, err error) {
		ctx := s.loop.Context()
		if err != nil {
			s.cardState = cardUnknown
			s.log.Warn(ctx, "card lookup failed", logger.Error(err))
			return
		}
		s.cardState = cardChecked
		if cells == nil || s.card != nil {
			return
		}
		c, err := card.FromSlice(cells)
		if err != nil {
			s.log.Error(ctx, "card exists but its data is invalid", logger.Error(err))
			s.notify(failure("invalid_card", "Your card data is invalid."))
			return
		}
		s.setCard(c)
		s.publishView()
	})
}

func (s *Session) setCard(c card.Card) {
	s.card = &c
	s.marks = card.Marks{}
	s.marks[card.Center] = true
	s.cardState = cardChecked
}

// emit stamps ev and hands it to the handler and the sink.
func (s *Session) emit(ev model.Event) {
	ev.Game = s.game
	ev.At = s.clock.Now()
	metrics.RecordEvent(string(ev.Kind))
	if s.onEvent != nil {
		s.onEvent(ev)
	}
	if s.sink != nil {
		if err := s.sink.Publish(ev); err != nil {
			s.log.Warn(s.loop.Context(), "event not published",
				logger.String("kind", string(ev.Kind)), logger.Error(err))
		}
	}
}

func (s *Session) notify(n Notice) {
	if s.onNotice != nil {
		s.onNotice(n)
	}
}

// publishView snapshots loop state for off-loop readers.
func (s *Session) publishView() {
	v := &View{
		Game:       s.game,
		Snapshot:   s.latest,
		Financials: s.financials,
		Eligible:   s.eligible,
		IsHost:     s.latest.IsHost(s.local),
		IsWinner:   s.latest.IsWinner(s.local),
		CanClaim:   s.claim.CanClaim(s.latest),
		AutoDraw:   s.draws.State(),
		AutoDrawOn: s.draws.Enabled(),
		Marks:      s.marks,
		Claim:      s.claim.State(),
		Gone:       s.gone,
	}
	if s.card != nil {
		c := *s.card
		v.Card = &c
	}
	s.view.Store(v)
}
