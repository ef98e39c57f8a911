// Package winclaim runs the win-check and payout-claim flow for one player.
package winclaim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// State of the flow.
type State int

const (
	Unchecked State = iota
	Checking
	NotWon
	Won
	AlreadyWon
	Claiming
	Claimed
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "Unchecked"
	case Checking:
		return "Checking"
	case NotWon:
		return "NotWon"
	case Won:
		return "Won"
	case AlreadyWon:
		return "AlreadyWon"
	case Claiming:
		return "Claiming"
	case Claimed:
		return "Claimed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Message is the user-facing text for a settled state.
func (s State) Message() string {
	switch s {
	case Won:
		return "Congratulations! You have won!"
	case NotWon:
		return "Sorry, you have not won yet."
	case AlreadyWon:
		return "Another player has already won the game."
	case Claimed:
		return "Your winnings have been transferred to your account!"
	default:
		return ""
	}
}

// Backend is the slice of the game backend the flow needs.
type Backend interface {
	CheckWin(ctx context.Context, game uint64, marks []bool) (model.CheckWinResult, error)
	DistributeWinnings(ctx context.Context, game uint64) (bool, error)
}

// Flow guards win checks and claims so that only one request is ever
// outstanding. It is safe for concurrent use.
type Flow struct {
	game    uint64
	local   model.Identity
	backend Backend
	log     logger.Logger

	mu    sync.Mutex
	state State
}

// New creates a flow for local in game.
func New(game uint64, local model.Identity, backend Backend, opts ...Option) *Flow {
	f := &Flow{game: game, local: local, backend: backend}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.Get().Named("winclaim")
	}
	f.log = f.log.With(logger.GameID(game))
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// begin moves to a busy state, refusing when a request is already out.
func (f *Flow) begin(busy State) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Checking, Claiming:
		return f.state, ErrRequestInFlight
	case Claimed:
		return f.state, ErrClaimed
	}
	prev := f.state
	f.state = busy
	return prev, nil
}

func (f *Flow) settle(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// CheckWin submits marks. Transport failures restore the previous state and
// are returned; an unrecognised result is logged and settles as NotWon.
func (f *Flow) CheckWin(ctx context.Context, marks []bool) (State, error) {
	prev, err := f.begin(Checking)
	if err != nil {
		return prev, err
	}

	res, err := f.backend.CheckWin(ctx, f.game, marks)
	if err != nil && !errors.Is(err, model.ErrUnknownResult) {
		f.settle(prev)
		metrics.RecordWinCheck("error")
		f.log.Warn(ctx, "check win failed", logger.Error(err))
		return prev, fmt.Errorf("check win: %w", err)
	}

	var next State
	switch res {
	case model.CheckWinWon:
		next = Won
	case model.CheckWinAlreadyWon:
		next = AlreadyWon
	case model.CheckWinNotWon:
		next = NotWon
	default:
		f.log.Error(ctx, "unknown check win result", logger.String("result", res.String()), logger.Error(err))
		metrics.RecordWinCheck("unknown")
		f.settle(NotWon)
		return NotWon, nil
	}
	metrics.RecordWinCheck(next.String())
	f.settle(next)
	return next, nil
}

// CanClaim reports whether a claim may be submitted against snap: the local
// player won, the game has stopped and it is not yet completed.
func (f *Flow) CanClaim(snap *model.Snapshot) bool {
	f.mu.Lock()
	st := f.state
	f.mu.Unlock()
	return st == Won && canClaim(snap, f.local)
}

func canClaim(snap *model.Snapshot, local model.Identity) bool {
	return snap.IsWinner(local) && !snap.InProgress && !snap.Completed
}

// ClaimWinnings asks the backend to pay out once. Success is terminal;
// any failure leaves the flow at Won so the claim can be retried.
func (f *Flow) ClaimWinnings(ctx context.Context, snap *model.Snapshot) error {
	f.mu.Lock()
	switch {
	case f.state == Checking || f.state == Claiming:
		f.mu.Unlock()
		return ErrRequestInFlight
	case f.state == Claimed:
		f.mu.Unlock()
		return ErrClaimed
	case f.state != Won || !canClaim(snap, f.local):
		f.mu.Unlock()
		return ErrNotClaimable
	}
	f.state = Claiming
	f.mu.Unlock()

	ok, err := f.backend.DistributeWinnings(ctx, f.game)
	if err == nil && !ok {
		err = ErrDistributionFailed
	}
	if err != nil {
		f.settle(Won)
		metrics.RecordClaim("failed")
		f.log.Warn(ctx, "claim failed", logger.Error(err))
		return fmt.Errorf("claim winnings: %w", err)
	}

	f.settle(Claimed)
	metrics.RecordClaim("ok")
	f.log.Info(ctx, "winnings claimed")
	return nil
}
