package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/card"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/election"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/winclaim"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/session/autodraw"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// User actions return the notice to show alongside the error. Notices are
// never passed to the notice handler; that one only carries background news.

const (
	slotTakeover = "takeover"
	slotStart    = "start"
	slotCard     = "card"
)

// bound limits ctx by the request timeout and the session lifetime.
func (s *Session) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	stop := context.AfterFunc(s.loop.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// act runs fn off the loop against the latest snapshot while holding the
// named in-flight slot. A second call for the same slot fails fast.
func (s *Session) act(ctx context.Context, slot string, fn func(ctx context.Context, snap *model.Snapshot) error) error {
	var (
		snap *model.Snapshot
		err  error
	)
	if rerr := s.run(func() {
		switch {
		case s.busy[slot]:
			err = ErrActionInFlight
		case s.latest == nil:
			err = ErrNoSnapshot
		default:
			s.busy[slot] = true
			snap = s.latest
		}
	}); rerr != nil {
		return rerr
	}
	if err != nil {
		return err
	}
	defer s.loop.Post(func() { delete(s.busy, slot) })

	ctx, cancel := s.bound(ctx)
	defer cancel()
	return fn(ctx, snap)
}

// localRefusal maps the refusals act and run raise before any backend call.
func localRefusal(err error) (Notice, bool) {
	switch {
	case errors.Is(err, ErrActionInFlight):
		return warning("in_flight", "A request is already in progress."), true
	case errors.Is(err, ErrNoSnapshot):
		return warning("loading", "The game is still loading."), true
	case errors.Is(err, ErrSessionStopped):
		return failure("stopped", "The game session has ended."), true
	case errors.Is(err, ErrAnonymous):
		return failure("sign_in", "Please log in first."), true
	}
	return Notice{}, false
}

// DrawNow draws one number immediately. It shares the single in-flight
// draw slot with automatic drawing.
func (s *Session) DrawNow(ctx context.Context) (Notice, error) {
	res := make(chan error, 1)
	err := s.run(func() {
		switch {
		case s.latest == nil:
			res <- ErrNoSnapshot
		case !s.latest.IsHost(s.local):
			res <- model.ErrNotHost
		default:
			if err := s.draws.DrawNow(func(err error) { res <- err }); err != nil {
				res <- err
			}
		}
	})
	if err == nil {
		select {
		case err = <-res:
		case <-ctx.Done():
			err = ctx.Err()
		case <-s.loop.Done():
			err = ErrSessionStopped
		}
	}

	if n, ok := localRefusal(err); ok {
		return n, err
	}
	switch {
	case err == nil:
		return success("number_drawn", "Number drawn."), nil
	case errors.Is(err, autodraw.ErrDrawInFlight):
		return warning("draw_in_flight", "A draw is already in progress."), err
	case errors.Is(err, model.ErrNotHost):
		return failure("not_host", "Only the host can draw numbers."), err
	case errors.Is(err, autodraw.ErrNotDrawable), model.IsGameOver(err):
		return warning("not_drawable", "No more numbers can be drawn in this game."), err
	default:
		return failure("draw_failed", "Error drawing next number: "+err.Error()), err
	}
}

// EnableAutoDraw starts drawing every interval while the local user hosts a
// drawable game.
func (s *Session) EnableAutoDraw() (Notice, error) {
	var err error
	if rerr := s.run(func() {
		switch {
		case s.latest == nil:
			err = ErrNoSnapshot
		case !s.latest.IsHost(s.local):
			err = model.ErrNotHost
		default:
			if err = s.draws.Enable(); err == nil {
				s.wantAuto = true
			}
		}
		s.publishView()
	}); rerr != nil {
		err = rerr
	}

	if n, ok := localRefusal(err); ok {
		return n, err
	}
	switch {
	case err == nil:
		return info("auto_draw_on", "Automatic drawing is on."), nil
	case errors.Is(err, model.ErrNotHost):
		return failure("not_host", "Only the host can draw numbers."), err
	case errors.Is(err, autodraw.ErrNotDrawable):
		return warning("not_drawable", "Automatic drawing needs a game in progress."), err
	default:
		return failure("auto_draw_failed", "Could not start automatic drawing: "+err.Error()), err
	}
}

// DisableAutoDraw stops automatic drawing. A draw already in flight still
// completes.
func (s *Session) DisableAutoDraw() (Notice, error) {
	if err := s.run(func() {
		s.wantAuto = false
		s.draws.Disable()
		s.publishView()
	}); err != nil {
		n, _ := localRefusal(err)
		return n, err
	}
	return info("auto_draw_off", "Automatic drawing is off."), nil
}

// ToggleMark flips cell i on the local card and reports the new mark.
func (s *Session) ToggleMark(i int) (bool, error) {
	var (
		marked bool
		err    error
	)
	if rerr := s.run(func() {
		switch {
		case s.card == nil:
			err = ErrNoCard
		case !s.marks.Toggle(i):
			err = fmt.Errorf("%w: cell %d cannot be toggled", model.ErrInvalidArgument, i)
		default:
			marked = s.marks[i]
			s.emit(model.Event{Kind: model.EventCardToggled, Cell: i, Marked: marked})
			s.publishView()
		}
	}); rerr != nil {
		return false, rerr
	}
	return marked, err
}

// CheckWin submits the current marks.
func (s *Session) CheckWin(ctx context.Context) (Notice, error) {
	var (
		marks  card.Marks
		loaded bool
	)
	err := s.run(func() {
		if s.card != nil {
			marks, loaded = s.marks, true
		}
	})
	if err == nil && !loaded {
		err = ErrNoCard
	}
	if err != nil {
		if n, ok := localRefusal(err); ok {
			return n, err
		}
		return warning("no_card", "You do not have a card for this game."), err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	st, err := s.claim.CheckWin(ctx, marks.Slice())
	_ = s.run(s.publishView)
	switch {
	case errors.Is(err, winclaim.ErrRequestInFlight):
		return warning("in_flight", "A request is already in progress."), err
	case err != nil:
		return failure("check_failed", "Error checking win: "+err.Error()), err
	}

	switch st {
	case winclaim.Won:
		s.Refresh()
		return success("won", st.Message()), nil
	case winclaim.AlreadyWon:
		return warning("already_won", st.Message()), nil
	default:
		return info("not_won", st.Message()), nil
	}
}

// ClaimWinnings asks the backend to pay out the prize once.
func (s *Session) ClaimWinnings(ctx context.Context) (Notice, error) {
	snap := s.View().Snapshot
	ctx, cancel := s.bound(ctx)
	defer cancel()

	err := s.claim.ClaimWinnings(ctx, snap)
	if err == nil {
		_ = s.run(func() {
			s.emit(model.Event{Kind: model.EventClaimed})
			s.publishView()
		})
		s.Refresh()
		return success("claimed", winclaim.Claimed.Message()), nil
	}

	_ = s.run(s.publishView)
	switch {
	case errors.Is(err, winclaim.ErrClaimed):
		return info("already_claimed", "Your winnings have already been claimed."), err
	case errors.Is(err, winclaim.ErrRequestInFlight):
		return warning("in_flight", "A request is already in progress."), err
	case errors.Is(err, winclaim.ErrNotClaimable):
		return warning("not_claimable", "Winnings cannot be claimed right now."), err
	default:
		return failure("claim_failed", "Failed to distribute winnings: "+err.Error()), err
	}
}

// BecomeHost tries to take over hosting. Each failure cause maps to its own
// message.
func (s *Session) BecomeHost(ctx context.Context) (Notice, error) {
	if s.local == model.Anonymous {
		n, _ := localRefusal(ErrAnonymous)
		return n, ErrAnonymous
	}
	var ok bool
	err := s.act(ctx, slotTakeover, func(ctx context.Context, snap *model.Snapshot) error {
		if snap.IsHost(s.local) {
			return model.ErrAlreadyHost
		}
		var err error
		ok, err = s.backend.BecomeHost(ctx, s.game)
		return err
	})
	if n, local := localRefusal(err); local {
		return n, err
	}
	if err == nil && ok {
		metrics.RecordTakeoverAttempt("ok")
		s.log.Info(ctx, "took over hosting")
		s.Refresh()
		return success("host_assigned", "You are now the host of the game."), nil
	}

	reason := election.DescribeTakeoverFailure(err)
	metrics.RecordTakeoverAttempt(string(reason.Code))
	s.log.Info(ctx, "takeover refused", logger.String("reason", string(reason.Code)), logger.Error(err))
	if err == nil {
		err = ErrTakeoverRejected
	}
	return failure(string(reason.Code), reason.Message), err
}

// StartGame starts the game. Only the host may start, and not before the
// scheduled start time.
func (s *Session) StartGame(ctx context.Context) (Notice, error) {
	err := s.act(ctx, slotStart, func(ctx context.Context, snap *model.Snapshot) error {
		switch {
		case !snap.IsHost(s.local):
			return model.ErrNotHost
		case snap.Completed || snap.HasWinner():
			return model.ErrGameCompleted
		case snap.InProgress:
			return model.ErrGameAlreadyStarted
		case s.clock.Now().UnixMilli() < snap.ScheduledStartTimeMs:
			return model.ErrTooEarlyToStart
		}
		return s.backend.StartGame(ctx, s.game)
	})
	if n, ok := localRefusal(err); ok {
		return n, err
	}
	switch {
	case err == nil:
		s.Refresh()
		return success("game_started", "Game has started!"), nil
	case errors.Is(err, model.ErrNotHost):
		return failure("not_host", "Only the host can start the game."), err
	case errors.Is(err, model.ErrTooEarlyToStart):
		return warning("too_early", "Cannot start the game before the scheduled start time."), err
	case errors.Is(err, model.ErrGameAlreadyStarted):
		return info("already_started", "The game has already started."), err
	case errors.Is(err, model.ErrGameCompleted):
		return warning("completed", "The game is already over."), err
	default:
		return failure("start_failed", "Error starting game: "+err.Error()), err
	}
}

// GenerateCard deals the local user a card. Registration must be paid first.
func (s *Session) GenerateCard(ctx context.Context) (Notice, error) {
	if s.local == model.Anonymous {
		n, _ := localRefusal(ErrAnonymous)
		return n, ErrAnonymous
	}
	var cells []int
	err := s.act(ctx, slotCard, func(ctx context.Context, _ *model.Snapshot) error {
		var err error
		cells, err = s.backend.GenerateCard(ctx, s.game)
		return err
	})
	if n, ok := localRefusal(err); ok {
		return n, err
	}
	switch {
	case errors.Is(err, model.ErrNotPaid):
		return warning("not_paid", "You need to pay to join this game."), err
	case errors.Is(err, model.ErrAlreadyHasCard):
		_ = s.run(func() {
			if s.card == nil && s.cardState != cardLoading {
				s.loadCard()
			}
		})
		return info("has_card", "You already have a card for this game."), err
	case errors.Is(err, model.ErrGameCompleted):
		return warning("completed", "The game is already over."), err
	case err != nil:
		return failure("card_failed", "Error generating card: "+err.Error()), err
	}

	c, err := card.FromSlice(cells)
	if err != nil {
		s.log.Error(ctx, "dealt card is invalid", logger.Error(err))
		return failure("invalid_card", "Failed to generate a valid Bingo card."), err
	}
	if err := s.run(func() {
		s.setCard(c)
		s.publishView()
	}); err != nil {
		n, _ := localRefusal(err)
		return n, err
	}
	return success("card_ready", "Your Bingo card is ready."), nil
}
