// Package autodraw drives a host's automatic number draws.
//
// The scheduler is Idle, Scheduled or Drawing. Enabling it fires a draw
// right away; every successful response schedules the next draw one
// interval later for as long as the game stays drawable. A game-over
// response or a non-drawable snapshot drops it back to Idle and it stays
// there until enabled again. Every method must be called on the loop.
package autodraw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/worker"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// State of the scheduler.
type State int

const (
	Idle State = iota
	Scheduled
	Drawing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Drawing:
		return "drawing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Trigger labels what started a draw.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// DrawFunc asks the backend for the next number.
type DrawFunc func(ctx context.Context) error

// Scheduler is the auto-draw state machine of one game.
type Scheduler struct {
	interval  time.Duration
	label     string
	log       logger.Logger
	onWarning func(error)
	onDrawn   func()
	onStopped func(error)

	loop *worker.Loop
	draw DrawFunc

	state    State
	enabled  bool
	closed   bool
	epoch    uint64
	timer    *worker.Timer
	inFlight bool
	cancel   context.CancelFunc
	latest   *model.Snapshot
}

// New creates an idle scheduler on loop.
func New(loop *worker.Loop, draw DrawFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: DefaultInterval,
		label:    "game",
		loop:     loop,
		draw:     draw,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("autodraw")
	}
	s.log = s.log.With(logger.String("game", s.label))
	metrics.UpdateAutoDrawState(s.label, int(Idle))
	return s
}

// State reports the current state.
func (s *Scheduler) State() State { return s.state }

// Enabled reports whether automatic draws are switched on.
func (s *Scheduler) Enabled() bool { return s.enabled }

// InFlight reports whether a draw request is outstanding.
func (s *Scheduler) InFlight() bool { return s.inFlight }

func (s *Scheduler) setState(st State) {
	if s.state == st {
		return
	}
	s.log.Debug(s.loop.Context(), "auto-draw state",
		logger.String("from", s.state.String()), logger.String("to", st.String()))
	s.state = st
	metrics.UpdateAutoDrawState(s.label, int(st))
}

// Observe feeds the latest snapshot. A snapshot that is not drawable stops
// automatic drawing.
func (s *Scheduler) Observe(snap *model.Snapshot) {
	s.latest = snap
	if s.enabled && !snap.Drawable() {
		s.log.Info(s.loop.Context(), "game no longer drawable, auto-draw stopped")
		s.reset()
	}
}

// Enable switches automatic draws on and fires the first one at once.
func (s *Scheduler) Enable() error {
	if s.closed {
		return ErrClosed
	}
	if !s.latest.Drawable() {
		return ErrNotDrawable
	}
	if s.enabled {
		return nil
	}
	s.enabled = true
	s.epoch++
	if s.inFlight {
		// the outstanding response schedules the next draw
		return nil
	}
	s.setState(Scheduled)
	epoch := s.epoch
	s.loop.Defer(func() { s.fire(epoch) })
	return nil
}

// Disable switches automatic draws off and cancels any pending timer.
// A draw already in flight completes but never reschedules.
func (s *Scheduler) Disable() {
	if !s.enabled && s.state == Idle {
		return
	}
	s.reset()
}

// Close disables the scheduler for good and aborts an in-flight draw.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.reset()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) reset() {
	s.enabled = false
	s.epoch++
	s.timer.Stop()
	s.timer = nil
	s.setState(Idle)
}

// DrawNow requests one draw immediately, sharing the single in-flight
// slot with automatic draws. done, if set, receives the result on the loop.
func (s *Scheduler) DrawNow(done func(error)) error {
	switch {
	case s.closed:
		return ErrClosed
	case s.inFlight:
		return ErrDrawInFlight
	case s.latest != nil && !s.latest.Drawable():
		return ErrNotDrawable
	}
	s.timer.Stop()
	s.timer = nil
	s.start(TriggerManual, done)
	return nil
}

func (s *Scheduler) fire(epoch uint64) {
	if epoch != s.epoch || !s.enabled || s.state != Scheduled {
		return
	}
	s.timer = nil
	if s.inFlight {
		return
	}
	s.start(TriggerAuto, nil)
}

func (s *Scheduler) start(trigger Trigger, done func(error)) {
	s.inFlight = true
	s.setState(Drawing)
	s.cancel = worker.Call(s.loop, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.draw(ctx)
	}, func(_ struct{}, err error) {
		s.finish(trigger, err)
		if done != nil {
			done(err)
		}
	})
}

func (s *Scheduler) finish(trigger Trigger, err error) {
	s.inFlight = false
	s.cancel = nil
	ctx := s.loop.Context()

	switch {
	case err == nil:
		metrics.RecordDraw(string(trigger), "ok")
		s.log.Debug(ctx, "number drawn", logger.String("trigger", string(trigger)))
	case model.IsGameOver(err):
		metrics.RecordDraw(string(trigger), "game_over")
		s.log.Info(ctx, "draw refused, game is over", logger.Error(err))
		s.reset()
		if s.onStopped != nil && !s.closed {
			s.onStopped(err)
		}
		s.notifyDrawn()
		return
	case errors.Is(err, context.Canceled) && (s.closed || ctx.Err() != nil):
		metrics.RecordDraw(string(trigger), "canceled")
		return
	default:
		metrics.RecordDraw(string(trigger), "failed")
		s.log.Warn(ctx, "draw failed", logger.String("trigger", string(trigger)), logger.Error(err))
		if trigger == TriggerAuto && s.onWarning != nil {
			s.onWarning(err)
		}
	}

	if err == nil {
		s.notifyDrawn()
	}
	s.scheduleNext()
}

func (s *Scheduler) notifyDrawn() {
	if s.onDrawn != nil && !s.closed {
		s.onDrawn()
	}
}

func (s *Scheduler) scheduleNext() {
	if s.closed || !s.enabled {
		s.setState(Idle)
		return
	}
	if !s.latest.Drawable() {
		s.reset()
		return
	}
	s.setState(Scheduled)
	epoch := s.epoch
	s.timer = s.loop.After(s.interval, func() { s.fire(epoch) })
}
