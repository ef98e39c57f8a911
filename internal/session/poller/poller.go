// Package poller periodically fetches a value on a session loop and
// publishes it to a callback.
//
// At most one fetch is in flight. The next cycle is scheduled an interval
// after the previous one completes or times out. Every dispatch carries a
// sequence number and a result older than the last applied one is dropped,
// so a slow response can never overwrite a newer value.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/worker"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// FetchFunc loads one value. It must honour ctx cancellation.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ValidateFunc rejects next when it contradicts prev.
type ValidateFunc[T any] func(prev, next T) error

// FailureFunc is told once when polling has failed threshold times in a row.
type FailureFunc func(err error, consecutive int)

// Stats are cumulative counters of one polling run.
type Stats struct {
	Dispatched          uint64
	Applied             uint64
	Stale               uint64
	Rejected            uint64
	Failures            uint64
	ConsecutiveFailures int
	LastError           error
	LastSuccess         time.Time
}

// Poller holds the fetch and schedule. Start launches a polling run.
type Poller[T any] struct {
	settings
	loop     *worker.Loop
	fetch    FetchFunc[T]
	validate ValidateFunc[T]
}

// New creates a poller running on loop.
func New[T any](loop *worker.Loop, fetch FetchFunc[T], opts ...Option) *Poller[T] {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("poller")
	}
	s.log = s.log.With(logger.String("poller", s.name))
	return &Poller[T]{settings: s, loop: loop, fetch: fetch}
}

// WithValidator installs an anomaly check applied before publishing.
func (p *Poller[T]) WithValidator(fn ValidateFunc[T]) *Poller[T] {
	p.validate = fn
	return p
}

// Start begins polling; the first fetch is dispatched immediately. cb runs
// on the loop. Start must not be called from a loop task.
func (p *Poller[T]) Start(cb func(T)) *Handle[T] {
	h := &Handle[T]{p: p, cb: cb}
	if !p.loop.Post(h.dispatch) {
		h.stopped.Store(true)
	}
	return h
}

// Handle controls one polling run.
type Handle[T any] struct {
	p  *Poller[T]
	cb func(T)

	stopped  atomic.Bool
	stopOnce sync.Once

	// Loop-owned state.
	seq            uint64
	lastApplied    uint64
	inFlight       uint64
	cancelCall     context.CancelFunc
	timeoutTimer   *worker.Timer
	nextTimer      *worker.Timer
	refreshPending bool
	last           T
	hasValue       bool
	notified       bool

	mu    sync.Mutex
	stats Stats
}

// Stop ends polling. It is idempotent; no callback runs after it returns.
// Must not be called from a loop task; use StopInLoop there.
func (h *Handle[T]) Stop() {
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		h.p.loop.Post(h.halt)
	})
}

// StopInLoop is Stop for callers already on the loop.
func (h *Handle[T]) StopInLoop() {
	h.stopOnce.Do(func() {
		h.stopped.Store(true)
		h.halt()
	})
}

// Stopped reports whether Stop was called.
func (h *Handle[T]) Stopped() bool { return h.stopped.Load() }

func (h *Handle[T]) halt() {
	h.nextTimer.Stop()
	h.timeoutTimer.Stop()
	if h.cancelCall != nil {
		h.cancelCall()
	}
	h.inFlight = 0
	h.refreshPending = false
}

// Refresh asks for an immediate cycle. If a fetch is in flight one follow-up
// cycle runs right after it. Must not be called from a loop task.
func (h *Handle[T]) Refresh() {
	h.p.loop.Post(h.RefreshInLoop)
}

// RefreshInLoop is Refresh for callers already on the loop.
func (h *Handle[T]) RefreshInLoop() {
	if h.stopped.Load() {
		return
	}
	if h.inFlight != 0 {
		h.refreshPending = true
		return
	}
	h.dispatch()
}

// Stats returns a copy of the counters.
func (h *Handle[T]) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Handle[T]) update(fn func(*Stats)) {
	h.mu.Lock()
	fn(&h.stats)
	h.mu.Unlock()
}

func (h *Handle[T]) dispatch() {
	if h.stopped.Load() {
		return
	}
	if h.inFlight != 0 {
		h.refreshPending = true
		return
	}
	h.nextTimer.Stop()
	h.nextTimer = nil

	h.seq++
	seq := h.seq
	h.inFlight = seq
	start := h.p.loop.Now()
	h.update(func(s *Stats) { s.Dispatched++ })

	h.cancelCall = worker.Call(h.p.loop, h.p.fetch, func(v T, err error) {
		h.complete(seq, start, v, err)
	})
	if h.p.timeout > 0 {
		h.timeoutTimer = h.p.loop.After(h.p.timeout, func() { h.timedOut(seq) })
	}
}

func (h *Handle[T]) timedOut(seq uint64) {
	if h.stopped.Load() || h.inFlight != seq {
		return
	}
	h.timeoutTimer = nil
	if h.cancelCall != nil {
		h.cancelCall()
	}
	h.inFlight = 0
	h.fail(seq, fmt.Errorf("%w after %s", ErrTimeout, h.p.timeout))
	h.scheduleNext()
}

func (h *Handle[T]) complete(seq uint64, start time.Time, v T, err error) {
	if h.stopped.Load() {
		return
	}
	ctx := h.p.loop.Context()
	current := seq == h.inFlight
	if current {
		h.inFlight = 0
		h.timeoutTimer.Stop()
		h.timeoutTimer = nil
		metrics.RecordPollLatency(h.p.name, float64(h.p.loop.Now().Sub(start).Milliseconds()))
	}

	switch {
	case err != nil:
		if current {
			h.fail(seq, err)
		} else {
			h.p.log.Debug(ctx, "late poll failure ignored", logger.Uint64("seq", seq), logger.Error(err))
		}
	case seq <= h.lastApplied:
		metrics.RecordPoll(h.p.name, "stale")
		h.update(func(s *Stats) { s.Stale++ })
		h.p.log.Debug(ctx, "stale poll result dropped",
			logger.Uint64("seq", seq), logger.Uint64("last_applied", h.lastApplied))
	default:
		h.apply(ctx, seq, v)
	}

	if current {
		h.scheduleNext()
	}
}

func (h *Handle[T]) apply(ctx context.Context, seq uint64, v T) {
	if h.p.validate != nil && h.hasValue {
		if verr := h.p.validate(h.last, v); verr != nil {
			metrics.RecordPoll(h.p.name, "rejected")
			h.update(func(s *Stats) { s.Rejected++ })
			h.p.log.Warn(ctx, "poll result rejected", logger.Uint64("seq", seq), logger.Error(verr))
			return
		}
	}

	h.lastApplied = seq
	h.last = v
	h.hasValue = true
	h.notified = false
	metrics.RecordPoll(h.p.name, "ok")
	metrics.UpdatePollConsecutiveFailures(h.p.name, 0)
	now := h.p.loop.Now()
	h.update(func(s *Stats) {
		s.Applied++
		s.ConsecutiveFailures = 0
		s.LastError = nil
		s.LastSuccess = now
	})

	if h.cb != nil {
		h.cb(v)
	}
}

func (h *Handle[T]) fail(seq uint64, err error) {
	ctx := h.p.loop.Context()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	var consecutive int
	h.update(func(s *Stats) {
		s.Failures++
		s.ConsecutiveFailures++
		s.LastError = err
		consecutive = s.ConsecutiveFailures
	})
	metrics.RecordPoll(h.p.name, "failed")
	metrics.UpdatePollConsecutiveFailures(h.p.name, consecutive)
	h.p.log.Warn(ctx, "poll failed",
		logger.Uint64("seq", seq), logger.Int("consecutive", consecutive), logger.Error(err))

	if h.p.failureThreshold > 0 && consecutive >= h.p.failureThreshold && !h.notified {
		h.notified = true
		h.p.log.Error(ctx, "polling keeps failing", logger.Int("consecutive", consecutive), logger.Error(err))
		if h.p.onFailure != nil {
			h.p.onFailure(err, consecutive)
		}
	}
}

func (h *Handle[T]) scheduleNext() {
	if h.stopped.Load() {
		return
	}
	if h.refreshPending {
		h.refreshPending = false
		h.dispatch()
		return
	}
	h.nextTimer.Stop()
	h.nextTimer = h.p.loop.After(h.p.delay(h.Stats().ConsecutiveFailures), h.dispatch)
}

// delay is the wait before the next cycle: the interval, or an exponential
// backoff capped at maxBackoff once failures reach the threshold.
func (s settings) delay(consecutive int) time.Duration {
	if s.failureThreshold <= 0 || consecutive < s.failureThreshold {
		return s.interval
	}
	d := s.interval
	for i := s.failureThreshold; i <= consecutive; i++ {
		d *= 2
		if s.maxBackoff > 0 && d >= s.maxBackoff {
			return s.maxBackoff
		}
	}
	return d
}
