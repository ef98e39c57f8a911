// Package worker runs a session's cooperative loop.
//
// A Loop owns one goroutine that drains a task queue. Timers and finished
// network calls never touch session state directly; they post a task and the
// loop runs it, so everything a session owns is only ever touched by one
// goroutine. Stopping the loop cancels its context, which aborts in-flight
// calls, and any task posted afterwards is dropped.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/queue"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Loop is a single-goroutine task runner with timers and cancellable calls.
type Loop struct {
	name       string
	bufferSize int
	clock      clockwork.Clock
	logger     logger.Logger

	queue  *queue.InMemoryQueue
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	// deferred is only touched on the loop goroutine.
	deferred []func()
}

// NewLoop creates a loop bound to parent. Call Start to run it.
func NewLoop(parent context.Context, opts ...Option) *Loop {
	l := &Loop{
		name:  "loop",
		clock: clockwork.NewRealClock(),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("loop")
	}
	l.logger = l.logger.With(logger.String("loop", l.name))

	qopts := []queue.Option{queue.WithName(l.name)}
	if l.bufferSize > 0 {
		qopts = append(qopts, queue.WithBufferSize(l.bufferSize))
	}
	l.queue = queue.NewInMemoryQueue(qopts...)
	l.ctx, l.cancel = context.WithCancel(parent)
	return l
}

// Start launches the loop goroutine. Further calls are no-ops.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

func (l *Loop) run() {
	defer close(l.done)
	defer func() { _ = l.queue.Close() }()

	tasks := l.queue.Dequeue()
	for {
		select {
		case <-l.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			l.exec(t)
			for len(l.deferred) > 0 && l.ctx.Err() == nil {
				next := l.deferred[0]
				l.deferred = l.deferred[1:]
				l.exec(next)
			}
			l.deferred = nil
		}
	}
}

func (l *Loop) exec(t func()) {
	if l.ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error(l.ctx, "task panicked", logger.String("panic", fmt.Sprint(r)))
		}
	}()
	t()
}

// Stop cancels the loop context. It is idempotent and does not wait.
func (l *Loop) Stop() {
	l.stopOnce.Do(l.cancel)
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Wait blocks until the loop exits or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("loop %s: %w", l.name, ctx.Err())
	}
}

// Context is canceled when the loop stops.
func (l *Loop) Context() context.Context { return l.ctx }

// Clock is the loop's time source.
func (l *Loop) Clock() clockwork.Clock { return l.clock }

// Now reads the loop clock.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// Name identifies the loop in logs and metrics.
func (l *Loop) Name() string { return l.name }

// Post schedules fn on the loop from any goroutine. It blocks while the
// queue is full and returns false once the loop has stopped.
// Do not call Post from a loop task; use Defer.
func (l *Loop) Post(fn func()) bool {
	return l.queue.Put(l.ctx, fn) == nil
}

// Defer runs fn on the loop right after the current task. Loop only.
func (l *Loop) Defer(fn func()) {
	l.deferred = append(l.deferred, fn)
}

// Do runs fn on the loop and waits for it. Must not be called from a loop task.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-l.ctx.Done():
		// the task may still be running; wait for the loop to wind down
		<-l.done
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Timer is a one-shot loop timer. Its methods must be called on the loop.
type Timer struct {
	t        clockwork.Timer
	stop     chan struct{}
	canceled bool
	fired    bool
}

// After runs fn on the loop once d has elapsed on the loop clock.
func (l *Loop) After(d time.Duration, fn func()) *Timer {
	tm := &Timer{t: l.clock.NewTimer(d), stop: make(chan struct{})}
	go func() {
		select {
		case <-tm.t.Chan():
			l.Post(func() {
				if tm.canceled {
					return
				}
				tm.fired = true
				fn()
			})
		case <-tm.stop:
		case <-l.ctx.Done():
			tm.t.Stop()
		}
	}()
	return tm
}

// Stop cancels the timer. A fire already queued is discarded.
// It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	if t == nil || t.canceled {
		return false
	}
	t.canceled = true
	t.t.Stop()
	close(t.stop)
	return !t.fired
}

// Pending reports whether the timer has neither fired nor been stopped.
func (t *Timer) Pending() bool {
	return t != nil && !t.canceled && !t.fired
}

// Call runs fn off the loop with a context derived from the loop and posts
// done(result, err) back onto the loop. The returned cancel aborts fn; done
// still runs unless the loop itself has stopped, so callers must check
// whether the result is still wanted.
func Call[T any](l *Loop, fn func(context.Context) (T, error), done func(T, error)) context.CancelFunc {
	ctx, cancel := context.WithCancel(l.ctx)
	go func() {
		v, err := fn(ctx)
		cancel()
		l.Post(func() { done(v, err) })
	}()
	return cancel
}
