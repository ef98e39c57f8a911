package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/smartystreets/goconvey/convey"

	worker "github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/worker"
	logging "github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

const waitLimit = 2 * time.Second

func recv[T any](ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(waitLimit):
		var zero T
		return zero, false
	}
}

func newLoop(clock clockwork.Clock) *worker.Loop {
	l := worker.NewLoop(context.Background(),
		worker.WithName("test"),
		worker.WithClock(clock),
		worker.WithLogger(logging.Nop()),
		worker.WithBufferSize(8),
	)
	l.Start()
	return l
}

func TestLoopTasks(t *testing.T) {
	convey.Convey("Given a running loop", t, func() {
		loop := newLoop(clockwork.NewFakeClock())
		defer loop.Stop()

		convey.Convey("When tasks are posted", func() {
			var order []int
			for i := 0; i < 5; i++ {
				i := i
				convey.So(loop.Post(func() { order = append(order, i) }), convey.ShouldBeTrue)
			}
			convey.So(loop.Do(func() {}), convey.ShouldBeNil)

			convey.Convey("Then they run in order on the loop", func() {
				var got []int
				convey.So(loop.Do(func() { got = append(got, order...) }), convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, []int{0, 1, 2, 3, 4})
			})
		})

		convey.Convey("When a task defers more work", func() {
			var order []string
			convey.So(loop.Do(func() {
				loop.Defer(func() { order = append(order, "deferred") })
				order = append(order, "task")
			}), convey.ShouldBeNil)
			convey.So(loop.Do(func() {}), convey.ShouldBeNil)

			convey.Convey("Then the deferred work runs right after the task", func() {
				var got []string
				_ = loop.Do(func() { got = append(got, order...) })
				convey.So(got, convey.ShouldResemble, []string{"task", "deferred"})
			})
		})

		convey.Convey("When a task panics", func() {
			convey.So(loop.Do(func() { panic("boom") }), convey.ShouldBeNil)

			convey.Convey("Then the loop keeps running", func() {
				ran := false
				convey.So(loop.Do(func() { ran = true }), convey.ShouldBeNil)
				convey.So(ran, convey.ShouldBeTrue)
			})
		})
	})
}

func TestLoopTimers(t *testing.T) {
	convey.Convey("Given a loop on a fake clock", t, func() {
		clock := clockwork.NewFakeClock()
		loop := newLoop(clock)
		defer loop.Stop()

		convey.Convey("When a timer is armed", func() {
			fired := make(chan struct{}, 1)
			var tm *worker.Timer
			convey.So(loop.Do(func() {
				tm = loop.After(7*time.Second, func() { fired <- struct{}{} })
			}), convey.ShouldBeNil)

			convey.Convey("Then it fires only once the delay has elapsed", func() {
				clock.Advance(6 * time.Second)
				select {
				case <-fired:
					convey.So("fired early", convey.ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
				}
				clock.Advance(time.Second)
				_, ok := recv(fired)
				convey.So(ok, convey.ShouldBeTrue)

				var pending bool
				_ = loop.Do(func() { pending = tm.Pending() })
				convey.So(pending, convey.ShouldBeFalse)
			})

			convey.Convey("Then stopping it prevents the fire", func() {
				var wasPending bool
				_ = loop.Do(func() { wasPending = tm.Stop() })
				convey.So(wasPending, convey.ShouldBeTrue)
				clock.Advance(time.Minute)
				_ = loop.Do(func() {})
				select {
				case <-fired:
					convey.So("fired after stop", convey.ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
				}
				_ = loop.Do(func() { convey.So(tm.Stop(), convey.ShouldBeFalse) })
			})
		})
	})
}

func TestLoopCalls(t *testing.T) {
	convey.Convey("Given a running loop", t, func() {
		loop := newLoop(clockwork.NewRealClock())
		defer loop.Stop()

		convey.Convey("When a call completes", func() {
			results := make(chan int, 1)
			_ = loop.Do(func() {
				worker.Call(loop, func(ctx context.Context) (int, error) {
					return 42, nil
				}, func(v int, err error) { results <- v })
			})

			convey.Convey("Then the result is delivered on the loop", func() {
				v, ok := recv(results)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(v, convey.ShouldEqual, 42)
			})
		})

		convey.Convey("When a call is canceled", func() {
			errs := make(chan error, 1)
			var cancel context.CancelFunc
			_ = loop.Do(func() {
				cancel = worker.Call(loop, func(ctx context.Context) (struct{}, error) {
					<-ctx.Done()
					return struct{}{}, ctx.Err()
				}, func(_ struct{}, err error) { errs <- err })
			})
			cancel()

			convey.Convey("Then the call observes the cancellation", func() {
				err, ok := recv(errs)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the loop stops with a call in flight", func() {
			var delivered atomic.Bool
			started := make(chan struct{})
			returned := make(chan struct{})
			_ = loop.Do(func() {
				worker.Call(loop, func(ctx context.Context) (int, error) {
					close(started)
					<-ctx.Done()
					defer close(returned)
					return 0, ctx.Err()
				}, func(int, error) { delivered.Store(true) })
			})
			_, _ = recv(started)
			loop.Stop()

			convey.Convey("Then the call is aborted and its result dropped", func() {
				_, ok := recv(returned)
				convey.So(ok, convey.ShouldBeTrue)
				_, ok = recv(loop.Done())
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(delivered.Load(), convey.ShouldBeFalse)
			})
		})
	})
}

func TestLoopStop(t *testing.T) {
	convey.Convey("Given a running loop", t, func() {
		loop := newLoop(clockwork.NewFakeClock())

		convey.Convey("When it is stopped twice", func() {
			loop.Stop()
			loop.Stop()

			convey.Convey("Then it exits and refuses work", func() {
				ctx, cancel := context.WithTimeout(context.Background(), waitLimit)
				defer cancel()
				convey.So(loop.Wait(ctx), convey.ShouldBeNil)
				convey.So(loop.Post(func() {}), convey.ShouldBeFalse)
				convey.So(errors.Is(loop.Do(func() {}), worker.ErrStopped), convey.ShouldBeTrue)
				convey.So(loop.Context().Err(), convey.ShouldNotBeNil)
			})
		})
	})
}
