package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

type fakeConn struct {
	msgs   []*nats.Msg
	err    error
	closed int
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) Close() { f.closed++ }

func TestPublisher(t *testing.T) {
	Convey("Given a publisher on a fake connection", t, func() {
		conn := &fakeConn{}
		clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		p := New(conn, WithSubjectPrefix("test.events"), WithSessionID("s-1"), WithClock(clock), WithLogger(logger.Nop()))

		Convey("When a number is called", func() {
			err := p.Publish(model.Event{Kind: model.EventNumberCalled, Game: 7, Number: 42, Letter: "N"})
			So(err, ShouldBeNil)
			So(conn.msgs, ShouldHaveLength, 1)
			msg := conn.msgs[0]

			Convey("Then it lands on the game subject with a decodable envelope", func() {
				So(msg.Subject, ShouldEqual, "test.events.game.7.number_called")
				So(msg.Header.Get("Event-Type"), ShouldEqual, "number_called")

				var env Envelope
				So(json.Unmarshal(msg.Data, &env), ShouldBeNil)
				So(env.EventID, ShouldEqual, msg.Header.Get("Event-ID"))
				So(env.Session, ShouldEqual, "s-1")
				So(env.Game, ShouldEqual, uint64(7))
				So(env.Payload.Number, ShouldEqual, 42)
				So(env.Payload.Letter, ShouldEqual, "N")
				So(env.Payload.Cell, ShouldBeNil)
				So(env.Timestamp.Equal(clock.Now()), ShouldBeTrue)
			})
		})

		Convey("When a winner is declared", func() {
			w := &model.Winner{AccountID: "alice", DisplayName: "Alice"}
			So(p.Publish(model.Event{Kind: model.EventWinnerDeclared, Game: 7, Winner: w}), ShouldBeNil)

			var env Envelope
			So(json.Unmarshal(conn.msgs[0].Data, &env), ShouldBeNil)
			So(env.Payload.WinnerAccount, ShouldEqual, "alice")
			So(env.Payload.WinnerName, ShouldEqual, "Alice")
		})

		Convey("When the free cell toggle is reported", func() {
			So(p.Publish(model.Event{Kind: model.EventCardToggled, Game: 7, Cell: 0, Marked: true}), ShouldBeNil)

			var env Envelope
			So(json.Unmarshal(conn.msgs[0].Data, &env), ShouldBeNil)
			So(env.Payload.Cell, ShouldNotBeNil)
			So(*env.Payload.Cell, ShouldEqual, 0)
			So(*env.Payload.Marked, ShouldBeTrue)
		})

		Convey("When the connection rejects a message", func() {
			conn.err = nats.ErrConnectionClosed
			err := p.Publish(model.Event{Kind: model.EventClaimed, Game: 7})
			So(errors.Is(err, nats.ErrConnectionClosed), ShouldBeTrue)
		})

		Convey("When the publisher is closed", func() {
			p.Close()
			p.Close()

			Convey("Then the connection closes once and publishing fails", func() {
				So(conn.closed, ShouldEqual, 1)
				So(errors.Is(p.Publish(model.Event{Kind: model.EventClaimed}), ErrClosed), ShouldBeTrue)
			})
		})
	})
}
