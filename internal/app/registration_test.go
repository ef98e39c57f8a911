package service_test

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/dickhery/Blockchain-Bingo-on-ICP/internal/app"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

func (w *world) summary(id uint64) model.GameSummary {
	games, err := w.store.Client(model.Anonymous).GetActiveGames(w.ctx)
	So(err, ShouldBeNil)
	var sum model.GameSummary
	for _, g := range games {
		if g.GameNumber == id {
			sum = g
		}
	}
	So(sum.GameNumber, ShouldEqual, id)
	return sum
}

func (w *world) registrar(who model.Identity) *service.Registrar {
	return service.NewRegistrar(w.store.Client(who), w.book.Account(who), who,
		service.WithGameAccount(w.store.GameAccount()),
		service.WithServiceFeeAccount("fees"),
		service.WithRegistrarLogger(logger.Nop()))
}

func TestRegistration(t *testing.T) {
	Convey("Given a free game", t, func() {
		w := newWorld()
		id := w.createGame("host", time.Hour)
		g := w.summary(id)

		Convey("When a player registers", func() {
			n, err := w.registrar("bob").Register(w.ctx, g, "")

			Convey("Then the payment is recorded without any transfer", func() {
				So(err, ShouldBeNil)
				So(n.Message, ShouldEqual, "Payment successful! You can now join the game.")
				paid, err := w.store.Client("bob").HasUserPaid(w.ctx, id, "bob")
				So(err, ShouldBeNil)
				So(paid, ShouldBeTrue)
				So(w.book.Transactions(), ShouldBeEmpty)
			})

			Convey("Then registering again short-circuits", func() {
				n, err := w.registrar("bob").Register(w.ctx, g, "")
				So(err, ShouldBeNil)
				So(n.Level, ShouldEqual, service.LevelInfo)
				So(n.Message, ShouldEqual, "You have already registered for the game.")
			})
		})

		Convey("When the host registers for their own game", func() {
			_, err := w.registrar("host").Register(w.ctx, g, "")
			So(errors.Is(err, service.ErrHostCannotJoin), ShouldBeTrue)
		})

		Convey("When an anonymous user registers", func() {
			n, err := w.registrar(model.Anonymous).Register(w.ctx, g, "")
			So(errors.Is(err, service.ErrAnonymous), ShouldBeTrue)
			So(n.Code, ShouldEqual, "sign_in")
		})
	})

	Convey("Given a priced, password protected game", t, func() {
		w := newWorld()
		pw := "secret"
		price := uint64(finance.E8sPerUnit)
		id, err := w.store.Client("host").CreateGame(w.ctx, model.CreateGameRequest{
			Name:                 "High Stakes",
			ScheduledStartTimeMs: w.clock.Now().Add(time.Hour).UnixMilli(),
			PriceE8s:             price,
			Password:             &pw,
		})
		So(err, ShouldBeNil)
		g := w.summary(id)
		So(g.PasswordProtected, ShouldBeTrue)

		Convey("When the password is missing", func() {
			_, err := w.registrar("bob").Register(w.ctx, g, "")
			So(errors.Is(err, service.ErrPasswordRequired), ShouldBeTrue)
		})

		Convey("When the password is wrong", func() {
			So(w.book.Mint("bob", 2*price), ShouldBeNil)
			n, err := w.registrar("bob").Register(w.ctx, g, "guess")

			Convey("Then nothing is paid", func() {
				So(errors.Is(err, model.ErrInvalidPassword), ShouldBeTrue)
				So(n.Message, ShouldEqual, "Incorrect password.")
				So(w.book.Balance("bob"), ShouldEqual, 2*price)
			})
		})

		Convey("When the player cannot afford it", func() {
			n, err := w.registrar("bob").Register(w.ctx, g, pw)

			Convey("Then insufficient funds is reported", func() {
				So(errors.Is(err, model.ErrInsufficientFunds), ShouldBeTrue)
				So(n.Code, ShouldEqual, "insufficient_funds")
				So(n.Message, ShouldEqual, "You do not have enough ICP to make this transaction.")
			})
		})

		Convey("When a funded player registers", func() {
			So(w.book.Mint("bob", 2*price), ShouldBeNil)
			n, err := w.registrar("bob").Register(w.ctx, g, pw)

			Convey("Then the fee and net amounts are transferred and claimed", func() {
				So(err, ShouldBeNil)
				So(n.Code, ShouldEqual, "registered")
				fee, net := finance.RegistrationSplit(price)
				So(w.book.Balance("fees"), ShouldEqual, fee)
				So(w.book.Balance(w.store.GameAccount()), ShouldEqual, net)
				So(w.book.Balance("bob"), ShouldEqual, 2*price-finance.TotalDue(price))
				txs := w.book.Transactions()
				So(txs, ShouldHaveLength, 2)
				So(txs[1].Claimed, ShouldBeTrue)
				So(txs[0].Memo, ShouldEqual, id)
			})
		})
	})
}
