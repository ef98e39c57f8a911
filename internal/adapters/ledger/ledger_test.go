package ledger

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

func TestBookTransfer(t *testing.T) {
	Convey("Given a ledger with a funded account", t, func() {
		ctx := context.Background()
		book := New(WithLogger(logger.Nop()))
		So(book.Mint("alice", 1_000_000), ShouldBeNil)
		alice := book.Account("alice")

		Convey("When alice pays bob", func() {
			id, err := alice.Transfer(ctx, model.TransferRequest{To: "bob", AmountE8s: 400_000, FeeE8s: book.Fee(), Memo: 7})

			Convey("Then the amount moves and the fee is burned", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, uint64(1))
				So(alice.Balance(), ShouldEqual, uint64(590_000))
				So(book.Balance("bob"), ShouldEqual, uint64(400_000))

				txs := book.Transactions()
				So(txs, ShouldHaveLength, 1)
				So(txs[0].Memo, ShouldEqual, uint64(7))
				So(txs[0].Ref.String(), ShouldNotBeEmpty)
			})
		})

		Convey("When the balance does not cover amount plus fee", func() {
			_, err := alice.Transfer(ctx, model.TransferRequest{To: "bob", AmountE8s: 995_000, FeeE8s: book.Fee()})

			Convey("Then insufficient funds is reported and nothing moves", func() {
				So(errors.Is(err, model.ErrInsufficientFunds), ShouldBeTrue)
				So(alice.Balance(), ShouldEqual, uint64(1_000_000))
				So(book.Transactions(), ShouldBeEmpty)
			})
		})

		Convey("When the fee is wrong", func() {
			_, err := alice.Transfer(ctx, model.TransferRequest{To: "bob", AmountE8s: 1, FeeE8s: 1})
			So(errors.Is(err, ErrBadFee), ShouldBeTrue)
		})

		Convey("When paying oneself or an anonymous account", func() {
			_, err := alice.Transfer(ctx, model.TransferRequest{To: "alice", AmountE8s: 1, FeeE8s: book.Fee()})
			So(errors.Is(err, ErrSelfTransfer), ShouldBeTrue)
			_, err = alice.Transfer(ctx, model.TransferRequest{To: model.Anonymous, AmountE8s: 1, FeeE8s: book.Fee()})
			So(errors.Is(err, ErrAnonymous), ShouldBeTrue)
		})

		Convey("When the context is already canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := alice.Transfer(cctx, model.TransferRequest{To: "bob", AmountE8s: 1, FeeE8s: book.Fee()})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestBookClaim(t *testing.T) {
	Convey("Given two transfers into the game account", t, func() {
		ctx := context.Background()
		book := New(WithLogger(logger.Nop()), WithFee(0))
		So(book.Mint("alice", 500), ShouldBeNil)
		_, err := book.Transfer(ctx, "alice", model.TransferRequest{To: "pot", AmountE8s: 100})
		So(err, ShouldBeNil)
		_, err = book.Transfer(ctx, "alice", model.TransferRequest{To: "pot", AmountE8s: 300})
		So(err, ShouldBeNil)

		Convey("Then claims consume each transfer once", func() {
			tx, err := book.Claim("alice", "pot", 200)
			So(err, ShouldBeNil)
			So(tx.AmountE8s, ShouldEqual, uint64(300))

			_, err = book.Claim("alice", "pot", 200)
			So(errors.Is(err, ErrTxNotFound), ShouldBeTrue)

			tx, err = book.Claim("alice", "pot", 0)
			So(err, ShouldBeNil)
			So(tx.ID, ShouldEqual, uint64(1))
		})

		Convey("Then a claim from another sender finds nothing", func() {
			_, err := book.Claim("bob", "pot", 0)
			So(errors.Is(err, ErrTxNotFound), ShouldBeTrue)
		})
	})
}
