// Package ledger is an in-memory token ledger with per-transfer fees.
//
// It stands in for the payment service during local play and tests: entry
// fees are transferred into the game account, payouts leave it, and the
// backend claims incoming transfers when a payment is recorded.
package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Tx is one settled transfer.
type Tx struct {
	ID        uint64
	Ref       uuid.UUID
	From      model.Identity
	To        model.Identity
	AmountE8s uint64
	FeeE8s    uint64
	Memo      uint64
	At        time.Time
	Claimed   bool
}

// Book holds balances and the transaction log.
type Book struct {
	fee   uint64
	clock clockwork.Clock
	log   logger.Logger

	mu       sync.Mutex
	balances map[model.Identity]uint64
	txs      []Tx
}

// New creates an empty ledger charging finance.LedgerTransferFeeE8s per transfer.
func New(opts ...Option) *Book {
	b := &Book{
		fee:      finance.LedgerTransferFeeE8s,
		clock:    clockwork.NewRealClock(),
		balances: make(map[model.Identity]uint64),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.Get().Named("ledger")
	}
	return b
}

// Fee returns the transfer fee.
func (b *Book) Fee() uint64 { return b.fee }

// Mint credits amount to who out of thin air.
func (b *Book) Mint(who model.Identity, amount uint64) error {
	if who == model.Anonymous {
		return ErrAnonymous
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[who] > math.MaxUint64-amount {
		return fmt.Errorf("mint %d to %s: %w", amount, who, finance.ErrOverflow)
	}
	b.balances[who] += amount
	return nil
}

// Balance returns who's balance.
func (b *Book) Balance(who model.Identity) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[who]
}

// Transfer moves req.AmountE8s from from to req.To and burns the fee.
func (b *Book) Transfer(ctx context.Context, from model.Identity, req model.TransferRequest) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	switch {
	case from == model.Anonymous || req.To == model.Anonymous:
		return 0, ErrAnonymous
	case from == req.To:
		return 0, ErrSelfTransfer
	case req.FeeE8s != b.fee:
		return 0, fmt.Errorf("%w: got %d, want %d", ErrBadFee, req.FeeE8s, b.fee)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	debit := req.AmountE8s + req.FeeE8s
	if debit < req.AmountE8s || b.balances[from] < debit {
		b.log.Debug(ctx, "transfer refused",
			logger.String("from", string(from)), logger.Uint64("amount", req.AmountE8s),
			logger.Uint64("balance", b.balances[from]))
		return 0, fmt.Errorf("transfer of %d from %s: %w", req.AmountE8s, from, model.ErrInsufficientFunds)
	}
	if b.balances[req.To] > math.MaxUint64-req.AmountE8s {
		return 0, fmt.Errorf("credit %d to %s: %w", req.AmountE8s, req.To, finance.ErrOverflow)
	}

	b.balances[from] -= debit
	b.balances[req.To] += req.AmountE8s
	tx := Tx{
		ID:        uint64(len(b.txs)) + 1,
		Ref:       uuid.New(),
		From:      from,
		To:        req.To,
		AmountE8s: req.AmountE8s,
		FeeE8s:    req.FeeE8s,
		Memo:      req.Memo,
		At:        b.clock.Now(),
	}
	b.txs = append(b.txs, tx)
	b.log.Debug(ctx, "transfer settled",
		logger.Uint64("tx", tx.ID), logger.String("from", string(from)),
		logger.String("to", string(req.To)), logger.Uint64("amount", req.AmountE8s))
	return tx.ID, nil
}

// Claim marks the oldest unclaimed transfer from from to to of at least
// minAmount as claimed and returns it.
func (b *Book) Claim(from, to model.Identity, minAmount uint64) (Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.txs {
		tx := &b.txs[i]
		if tx.Claimed || tx.From != from || tx.To != to || tx.AmountE8s < minAmount {
			continue
		}
		tx.Claimed = true
		return *tx, nil
	}
	return Tx{}, ErrTxNotFound
}

// Transactions returns a copy of the log, oldest first.
func (b *Book) Transactions() []Tx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Tx(nil), b.txs...)
}

// Account is a model.Ledger bound to one owner.
type Account struct {
	book  *Book
	owner model.Identity
}

// Account returns a view that transfers on behalf of owner.
func (b *Book) Account(owner model.Identity) *Account {
	return &Account{book: b, owner: owner}
}

// Owner returns the account identity.
func (a *Account) Owner() model.Identity { return a.owner }

// Balance returns the owner's balance.
func (a *Account) Balance() uint64 { return a.book.Balance(a.owner) }

// Transfer implements model.Ledger.
func (a *Account) Transfer(ctx context.Context, req model.TransferRequest) (uint64, error) {
	return a.book.Transfer(ctx, a.owner, req)
}

var _ model.Ledger = (*Account)(nil)
