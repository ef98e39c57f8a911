package ledger

import (
	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Option applies a configuration option to the Book.
type Option func(*Book)

// WithFee sets the fee charged to the sender of every transfer.
func WithFee(e8s uint64) Option {
	return func(b *Book) {
		b.fee = e8s
	}
}

// WithClock sets the clock used to timestamp transactions.
func WithClock(c clockwork.Clock) Option {
	return func(b *Book) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Book) {
		if l != nil {
			b.log = l
		}
	}
}
