package memory

import (
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/ledger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// DefaultGameAccount receives net entry payments and pays out winnings.
const DefaultGameAccount model.Identity = "bingo-backend"

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock sets the store clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLedger settles entry payments and payouts on book. Without a ledger,
// payments are trusted and payouts are only recorded.
func WithLedger(book *ledger.Book) Option {
	return func(s *Store) {
		s.ledger = book
	}
}

// WithGameAccount sets the account holding entry payments.
func WithGameAccount(id model.Identity) Option {
	return func(s *Store) {
		if id != model.Anonymous {
			s.account = id
		}
	}
}

// WithStaleAfter sets the host takeover window.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithSeed makes card dealing and draw order deterministic.
func WithSeed(seed int64) Option {
	return func(s *Store) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}
