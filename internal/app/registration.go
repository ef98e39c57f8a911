package service

import (
	"context"
	"errors"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// Payment destinations.
const (
	DefaultServiceFeeAccount model.Identity = "bingo-service-fee"
	DefaultGameAccount       model.Identity = "bingo-backend"
)

// RegistrarOption configures a Registrar.
type RegistrarOption func(*Registrar)

// WithServiceFeeAccount sets where the service fee is sent.
func WithServiceFeeAccount(id model.Identity) RegistrarOption {
	return func(r *Registrar) {
		if id != model.Anonymous {
			r.serviceFee = id
		}
	}
}

// WithGameAccount sets where the net entry payment is sent.
func WithGameAccount(id model.Identity) RegistrarOption {
	return func(r *Registrar) {
		if id != model.Anonymous {
			r.gameAccount = id
		}
	}
}

// WithRegistrarTimeout bounds the whole registration.
func WithRegistrarTimeout(d time.Duration) RegistrarOption {
	return func(r *Registrar) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRegistrarLogger sets the registrar logger.
func WithRegistrarLogger(l logger.Logger) RegistrarOption {
	return func(r *Registrar) {
		if l != nil {
			r.log = l
		}
	}
}

// Registrar pays for and records game registrations of the local user.
type Registrar struct {
	backend     model.Backend
	ledger      model.Ledger
	local       model.Identity
	serviceFee  model.Identity
	gameAccount model.Identity
	timeout     time.Duration
	log         logger.Logger
}

// NewRegistrar creates a registrar. ledger may be nil when only free games
// are joined.
func NewRegistrar(backend model.Backend, ledger model.Ledger, local model.Identity, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		backend:     backend,
		ledger:      ledger,
		local:       local,
		serviceFee:  DefaultServiceFeeAccount,
		gameAccount: DefaultGameAccount,
		timeout:     DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("registration")
	}
	return r
}

// Register joins game g. Priced games are paid with two ledger transfers,
// the service fee and the net amount, before the payment is recorded.
// A failure after the first transfer is not rolled back.
func (r *Registrar) Register(ctx context.Context, g model.GameSummary, password string) (Notice, error) {
	n, outcome, err := r.register(ctx, g, password)
	metrics.RecordRegistration(outcome)
	log := r.log.With(logger.GameID(g.GameNumber), logger.String("outcome", outcome))
	if err != nil {
		log.Warn(ctx, "registration failed", logger.Error(err))
	} else {
		log.Info(ctx, "registration settled")
	}
	return n, err
}

func (r *Registrar) register(ctx context.Context, g model.GameSummary, password string) (Notice, string, error) {
	switch {
	case r.local == model.Anonymous:
		return failure("sign_in", "Please log in first."), "refused", ErrAnonymous
	case g.HostPrincipalID == r.local:
		return warning("host_cannot_join", "You are the host of this game and cannot register for it."), "refused", ErrHostCannotJoin
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	id := g.GameNumber

	paid, err := r.backend.HasUserPaid(ctx, id, r.local)
	if err != nil {
		return failure("payment_failed", "Error checking registration: "+err.Error()), "failed", err
	}
	if paid {
		return info("already_registered", "You have already registered for the game."), "already_paid", nil
	}

	var pw *string
	if g.PasswordProtected {
		if password == "" {
			return warning("password_required", "Please enter the game password."), "bad_password", ErrPasswordRequired
		}
		ok, err := r.backend.VerifyGamePassword(ctx, id, password)
		if err != nil {
			return failure("payment_failed", "Error verifying password: "+err.Error()), "failed", err
		}
		if !ok {
			return failure("bad_password", "Incorrect password."), "bad_password", model.ErrInvalidPassword
		}
		pw = &password
	}

	price, err := r.backend.GetGamePrice(ctx, id)
	if err != nil {
		return failure("payment_failed", "Error reading game price: "+err.Error()), "failed", err
	}
	if price > 0 {
		if n, outcome, err := r.pay(ctx, id, price); err != nil {
			return n, outcome, err
		}
	}

	ok, err := r.backend.RecordPayment(ctx, id, pw)
	switch {
	case errors.Is(err, model.ErrAlreadyPaid):
		return info("already_registered", "You have already registered for the game."), "already_paid", nil
	case errors.Is(err, model.ErrInvalidPassword):
		return failure("bad_password", "Incorrect password."), "bad_password", err
	case err != nil:
		return failure("payment_failed", "Error processing payment: "+err.Error()), "failed", err
	case !ok:
		return failure("payment_failed", "Failed to record payment."), "failed", ErrPaymentNotRecorded
	}
	return success("registered", "Payment successful! You can now join the game."), "ok", nil
}

func (r *Registrar) pay(ctx context.Context, game, price uint64) (Notice, string, error) {
	if r.ledger == nil {
		return failure("payment_failed", "No wallet is configured for paid games."), "failed", ErrNoLedger
	}
	fee, net := finance.RegistrationSplit(price)
	for _, t := range []model.TransferRequest{
		{To: r.serviceFee, AmountE8s: fee, FeeE8s: finance.LedgerTransferFeeE8s, Memo: game},
		{To: r.gameAccount, AmountE8s: net, FeeE8s: finance.LedgerTransferFeeE8s, Memo: game},
	} {
		tx, err := r.ledger.Transfer(ctx, t)
		if errors.Is(err, model.ErrInsufficientFunds) {
			return failure("insufficient_funds", "You do not have enough ICP to make this transaction."), "insufficient_funds", err
		}
		if err != nil {
			return failure("payment_failed", "Error processing payment: "+err.Error()), "failed", err
		}
		r.log.Debug(ctx, "transfer sent", logger.GameID(game),
			logger.String("to", string(t.To)), logger.Uint64("amount", t.AmountE8s), logger.Uint64("tx", tx))
	}
	return Notice{}, "", nil
}
