package service

import "errors"

// Local refusals raised before any backend call.
var (
	ErrSessionStopped     = errors.New("session stopped")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrNoSnapshot         = errors.New("game state not loaded yet")
	ErrActionInFlight     = errors.New("action already in progress")
	ErrAnonymous          = errors.New("sign in required")
	ErrHostCannotJoin     = errors.New("hosts cannot register for their own game")
	ErrPasswordRequired   = errors.New("password required")
	ErrNoCard             = errors.New("no card loaded")
	ErrTakeoverRejected   = errors.New("takeover rejected")
	ErrInvalidGame        = errors.New("invalid game settings")
	ErrNoLedger           = errors.New("no ledger configured")
	ErrPaymentNotRecorded = errors.New("payment not recorded")
)
