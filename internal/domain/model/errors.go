package model

import "errors"

// Domain rejections reported by the backend.
var (
	ErrGameNotFound        = errors.New("game not found")
	ErrGameNotInProgress   = errors.New("game is not in progress")
	ErrWinnerDeclared      = errors.New("a winner has been declared")
	ErrAllNumbersDrawn     = errors.New("all numbers have been drawn")
	ErrNotHost             = errors.New("caller is not the host")
	ErrHostAlreadyAssigned = errors.New("another user is already host")
	ErrTooEarlyToHost      = errors.New("too early to become host")
	ErrGameInProgress      = errors.New("game is already in progress")
	ErrGameHasWinner       = errors.New("game already has a winner")
	ErrAlreadyHost         = errors.New("caller is already host")
	ErrTooEarlyToStart     = errors.New("scheduled start time has not been reached")
	ErrGameAlreadyStarted  = errors.New("game already started")
	ErrGameCompleted       = errors.New("game is completed")
	ErrNotPaid             = errors.New("payment required")
	ErrAlreadyPaid         = errors.New("payment already recorded")
	ErrAlreadyHasCard      = errors.New("card already generated")
	ErrNoCard              = errors.New("no card for caller")
	ErrInvalidPassword     = errors.New("invalid game password")
	ErrNotWinner           = errors.New("caller is not the winner")
	ErrAlreadyDistributed  = errors.New("winnings already distributed")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)

// Local faults.
var (
	ErrUnknownResult   = errors.New("unknown result")
	ErrInvalidCard     = errors.New("invalid card data")
	ErrSnapshotAnomaly = errors.New("snapshot anomaly")
)

// IsGameOver reports whether err means no further number can be drawn.
func IsGameOver(err error) bool {
	return errors.Is(err, ErrGameNotInProgress) ||
		errors.Is(err, ErrWinnerDeclared) ||
		errors.Is(err, ErrAllNumbersDrawn)
}
