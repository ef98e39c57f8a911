package autodraw

import "errors"

var (
	// ErrNotDrawable is returned when the latest snapshot is not in progress,
	// already has a winner, or has every number drawn.
	ErrNotDrawable = errors.New("game is not drawable")
	// ErrDrawInFlight is returned when a draw request is already outstanding.
	ErrDrawInFlight = errors.New("a draw is already in flight")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("auto-draw scheduler closed")
)
