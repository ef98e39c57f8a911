package simulate

import "errors"

var (
	ErrUnhealthy = errors.New("backend unhealthy")
	ErrNoWinner  = errors.New("all numbers drawn without a winner")
	ErrMismatch  = errors.New("backend disagrees with the simulation")
	ErrBadConfig = errors.New("invalid simulation config")
)
