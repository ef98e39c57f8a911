package finance

import "errors"

var (
	// ErrInvalidArgument is returned for out-of-range inputs.
	ErrInvalidArgument = errors.New("finance: invalid argument")
	// ErrOverflow is returned when a result does not fit in uint64 e8s.
	ErrOverflow = errors.New("finance: amount overflows")
)
