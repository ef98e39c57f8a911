package winclaim

import "errors"

var (
	ErrRequestInFlight    = errors.New("winclaim: request already in flight")
	ErrNotClaimable       = errors.New("winclaim: winnings cannot be claimed now")
	ErrClaimed            = errors.New("winclaim: winnings already claimed")
	ErrDistributionFailed = errors.New("winclaim: winnings distribution failed")
)
