package ledger

import "errors"

// Sentinel errors for ledger operations. Insufficient balance is reported as
// model.ErrInsufficientFunds.
var (
	ErrBadFee         = errors.New("transfer fee does not match ledger fee")
	ErrSelfTransfer   = errors.New("cannot transfer to the same account")
	ErrAnonymous      = errors.New("anonymous account")
	ErrTxNotFound     = errors.New("transaction not found")
)
