package publisher

import "errors"

var (
	ErrConnect = errors.New("connect to nats")
	ErrClosed  = errors.New("publisher closed")
)
