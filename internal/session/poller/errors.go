package poller

import "errors"

// ErrTimeout marks a fetch abandoned because it took too long.
var ErrTimeout = errors.New("poll timed out")
