package winclaim

import "github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"

// Option configures a Flow.
type Option func(*Flow)

// WithLogger sets the flow logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}
