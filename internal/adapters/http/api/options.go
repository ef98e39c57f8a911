package api

import (
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/dedupe"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDeduper replaces the request-ID deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Server) {
		if d != nil {
			s.dedupe = d
		}
	}
}
