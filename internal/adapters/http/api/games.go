package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/memory"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/wire"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.caller(r).GetActiveGames(r.Context())
	out := make([]wire.Game, 0, len(games))
	for _, g := range games {
		out = append(out, wire.FromSummary(g))
	}
	reply(s, w, r, out, err)
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req wire.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := req.Model()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.caller(r).CreateGame(r.Context(), m)
	reply(s, w, r, id, err)
}

func (s *Server) username(w http.ResponseWriter, r *http.Request) {
	name, ok, err := s.caller(r).GetUsername(r.Context(), model.Identity(chi.URLParam(r, "who")))
	var v *string
	if ok {
		v = &name
	}
	reply(s, w, r, v, err)
}

func (s *Server) inProgress(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.IsGameInProgress(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) winner(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GetWinner(r.Context(), id)
		reply(s, w, r, wire.FromWinner(v), err)
	})
}

func (s *Server) calledNumbers(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GetCalledNumbers(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) latestNumber(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		n, ok, err := c.GetLatestNumber(r.Context(), id)
		var v *int
		if ok {
			v = &n
		}
		reply(s, w, r, v, err)
	})
}

func (s *Server) winType(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GetWinType(r.Context(), id)
		reply(s, w, r, wire.EncodeWinType(v), err)
	})
}

func (s *Server) cardCount(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GetCardCount(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) allDrawn(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.AreAllNumbersDrawn(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) price(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GetGamePrice(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) playerCard(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GetMyCard(r.Context(), id, model.Identity(chi.URLParam(r, "who")))
		reply(s, w, r, v, err)
	})
}

func (s *Server) hasCard(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.HasCard(r.Context(), id, model.Identity(chi.URLParam(r, "who")))
		reply(s, w, r, v, err)
	})
}

func (s *Server) hasPaid(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.HasUserPaid(r.Context(), id, model.Identity(chi.URLParam(r, "who")))
		reply(s, w, r, v, err)
	})
}

func (s *Server) verifyPassword(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		var req wire.PasswordRequest
		if err := decodeBody(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		v, err := c.VerifyGamePassword(r.Context(), id, req.Password)
		reply(s, w, r, v, err)
	})
}

func (s *Server) draw(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		reply(s, w, r, struct{}{}, c.DrawNextNumber(r.Context(), id))
	})
}

func (s *Server) checkWin(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		var req wire.CheckWinRequest
		if err := decodeBody(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		v, err := c.CheckWin(r.Context(), id, req.Marks)
		reply(s, w, r, wire.EncodeCheckWin(v), err)
	})
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		reply(s, w, r, struct{}{}, c.StartGame(r.Context(), id))
	})
}

func (s *Server) becomeHost(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.BecomeHost(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) distribute(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.DistributeWinnings(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) generateCard(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		v, err := c.GenerateCard(r.Context(), id)
		reply(s, w, r, v, err)
	})
}

func (s *Server) recordPayment(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, func(c *memory.Client, id uint64) {
		var req wire.PaymentRequest
		if err := decodeBody(r, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		v, err := c.RecordPayment(r.Context(), id, req.Password)
		reply(s, w, r, v, err)
	})
}
