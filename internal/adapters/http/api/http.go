// Package api exposes the in-memory game backend over the JSON wire
// contract in package wire.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/memory"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/wire"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/http/swagger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/dedupe"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 16
)

// Server wires HTTP routes onto a store.
type Server struct {
	store  *memory.Store
	dedupe dedupe.Deduper
	log    logger.Logger
}

// NewServer creates a server for store.
func NewServer(store *memory.Store, opts ...Option) *Server {
	s := &Server{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.dedupe == nil {
		s.dedupe = dedupe.NewInMemoryDeduper()
	}
	if s.log == nil {
		s.log = logger.Get().Named("api")
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	swagger.Register(r)

	r.Route(wire.BasePath, func(r chi.Router) {
		r.Get("/games", s.listGames)
		r.With(s.idempotent).Post("/games", s.createGame)
		r.Get("/users/{who}/username", s.username)

		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/in-progress", s.inProgress)
			r.Get("/winner", s.winner)
			r.Get("/called-numbers", s.calledNumbers)
			r.Get("/latest-number", s.latestNumber)
			r.Get("/win-type", s.winType)
			r.Get("/card-count", s.cardCount)
			r.Get("/all-drawn", s.allDrawn)
			r.Get("/price", s.price)
			r.Get("/players/{who}/card", s.playerCard)
			r.Get("/players/{who}/has-card", s.hasCard)
			r.Get("/players/{who}/paid", s.hasPaid)
			r.Post("/password/verify", s.verifyPassword)

			r.Group(func(r chi.Router) {
				r.Use(s.idempotent)
				r.Post("/draw", s.draw)
				r.Post("/check-win", s.checkWin)
				r.Post("/start", s.start)
				r.Post("/become-host", s.becomeHost)
				r.Post("/distribute", s.distribute)
				r.Post("/cards", s.generateCard)
				r.Post("/payments", s.recordPayment)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "backend api listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrServe, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) caller(r *http.Request) *memory.Client {
	return s.store.Client(model.Identity(r.Header.Get(wire.HeaderIdentity)))
}

func gameID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: game id %q", model.ErrInvalidArgument, chi.URLParam(r, "id"))
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, wire.Error{Code: code, Message: msg})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeError(w, status, model.ErrorCode(err), err)
}

// reply writes v as a wire value or maps err.
func reply[T any](s *Server, w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wire.Value[T]{Value: v})
}

// withGame parses the game id and runs fn with the caller's client.
func (s *Server) withGame(w http.ResponseWriter, r *http.Request, fn func(c *memory.Client, id uint64)) {
	id, err := gameID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fn(s.caller(r), id)
}
