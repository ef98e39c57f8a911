package api

import (
	"errors"
	"net/http"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrServe           = errors.New("backend api serve failed")
	ErrRequestInFlight = errors.New("request with this ID is still running")
)

// codeRequestInFlight is returned while a deduplicated request is running.
const codeRequestInFlight = "request_in_flight"

// statusFor maps a backend error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrGameNotFound), errors.Is(err, model.ErrNoCard):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNotHost), errors.Is(err, model.ErrNotWinner):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInsufficientFunds), errors.Is(err, model.ErrNotPaid):
		return http.StatusPaymentRequired
	case model.ErrorCode(err) != model.CodeInternal:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
