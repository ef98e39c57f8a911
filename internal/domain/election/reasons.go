package election

import (
	"errors"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// Code identifies why a takeover failed.
type Code string

const (
	CodeHostAlreadyAssigned Code = "host_already_assigned"
	CodeTooEarly            Code = "too_early"
	CodeGameInProgress      Code = "game_in_progress"
	CodeGameHasWinner       Code = "game_has_winner"
	CodeAlreadyHost         Code = "already_host"
	CodeRejected            Code = "rejected"
	CodeUnknown             Code = "unknown"
)

// Reason is a user-displayable takeover failure.
type Reason struct {
	Code    Code
	Message string
}

func (r Reason) String() string { return r.Message }

var reasons = []struct {
	err    error
	reason Reason
}{
	{model.ErrHostAlreadyAssigned, Reason{CodeHostAlreadyAssigned, "Another player has already become the host for this game."}},
	{model.ErrTooEarlyToHost, Reason{CodeTooEarly, "Cannot become host before 5 minutes have passed since the scheduled start time."}},
	{model.ErrGameInProgress, Reason{CodeGameInProgress, "Cannot become host because the game is already in progress."}},
	{model.ErrGameHasWinner, Reason{CodeGameHasWinner, "Cannot become host for a game that already has a winner."}},
	{model.ErrAlreadyHost, Reason{CodeAlreadyHost, "You are already the host."}},
}

// RejectedReason is reported when the backend answers false without an error.
var RejectedReason = Reason{CodeRejected, "Failed to become the host."}

// DescribeTakeoverFailure maps a BecomeHost error to a distinct reason.
func DescribeTakeoverFailure(err error) Reason {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	if err == nil {
		return RejectedReason
	}
	return Reason{Code: CodeUnknown, Message: "Error becoming host: " + err.Error()}
}
