package model

import (
	"errors"
)

// Wire codes for backend rejections.
var codeTable = []struct {
	code string
	err  error
}{
	{"game_not_found", ErrGameNotFound},
	{"game_not_in_progress", ErrGameNotInProgress},
	{"winner_declared", ErrWinnerDeclared},
	{"all_numbers_drawn", ErrAllNumbersDrawn},
	{"not_host", ErrNotHost},
	{"host_already_assigned", ErrHostAlreadyAssigned},
	{"too_early_to_host", ErrTooEarlyToHost},
	{"game_in_progress", ErrGameInProgress},
	{"game_has_winner", ErrGameHasWinner},
	{"already_host", ErrAlreadyHost},
	{"too_early_to_start", ErrTooEarlyToStart},
	{"game_already_started", ErrGameAlreadyStarted},
	{"game_completed", ErrGameCompleted},
	{"not_paid", ErrNotPaid},
	{"already_paid", ErrAlreadyPaid},
	{"already_has_card", ErrAlreadyHasCard},
	{"no_card", ErrNoCard},
	{"invalid_password", ErrInvalidPassword},
	{"not_winner", ErrNotWinner},
	{"already_distributed", ErrAlreadyDistributed},
	{"invalid_argument", ErrInvalidArgument},
	{"unauthorized", ErrUnauthorized},
	{"insufficient_funds", ErrInsufficientFunds},
}

// CodeInternal is used for errors outside the table.
const CodeInternal = "internal"

// ErrorCode maps err to its wire code.
func ErrorCode(err error) string {
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

// ErrorFromCode maps a wire code back to its sentinel, or nil when unknown.
func ErrorFromCode(code string) error {
	for _, e := range codeTable {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
