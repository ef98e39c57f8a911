package model

import (
	"context"
	"fmt"
)

// CheckWinResult is the decoded outcome of a win check.
type CheckWinResult int

const (
	CheckWinUnknown CheckWinResult = iota
	CheckWinWon
	CheckWinNotWon
	CheckWinAlreadyWon
)

func (r CheckWinResult) String() string {
	switch r {
	case CheckWinWon:
		return "Won"
	case CheckWinNotWon:
		return "NotWon"
	case CheckWinAlreadyWon:
		return "GameAlreadyWon"
	default:
		return "Unknown"
	}
}

// ParseCheckWinResult decodes a wire tag exactly once at the boundary.
func ParseCheckWinResult(tag string) (CheckWinResult, error) {
	switch tag {
	case "Won":
		return CheckWinWon, nil
	case "NotWon":
		return CheckWinNotWon, nil
	case "GameAlreadyWon":
		return CheckWinAlreadyWon, nil
	default:
		return CheckWinUnknown, fmt.Errorf("%w: check win tag %q", ErrUnknownResult, tag)
	}
}

// CreateGameRequest describes a new hosted game.
type CreateGameRequest struct {
	Name                      string
	ScheduledStartTimeMs      int64
	WinType                   WinType
	PriceE8s                  uint64
	HostPercentageBasisPoints int
	Password                  *string
}

// Backend is the remote game authority. Calls are made on behalf of the
// identity the implementation was bound to.
type Backend interface {
	GetActiveGames(ctx context.Context) ([]GameSummary, error)
	IsGameInProgress(ctx context.Context, game uint64) (bool, error)
	GetWinner(ctx context.Context, game uint64) (*Winner, error)
	GetCalledNumbers(ctx context.Context, game uint64) ([]int, error)
	GetLatestNumber(ctx context.Context, game uint64) (int, bool, error)
	GetWinType(ctx context.Context, game uint64) (WinType, error)
	GetCardCount(ctx context.Context, game uint64) (uint64, error)
	AreAllNumbersDrawn(ctx context.Context, game uint64) (bool, error)

	DrawNextNumber(ctx context.Context, game uint64) error
	CheckWin(ctx context.Context, game uint64, marks []bool) (CheckWinResult, error)
	StartGame(ctx context.Context, game uint64) error
	BecomeHost(ctx context.Context, game uint64) (bool, error)
	DistributeWinnings(ctx context.Context, game uint64) (bool, error)

	HasCard(ctx context.Context, game uint64, who Identity) (bool, error)
	GetMyCard(ctx context.Context, game uint64, who Identity) ([]int, error)
	GenerateCard(ctx context.Context, game uint64) ([]int, error)
	GetGamePrice(ctx context.Context, game uint64) (uint64, error)
	HasUserPaid(ctx context.Context, game uint64, who Identity) (bool, error)
	RecordPayment(ctx context.Context, game uint64, password *string) (bool, error)
	VerifyGamePassword(ctx context.Context, game uint64, password string) (bool, error)

	CreateGame(ctx context.Context, req CreateGameRequest) (uint64, error)
	GetUsername(ctx context.Context, who Identity) (string, bool, error)
}

// TransferRequest is one ledger transfer.
type TransferRequest struct {
	To        Identity
	AmountE8s uint64
	FeeE8s    uint64
	Memo      uint64
}

// Ledger moves funds on behalf of the bound identity.
type Ledger interface {
	Transfer(ctx context.Context, req TransferRequest) (uint64, error)
}
