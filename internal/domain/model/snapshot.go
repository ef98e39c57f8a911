// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Number range of a 75-ball game.
const (
	MinNumber = 1
	MaxNumber = 75
)

// Identity is the textual principal of a participant.
type Identity string

// Anonymous is the zero identity.
const Anonymous Identity = ""

// WinType is the winning pattern of a game.
type WinType int

const (
	WinStandard WinType = iota
	WinBlackout
)

func (w WinType) String() string {
	switch w {
	case WinStandard:
		return "Standard"
	case WinBlackout:
		return "Blackout"
	default:
		return fmt.Sprintf("WinType(%d)", int(w))
	}
}

// ParseWinType decodes a wire tag.
func ParseWinType(tag string) (WinType, error) {
	switch tag {
	case "Standard":
		return WinStandard, nil
	case "Blackout":
		return WinBlackout, nil
	default:
		return 0, fmt.Errorf("%w: win type %q", ErrUnknownResult, tag)
	}
}

// Winner is the declared winner of a game.
type Winner struct {
	AccountID   Identity
	DisplayName string // empty when the winner has no username
}

// Label returns the display name, falling back to the account.
func (w Winner) Label() string {
	if w.DisplayName != "" {
		return w.DisplayName
	}
	return string(w.AccountID)
}

// GameSummary is one row of the active game listing.
type GameSummary struct {
	GameNumber                uint64
	GameName                  string
	HostPrincipalID           Identity
	ScheduledStartTimeMs      int64
	StartTimeMs               *int64
	LastDrawTimeMs            *int64
	HostAssignedTimeMs        *int64
	PriceE8s                  uint64
	HostPercentageBasisPoints int
	CardCount                 uint64
	InProgress                bool
	Completed                 bool
	Winner                    *Winner
	WinType                   WinType
	CalledNumbers             []int
	PasswordProtected         bool
}

// HasWinner reports whether a winner was declared.
func (g GameSummary) HasWinner() bool { return g.Winner != nil }

// Snapshot is an immutable view of a game at one poll instant.
// It is built fresh on every poll and never mutated after publication.
type Snapshot struct {
	GameNumber                uint64
	GameName                  string
	InProgress                bool
	Completed                 bool
	Winner                    *Winner
	CalledNumbers             []int
	WinType                   WinType
	CardCount                 uint64
	ScheduledStartTimeMs      int64
	StartTimeMs               *int64
	LastDrawTimeMs            *int64
	HostAssignedTimeMs        *int64
	PriceE8s                  uint64
	HostPercentageBasisPoints int
	HostPrincipalID           Identity
	AllNumbersDrawn           bool
	PasswordProtected         bool
	FetchedAt                 time.Time
}

// HasWinner reports whether a winner was declared.
func (s *Snapshot) HasWinner() bool { return s != nil && s.Winner != nil }

// LatestNumber returns the most recently called number.
func (s *Snapshot) LatestNumber() (int, bool) {
	if s == nil || len(s.CalledNumbers) == 0 {
		return 0, false
	}
	return s.CalledNumbers[len(s.CalledNumbers)-1], true
}

// Drawable reports whether another number may be drawn.
func (s *Snapshot) Drawable() bool {
	return s != nil && s.InProgress && s.Winner == nil && !s.AllNumbersDrawn
}

// IsHost reports whether id currently hosts the game.
func (s *Snapshot) IsHost(id Identity) bool {
	return s != nil && id != Anonymous && s.HostPrincipalID == id
}

// IsWinner reports whether id is the declared winner.
func (s *Snapshot) IsWinner(id Identity) bool {
	return s.HasWinner() && id != Anonymous && s.Winner.AccountID == id
}

// Fields are the per-game values read from the dedicated backend endpoints.
type Fields struct {
	InProgress      bool
	Winner          *Winner
	CalledNumbers   []int
	WinType         WinType
	CardCount       uint64
	AllNumbersDrawn bool
}

// NewSnapshot assembles a snapshot from the listing row and the per-game reads.
// Slices and pointers are copied so later backend mutations never leak in.
func NewSnapshot(sum GameSummary, f Fields, at time.Time) *Snapshot {
	s := &Snapshot{
		GameNumber:                sum.GameNumber,
		GameName:                  sum.GameName,
		InProgress:                f.InProgress,
		Completed:                 sum.Completed,
		CalledNumbers:             append([]int(nil), f.CalledNumbers...),
		WinType:                   f.WinType,
		CardCount:                 f.CardCount,
		ScheduledStartTimeMs:      sum.ScheduledStartTimeMs,
		StartTimeMs:               copyMs(sum.StartTimeMs),
		LastDrawTimeMs:            copyMs(sum.LastDrawTimeMs),
		HostAssignedTimeMs:        copyMs(sum.HostAssignedTimeMs),
		PriceE8s:                  sum.PriceE8s,
		HostPercentageBasisPoints: sum.HostPercentageBasisPoints,
		HostPrincipalID:           sum.HostPrincipalID,
		AllNumbersDrawn:           f.AllNumbersDrawn,
		PasswordProtected:         sum.PasswordProtected,
		FetchedAt:                 at,
	}
	if f.Winner != nil {
		w := *f.Winner
		s.Winner = &w
	}
	return s
}

// CheckConsistency rejects a next snapshot that contradicts prev for the same game:
// called numbers shrinking or diverging, or a winner disappearing.
func CheckConsistency(prev, next *Snapshot) error {
	if prev == nil || next == nil || prev.GameNumber != next.GameNumber {
		return nil
	}
	if prev.Winner != nil && next.Winner == nil {
		return fmt.Errorf("%w: winner cleared for game %d", ErrSnapshotAnomaly, next.GameNumber)
	}
	if len(next.CalledNumbers) > MaxNumber {
		return fmt.Errorf("%w: %d called numbers", ErrSnapshotAnomaly, len(next.CalledNumbers))
	}
	if !prev.InProgress || !next.InProgress {
		return nil
	}
	if len(next.CalledNumbers) < len(prev.CalledNumbers) {
		return fmt.Errorf("%w: called numbers shrank from %d to %d",
			ErrSnapshotAnomaly, len(prev.CalledNumbers), len(next.CalledNumbers))
	}
	for i, n := range prev.CalledNumbers {
		if next.CalledNumbers[i] != n {
			return fmt.Errorf("%w: called number %d changed", ErrSnapshotAnomaly, i)
		}
	}
	return nil
}

// MsPtr is a helper for optional epoch milliseconds.
func MsPtr(ms int64) *int64 { return &ms }

func copyMs(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
