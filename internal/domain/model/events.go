package model

import "time"

// EventKind names a session trigger event.
type EventKind string

const (
	EventNumberCalled    EventKind = "number_called"
	EventWinnerDeclared  EventKind = "winner_declared"
	EventGameStarted     EventKind = "game_started"
	EventAllNumbersDrawn EventKind = "all_numbers_drawn"
	EventCardToggled     EventKind = "card_toggled"
	EventClaimed         EventKind = "claimed"
	EventGameNotFound    EventKind = "game_not_found"
)

// Event is emitted by a session when something the player should hear or
// see happens. Only the fields relevant to Kind are set.
type Event struct {
	Kind   EventKind
	Game   uint64
	Number int    // NumberCalled
	Letter string // NumberCalled
	Cell   int    // CardToggled
	Marked bool   // CardToggled
	Winner *Winner
	At     time.Time
}
