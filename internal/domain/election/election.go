// Package election decides when a participant may take over hosting a game
// whose host has gone quiet.
package election

import (
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// DefaultStaleAfter is how long both the game and the current host must have
// been idle before someone else may take over.
const DefaultStaleAfter = 5 * time.Minute

// Rule evaluates takeover eligibility with a configurable staleness window.
type Rule struct {
	StaleAfter time.Duration
}

// NewRule returns a rule, falling back to DefaultStaleAfter for non-positive windows.
func NewRule(staleAfter time.Duration) Rule {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return Rule{StaleAfter: staleAfter}
}

// ComputeEligibility applies the default window.
func ComputeEligibility(snap *model.Snapshot, nowMs int64, local model.Identity) bool {
	return NewRule(DefaultStaleAfter).Eligible(snap, nowMs, local)
}

// Eligible reports whether local may call BecomeHost at nowMs.
//
// Rules, in order: no takeover once a winner exists; before the game starts
// both the scheduled start and the host assignment must be StaleAfter old;
// while in progress both the last draw (or the start when nothing was drawn
// yet) and the host assignment must be StaleAfter old; the current host is
// never eligible. Before the start a missing host assignment time places no
// constraint; while in progress it makes the game ineligible.
func (r Rule) Eligible(snap *model.Snapshot, nowMs int64, local model.Identity) bool {
	if snap == nil || snap.HasWinner() {
		return false
	}
	if snap.IsHost(local) {
		return false
	}
	threshold, ok := r.Threshold(snap)
	if !ok {
		return false
	}
	return nowMs >= threshold
}

// Threshold returns the instant at which a takeover becomes possible, or
// false when there is not enough information to judge staleness.
func (r Rule) Threshold(snap *model.Snapshot) (int64, bool) {
	if snap == nil {
		return 0, false
	}
	window := r.StaleAfter.Milliseconds()

	var lastAction int64
	if !snap.InProgress {
		lastAction = snap.ScheduledStartTimeMs
	} else {
		switch {
		case snap.LastDrawTimeMs != nil:
			lastAction = *snap.LastDrawTimeMs
		case snap.StartTimeMs != nil:
			lastAction = *snap.StartTimeMs
		default:
			return 0, false
		}
		if snap.HostAssignedTimeMs == nil {
			return 0, false
		}
	}

	threshold := lastAction + window
	if snap.HostAssignedTimeMs != nil {
		if hostThreshold := *snap.HostAssignedTimeMs + window; hostThreshold > threshold {
			threshold = hostThreshold
		}
	}
	return threshold, true
}
