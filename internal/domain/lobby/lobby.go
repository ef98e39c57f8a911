// Package lobby groups, sorts and filters the active game listing.
package lobby

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// Category is the lobby section a game belongs to.
type Category int

const (
	Upcoming Category = iota
	NowPlaying
	Past
)

func (c Category) String() string {
	switch c {
	case Upcoming:
		return "upcoming"
	case NowPlaying:
		return "now_playing"
	case Past:
		return "past"
	default:
		return "unknown"
	}
}

// Classify places a game: finished or won games are past, running games
// are now playing, everything else is upcoming (including overdue starts).
func Classify(g model.GameSummary) Category {
	switch {
	case g.Completed || g.HasWinner():
		return Past
	case g.InProgress:
		return NowPlaying
	default:
		return Upcoming
	}
}

// Entry is one game row with its derived display figures.
type Entry struct {
	Game        model.GameSummary
	HostName    string
	WinnerName  string
	TotalDueE8s uint64
	Financials  finance.Financials
	StartsIn    time.Duration // negative once the scheduled start has passed
}

// Paid reports whether registration costs anything.
func (e Entry) Paid() bool { return e.Game.PriceE8s > 0 }

// Listing is the classified lobby.
type Listing struct {
	Upcoming   []Entry
	NowPlaying []Entry
	Past       []Entry
}

// Len is the total number of entries.
func (l Listing) Len() int { return len(l.Upcoming) + len(l.NowPlaying) + len(l.Past) }

// Principals returns every host and winner identity that needs a display name.
func Principals(games []model.GameSummary) []model.Identity {
	seen := make(map[model.Identity]bool)
	var out []model.Identity
	add := func(id model.Identity) {
		if id != model.Anonymous && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, g := range games {
		add(g.HostPrincipalID)
		if g.Winner != nil {
			add(g.Winner.AccountID)
		}
	}
	return out
}

// Build classifies and sorts games. names maps principals to usernames;
// missing names fall back to the principal text.
func Build(games []model.GameSummary, names map[model.Identity]string, now time.Time) Listing {
	var l Listing
	for _, g := range games {
		e := Entry{
			Game:        g,
			HostName:    displayName(names, g.HostPrincipalID),
			TotalDueE8s: finance.TotalDue(g.PriceE8s),
			StartsIn:    time.UnixMilli(g.ScheduledStartTimeMs).Sub(now),
		}
		if g.Winner != nil {
			e.WinnerName = g.Winner.DisplayName
			if e.WinnerName == "" {
				e.WinnerName = displayName(names, g.Winner.AccountID)
			}
		}
		if f, err := finance.Compute(g.PriceE8s, g.CardCount, finance.ClampHostPercentage(g.HostPercentageBasisPoints)); err == nil {
			e.Financials = f
		}

		switch Classify(g) {
		case Past:
			l.Past = append(l.Past, e)
		case NowPlaying:
			l.NowPlaying = append(l.NowPlaying, e)
		default:
			l.Upcoming = append(l.Upcoming, e)
		}
	}

	byStart := func(s []Entry, desc bool) {
		sort.SliceStable(s, func(i, j int) bool {
			if desc {
				return s[i].Game.ScheduledStartTimeMs > s[j].Game.ScheduledStartTimeMs
			}
			return s[i].Game.ScheduledStartTimeMs < s[j].Game.ScheduledStartTimeMs
		})
	}
	byStart(l.Upcoming, false)
	byStart(l.NowPlaying, false)
	byStart(l.Past, true)
	return l
}

func displayName(names map[model.Identity]string, id model.Identity) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return string(id)
}

// PriceFilter restricts the listing by price.
type PriceFilter string

const (
	PriceAll  PriceFilter = "all"
	PriceFree PriceFilter = "free"
	PricePaid PriceFilter = "paid"
)

// ParsePriceFilter accepts all, free or paid; empty means all.
func ParsePriceFilter(s string) (PriceFilter, error) {
	switch f := PriceFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", PriceAll:
		return PriceAll, nil
	case PriceFree, PricePaid:
		return f, nil
	default:
		return "", fmt.Errorf("%w: price filter %q", model.ErrInvalidArgument, s)
	}
}

// Filter is a search term plus a price filter.
type Filter struct {
	Search string
	Price  PriceFilter
}

// Match reports whether e passes the filter. The search term matches the
// game name or host name case-insensitively, or the game number as text.
func (f Filter) Match(e Entry) bool {
	switch f.Price {
	case PriceFree:
		if e.Paid() {
			return false
		}
	case PricePaid:
		if !e.Paid() {
			return false
		}
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(e.Game.GameName), term) ||
		strings.Contains(strconv.FormatUint(e.Game.GameNumber, 10), f.Search) ||
		strings.Contains(strings.ToLower(e.HostName), term)
}

// Apply filters every section, keeping order.
func (l Listing) Apply(f Filter) Listing {
	keep := func(in []Entry) []Entry {
		var out []Entry
		for _, e := range in {
			if f.Match(e) {
				out = append(out, e)
			}
		}
		return out
	}
	return Listing{
		Upcoming:   keep(l.Upcoming),
		NowPlaying: keep(l.NowPlaying),
		Past:       keep(l.Past),
	}
}
