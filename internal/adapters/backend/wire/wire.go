// Package wire holds the JSON contract between the backend HTTP API and its
// client. Tagged variants such as {"Won":null} are decoded here, once, into
// model enums.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// Headers carried by every call.
const (
	HeaderIdentity  = "X-Bingo-Identity"
	HeaderRequestID = "X-Request-ID"
	HeaderReplay    = "X-Idempotent-Replay"
)

// BasePath prefixes every route.
const BasePath = "/api/v1"

// ErrMalformedVariant is returned for a variant without exactly one tag.
var ErrMalformedVariant = errors.New("malformed variant")

// Value wraps a single result.
type Value[T any] struct {
	Value T `json:"value"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Variant is a tagged union with one key and a null payload.
type Variant map[string]json.RawMessage

// Tag builds a variant.
func Tag(name string) Variant {
	return Variant{name: json.RawMessage("null")}
}

// Name returns the single tag of v.
func (v Variant) Name() (string, error) {
	if len(v) != 1 {
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("%w: tags %v", ErrMalformedVariant, keys)
	}
	for k := range v {
		return k, nil
	}
	return "", ErrMalformedVariant
}

// EncodeWinType returns the variant of w.
func EncodeWinType(w model.WinType) Variant { return Tag(w.String()) }

// DecodeWinType maps a variant back to a win type.
func DecodeWinType(v Variant) (model.WinType, error) {
	name, err := v.Name()
	if err != nil {
		return 0, err
	}
	return model.ParseWinType(name)
}

// EncodeCheckWin returns the variant of r.
func EncodeCheckWin(r model.CheckWinResult) Variant { return Tag(r.String()) }

// DecodeCheckWin maps a variant back to a check-win result.
func DecodeCheckWin(v Variant) (model.CheckWinResult, error) {
	name, err := v.Name()
	if err != nil {
		return model.CheckWinUnknown, fmt.Errorf("%w: %v", model.ErrUnknownResult, err)
	}
	return model.ParseCheckWinResult(name)
}

// Winner is a declared winner.
type Winner struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName,omitempty"`
}

// FromWinner encodes w; nil stays nil.
func FromWinner(w *model.Winner) *Winner {
	if w == nil {
		return nil
	}
	return &Winner{AccountID: string(w.AccountID), DisplayName: w.DisplayName}
}

// Model decodes w; nil stays nil.
func (w *Winner) Model() *model.Winner {
	if w == nil {
		return nil
	}
	return &model.Winner{AccountID: model.Identity(w.AccountID), DisplayName: w.DisplayName}
}

// Game is one row of the game listing.
type Game struct {
	GameNumber           uint64  `json:"gameNumber"`
	GameName             string  `json:"gameName"`
	HostPrincipalID      string  `json:"hostPrincipalId"`
	ScheduledStartTimeMs int64   `json:"scheduledStartTimeMs"`
	StartTimeMs          *int64  `json:"startTimeMs"`
	LastDrawTimeMs       *int64  `json:"lastDrawTimeMs"`
	HostAssignedTimeMs   *int64  `json:"hostAssignedTimeMs"`
	PriceE8s             uint64  `json:"priceE8s"`
	HostPercentage       int     `json:"hostPercentage"`
	CardCount            uint64  `json:"cardCount"`
	InProgress           bool    `json:"inProgress"`
	Completed            bool    `json:"completed"`
	Winner               *Winner `json:"winner"`
	WinType              Variant `json:"winType"`
	CalledNumbers        []int   `json:"calledNumbers"`
	PasswordProtected    bool    `json:"passwordProtected"`
}

// FromSummary encodes a summary.
func FromSummary(s model.GameSummary) Game {
	return Game{
		GameNumber:           s.GameNumber,
		GameName:             s.GameName,
		HostPrincipalID:      string(s.HostPrincipalID),
		ScheduledStartTimeMs: s.ScheduledStartTimeMs,
		StartTimeMs:          s.StartTimeMs,
		LastDrawTimeMs:       s.LastDrawTimeMs,
		HostAssignedTimeMs:   s.HostAssignedTimeMs,
		PriceE8s:             s.PriceE8s,
		HostPercentage:       s.HostPercentageBasisPoints,
		CardCount:            s.CardCount,
		InProgress:           s.InProgress,
		Completed:            s.Completed,
		Winner:               FromWinner(s.Winner),
		WinType:              EncodeWinType(s.WinType),
		CalledNumbers:        s.CalledNumbers,
		PasswordProtected:    s.PasswordProtected,
	}
}

// Summary decodes g.
func (g Game) Summary() (model.GameSummary, error) {
	wt, err := DecodeWinType(g.WinType)
	if err != nil {
		return model.GameSummary{}, fmt.Errorf("game %d: %w", g.GameNumber, err)
	}
	return model.GameSummary{
		GameNumber:                g.GameNumber,
		GameName:                  g.GameName,
		HostPrincipalID:           model.Identity(g.HostPrincipalID),
		ScheduledStartTimeMs:      g.ScheduledStartTimeMs,
		StartTimeMs:               g.StartTimeMs,
		LastDrawTimeMs:            g.LastDrawTimeMs,
		HostAssignedTimeMs:        g.HostAssignedTimeMs,
		PriceE8s:                  g.PriceE8s,
		HostPercentageBasisPoints: g.HostPercentage,
		CardCount:                 g.CardCount,
		InProgress:                g.InProgress,
		Completed:                 g.Completed,
		Winner:                    g.Winner.Model(),
		WinType:                   wt,
		CalledNumbers:             g.CalledNumbers,
		PasswordProtected:         g.PasswordProtected,
	}, nil
}

// CheckWinRequest carries the player's marks, row-major.
type CheckWinRequest struct {
	Marks []bool `json:"marks"`
}

// PaymentRequest records a registration.
type PaymentRequest struct {
	Password *string `json:"password"`
}

// PasswordRequest checks a game password.
type PasswordRequest struct {
	Password string `json:"password"`
}

// CreateGameRequest creates a hosted game.
type CreateGameRequest struct {
	Name                 string  `json:"name"`
	ScheduledStartTimeMs int64   `json:"scheduledStartTimeMs"`
	WinType              Variant `json:"winType"`
	PriceE8s             uint64  `json:"priceE8s"`
	HostPercentage       int     `json:"hostPercentage"`
	Password             *string `json:"password"`
}

// FromCreate encodes r.
func FromCreate(r model.CreateGameRequest) CreateGameRequest {
	return CreateGameRequest{
		Name:                 r.Name,
		ScheduledStartTimeMs: r.ScheduledStartTimeMs,
		WinType:              EncodeWinType(r.WinType),
		PriceE8s:             r.PriceE8s,
		HostPercentage:       r.HostPercentageBasisPoints,
		Password:             r.Password,
	}
}

// Model decodes r.
func (r CreateGameRequest) Model() (model.CreateGameRequest, error) {
	wt, err := DecodeWinType(r.WinType)
	if err != nil {
		return model.CreateGameRequest{}, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	return model.CreateGameRequest{
		Name:                      r.Name,
		ScheduledStartTimeMs:      r.ScheduledStartTimeMs,
		WinType:                   wt,
		PriceE8s:                  r.PriceE8s,
		HostPercentageBasisPoints: r.HostPercentage,
		Password:                  r.Password,
	}, nil
}
