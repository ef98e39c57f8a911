package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/finance"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// GameForm is the raw host input for a new game.
type GameForm struct {
	Name           string
	ScheduledStart time.Time
	WinType        model.WinType
	Price          string // whole units; empty means free
	HostPercentage string // 0 to 100 with one decimal
	Protected      bool
	Password       string
}

// Request validates f and converts it for the backend.
func (f GameForm) Request() (model.CreateGameRequest, Notice, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" || f.ScheduledStart.IsZero() || strings.TrimSpace(f.HostPercentage) == "" {
		return model.CreateGameRequest{}, warning("missing_fields", "Please fill in all fields."),
			fmt.Errorf("%w: missing fields", ErrInvalidGame)
	}
	bp, err := finance.PercentToBasisPoints(f.HostPercentage)
	if err != nil {
		return model.CreateGameRequest{}, warning("bad_percentage", "Host percentage must be between 0% and 100%."),
			fmt.Errorf("%w: %v", ErrInvalidGame, err)
	}
	var price uint64
	if p := strings.TrimSpace(f.Price); p != "" {
		if price, err = finance.ParseAmount(p); err != nil {
			return model.CreateGameRequest{}, warning("bad_price", "Please enter a valid price."),
				fmt.Errorf("%w: %v", ErrInvalidGame, err)
		}
	}
	req := model.CreateGameRequest{
		Name:                      name,
		ScheduledStartTimeMs:      f.ScheduledStart.UnixMilli(),
		WinType:                   f.WinType,
		PriceE8s:                  price,
		HostPercentageBasisPoints: bp,
	}
	if f.Protected {
		if f.Password == "" {
			return model.CreateGameRequest{}, warning("password_required", "Please enter a password for your game."),
				fmt.Errorf("%w: %w", ErrInvalidGame, ErrPasswordRequired)
		}
		pw := f.Password
		req.Password = &pw
	}
	return req, Notice{}, nil
}

// CreateGame validates f and creates the game on behalf of the backend's
// identity.
func CreateGame(ctx context.Context, b model.Backend, f GameForm) (uint64, Notice, error) {
	req, n, err := f.Request()
	if err != nil {
		return 0, n, err
	}
	id, err := b.CreateGame(ctx, req)
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		return 0, failure("sign_in", "Please log in first."), err
	case err != nil:
		return 0, failure("create_failed", "Error creating game: "+err.Error()), err
	}
	return id, success("game_created", "Game #"+strconv.FormatUint(id, 10)+" created successfully!"), nil
}
