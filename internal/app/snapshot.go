package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// FetchSnapshot reads the listing row and the per-game endpoints of game in
// parallel and assembles one snapshot. A game the backend no longer knows
// yields a nil snapshot and no error.
func FetchSnapshot(ctx context.Context, b model.Backend, game uint64, now time.Time) (*model.Snapshot, error) {
	var (
		sum   model.GameSummary
		found bool
		f     model.Fields
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		games, err := b.GetActiveGames(ctx)
		if err != nil {
			return err
		}
		for _, row := range games {
			if row.GameNumber == game {
				sum, found = row, true
				break
			}
		}
		return nil
	})
	g.Go(func() (err error) {
		f.InProgress, err = b.IsGameInProgress(ctx, game)
		return err
	})
	g.Go(func() (err error) {
		f.Winner, err = b.GetWinner(ctx, game)
		return err
	})
	g.Go(func() (err error) {
		f.CalledNumbers, err = b.GetCalledNumbers(ctx, game)
		return err
	})
	g.Go(func() (err error) {
		f.WinType, err = b.GetWinType(ctx, game)
		return err
	})
	g.Go(func() (err error) {
		f.CardCount, err = b.GetCardCount(ctx, game)
		return err
	})
	g.Go(func() (err error) {
		f.AllNumbersDrawn, err = b.AreAllNumbersDrawn(ctx, game)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, model.ErrGameNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch game %d: %w", game, err)
	}
	if !found {
		return nil, nil
	}
	return model.NewSnapshot(sum, f, now), nil
}
