package memory

import (
	"context"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

// Client calls the store on behalf of one identity.
type Client struct {
	store *Store
	who   model.Identity
}

// Client returns a backend bound to who.
func (s *Store) Client(who model.Identity) *Client {
	return &Client{store: s, who: who}
}

// Identity returns the caller identity.
func (c *Client) Identity() model.Identity { return c.who }

func (c *Client) GetActiveGames(ctx context.Context) ([]model.GameSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.activeGames(), nil
}

func (c *Client) IsGameInProgress(ctx context.Context, id uint64) (bool, error) {
	var v bool
	err := c.read(ctx, id, func(g *game) { v = g.inProgress })
	return v, err
}

func (c *Client) GetWinner(ctx context.Context, id uint64) (*model.Winner, error) {
	var v *model.Winner
	err := c.read(ctx, id, func(g *game) { v = c.store.winnerOf(g) })
	return v, err
}

func (c *Client) GetCalledNumbers(ctx context.Context, id uint64) ([]int, error) {
	var v []int
	err := c.read(ctx, id, func(g *game) { v = append([]int{}, g.called...) })
	return v, err
}

func (c *Client) GetLatestNumber(ctx context.Context, id uint64) (int, bool, error) {
	var (
		n  int
		ok bool
	)
	err := c.read(ctx, id, func(g *game) {
		if len(g.called) > 0 {
			n, ok = g.called[len(g.called)-1], true
		}
	})
	return n, ok, err
}

func (c *Client) GetWinType(ctx context.Context, id uint64) (model.WinType, error) {
	var v model.WinType
	err := c.read(ctx, id, func(g *game) { v = g.winType })
	return v, err
}

func (c *Client) GetCardCount(ctx context.Context, id uint64) (uint64, error) {
	var v uint64
	err := c.read(ctx, id, func(g *game) { v = uint64(len(g.cards)) })
	return v, err
}

func (c *Client) AreAllNumbersDrawn(ctx context.Context, id uint64) (bool, error) {
	var v bool
	err := c.read(ctx, id, func(g *game) { v = len(g.deck) == 0 })
	return v, err
}

func (c *Client) DrawNextNumber(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.store.drawNext(ctx, c.who, id)
}

func (c *Client) CheckWin(ctx context.Context, id uint64, marks []bool) (model.CheckWinResult, error) {
	if err := ctx.Err(); err != nil {
		return model.CheckWinUnknown, err
	}
	return c.store.checkWin(ctx, c.who, id, marks)
}

func (c *Client) StartGame(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.store.startGame(ctx, c.who, id)
}

func (c *Client) BecomeHost(ctx context.Context, id uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.store.becomeHost(ctx, c.who, id)
}

func (c *Client) DistributeWinnings(ctx context.Context, id uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.store.distributeWinnings(ctx, c.who, id)
}

func (c *Client) HasCard(ctx context.Context, id uint64, who model.Identity) (bool, error) {
	var v bool
	err := c.read(ctx, id, func(g *game) { _, v = g.cards[who] })
	return v, err
}

func (c *Client) GetMyCard(ctx context.Context, id uint64, who model.Identity) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.myCard(id, who)
}

func (c *Client) GenerateCard(ctx context.Context, id uint64) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.store.generateCard(ctx, c.who, id)
}

func (c *Client) GetGamePrice(ctx context.Context, id uint64) (uint64, error) {
	var v uint64
	err := c.read(ctx, id, func(g *game) { v = g.priceE8s })
	return v, err
}

func (c *Client) HasUserPaid(ctx context.Context, id uint64, who model.Identity) (bool, error) {
	var v bool
	err := c.read(ctx, id, func(g *game) { v = g.paid[who] })
	return v, err
}

func (c *Client) RecordPayment(ctx context.Context, id uint64, password *string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.store.recordPayment(ctx, c.who, id, password)
}

func (c *Client) VerifyGamePassword(ctx context.Context, id uint64, password string) (bool, error) {
	var v bool
	err := c.read(ctx, id, func(g *game) { v = g.password == nil || *g.password == password })
	return v, err
}

func (c *Client) CreateGame(ctx context.Context, req model.CreateGameRequest) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.store.createGame(ctx, c.who, req)
}

func (c *Client) GetUsername(ctx context.Context, who model.Identity) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	name, ok := c.store.usernames[who]
	return name, ok, nil
}

func (c *Client) read(ctx context.Context, id uint64, fn func(g *game)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.store.read(id, fn)
}

var _ model.Backend = (*Client)(nil)
