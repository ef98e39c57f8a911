// Package httpclient implements model.Backend against the JSON backend API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/wire"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

const maxErrorBody = 4 << 10

// Client calls the backend on behalf of one identity.
type Client struct {
	base       string
	who        model.Identity
	http       *http.Client
	retries    int
	retryDelay time.Duration
	clock      clockwork.Clock
	log        logger.Logger
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, who model.Identity, opts ...Option) *Client {
	c := &Client{
		base:       strings.TrimRight(baseURL, "/") + wire.BasePath,
		who:        who,
		http:       &http.Client{Timeout: DefaultTimeout},
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get().Named("backend")
	}
	return c
}

// Identity returns the caller identity.
func (c *Client) Identity() model.Identity { return c.who }

func gamePath(id uint64, rest string) string {
	return "/games/" + strconv.FormatUint(id, 10) + rest
}

func playerPath(id uint64, who model.Identity, rest string) string {
	return gamePath(id, "/players/"+url.PathEscape(string(who))+rest)
}

func (c *Client) GetActiveGames(ctx context.Context) ([]model.GameSummary, error) {
	games, err := get[[]wire.Game](ctx, c, "get_active_games", "/games")
	if err != nil {
		return nil, err
	}
	out := make([]model.GameSummary, 0, len(games))
	for _, g := range games {
		sum, err := g.Summary()
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (c *Client) IsGameInProgress(ctx context.Context, id uint64) (bool, error) {
	return get[bool](ctx, c, "is_game_in_progress", gamePath(id, "/in-progress"))
}

func (c *Client) GetWinner(ctx context.Context, id uint64) (*model.Winner, error) {
	w, err := get[*wire.Winner](ctx, c, "get_winner", gamePath(id, "/winner"))
	return w.Model(), err
}

func (c *Client) GetCalledNumbers(ctx context.Context, id uint64) ([]int, error) {
	return get[[]int](ctx, c, "get_called_numbers", gamePath(id, "/called-numbers"))
}

func (c *Client) GetLatestNumber(ctx context.Context, id uint64) (int, bool, error) {
	n, err := get[*int](ctx, c, "get_latest_number", gamePath(id, "/latest-number"))
	if err != nil || n == nil {
		return 0, false, err
	}
	return *n, true, nil
}

func (c *Client) GetWinType(ctx context.Context, id uint64) (model.WinType, error) {
	v, err := get[wire.Variant](ctx, c, "get_win_type", gamePath(id, "/win-type"))
	if err != nil {
		return 0, err
	}
	return wire.DecodeWinType(v)
}

func (c *Client) GetCardCount(ctx context.Context, id uint64) (uint64, error) {
	return get[uint64](ctx, c, "get_card_count", gamePath(id, "/card-count"))
}

func (c *Client) AreAllNumbersDrawn(ctx context.Context, id uint64) (bool, error) {
	return get[bool](ctx, c, "are_all_numbers_drawn", gamePath(id, "/all-drawn"))
}

func (c *Client) DrawNextNumber(ctx context.Context, id uint64) error {
	_, err := post[struct{}](ctx, c, "draw_next_number", gamePath(id, "/draw"), nil)
	return err
}

func (c *Client) CheckWin(ctx context.Context, id uint64, marks []bool) (model.CheckWinResult, error) {
	v, err := post[wire.Variant](ctx, c, "check_win", gamePath(id, "/check-win"), wire.CheckWinRequest{Marks: marks})
	if err != nil {
		return model.CheckWinUnknown, err
	}
	return wire.DecodeCheckWin(v)
}

func (c *Client) StartGame(ctx context.Context, id uint64) error {
	_, err := post[struct{}](ctx, c, "start_game", gamePath(id, "/start"), nil)
	return err
}

func (c *Client) BecomeHost(ctx context.Context, id uint64) (bool, error) {
	return post[bool](ctx, c, "become_host", gamePath(id, "/become-host"), nil)
}

func (c *Client) DistributeWinnings(ctx context.Context, id uint64) (bool, error) {
	return post[bool](ctx, c, "distribute_winnings", gamePath(id, "/distribute"), nil)
}

func (c *Client) HasCard(ctx context.Context, id uint64, who model.Identity) (bool, error) {
	return get[bool](ctx, c, "has_card", playerPath(id, who, "/has-card"))
}

func (c *Client) GetMyCard(ctx context.Context, id uint64, who model.Identity) ([]int, error) {
	return get[[]int](ctx, c, "get_my_card", playerPath(id, who, "/card"))
}

func (c *Client) GenerateCard(ctx context.Context, id uint64) ([]int, error) {
	return post[[]int](ctx, c, "generate_card", gamePath(id, "/cards"), nil)
}

func (c *Client) GetGamePrice(ctx context.Context, id uint64) (uint64, error) {
	return get[uint64](ctx, c, "get_game_price", gamePath(id, "/price"))
}

func (c *Client) HasUserPaid(ctx context.Context, id uint64, who model.Identity) (bool, error) {
	return get[bool](ctx, c, "has_user_paid", playerPath(id, who, "/paid"))
}

func (c *Client) RecordPayment(ctx context.Context, id uint64, password *string) (bool, error) {
	return post[bool](ctx, c, "record_payment", gamePath(id, "/payments"), wire.PaymentRequest{Password: password})
}

func (c *Client) VerifyGamePassword(ctx context.Context, id uint64, password string) (bool, error) {
	return post[bool](ctx, c, "verify_game_password", gamePath(id, "/password/verify"),
		wire.PasswordRequest{Password: password})
}

func (c *Client) CreateGame(ctx context.Context, req model.CreateGameRequest) (uint64, error) {
	return post[uint64](ctx, c, "create_game", "/games", wire.FromCreate(req))
}

func (c *Client) GetUsername(ctx context.Context, who model.Identity) (string, bool, error) {
	name, err := get[*string](ctx, c, "get_username", "/users/"+url.PathEscape(string(who))+"/username")
	if err != nil || name == nil {
		return "", false, err
	}
	return *name, true, nil
}

func get[T any](ctx context.Context, c *Client, op, path string) (T, error) {
	var out wire.Value[T]
	err := c.call(ctx, op, http.MethodGet, path, nil, &out)
	return out.Value, err
}

func post[T any](ctx context.Context, c *Client, op, path string, body any) (T, error) {
	var out wire.Value[T]
	if body == nil {
		body = struct{}{}
	}
	err := c.call(ctx, op, http.MethodPost, path, body, &out)
	return out.Value, err
}

// call sends one logical request. Retries reuse the request ID so the
// backend runs a mutation at most once.
func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		payload = b
	}
	rid := uuid.NewString()

	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		var retry bool
		retry, err = c.send(ctx, method, path, rid, payload, out)
		if err == nil || !retry || attempt >= c.retries {
			break
		}
		c.log.Debug(ctx, "retrying backend call",
			logger.String("op", op), logger.String("request_id", rid), logger.Int("attempt", attempt+1), logger.Error(err))
		if werr := c.pause(ctx); werr != nil {
			err = werr
			break
		}
	}

	result := "ok"
	if err != nil {
		result = model.ErrorCode(err)
		if result == model.CodeInternal {
			result = "error"
		}
	}
	metrics.RecordBackendCall(op, result, float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(c.retryDelay):
		return nil
	}
}

// send performs one attempt and reports whether it may be retried.
func (c *Client) send(ctx context.Context, method, path, rid string, payload []byte, out any) (bool, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.who != model.Anonymous {
		req.Header.Set(wire.HeaderIdentity, string(c.who))
	}
	if method != http.MethodGet {
		req.Header.Set(wire.HeaderRequestID, rid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("%w: decode body: %v", ErrStatus, err)
		}
		return false, nil
	}
	err = decodeError(resp)
	return resp.StatusCode >= http.StatusInternalServerError || errors.Is(err, ErrRequestInFlight), err
}

// decodeError maps an error body back to its sentinel.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e wire.Error
	if err := json.Unmarshal(raw, &e); err != nil || e.Code == "" {
		return fmt.Errorf("%w: status %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if sentinel := model.ErrorFromCode(e.Code); sentinel != nil {
		if e.Message == "" || e.Message == sentinel.Error() {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, e.Message)
	}
	if e.Code == "request_in_flight" {
		return ErrRequestInFlight
	}
	return fmt.Errorf("%w: status %d: %s: %s", ErrStatus, resp.StatusCode, e.Code, e.Message)
}

// IsTransient reports whether err came from the transport rather than a
// backend rejection.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRequestInFlight)
}

var _ model.Backend = (*Client)(nil)
