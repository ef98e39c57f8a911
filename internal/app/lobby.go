package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/worker"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/lobby"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/session/poller"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

// nameLookups bounds concurrent username requests per refresh.
const nameLookups = 8

// LobbyOption configures a Lobby.
type LobbyOption func(*Lobby)

// WithLobbyInterval sets the listing refresh interval.
func WithLobbyInterval(d time.Duration) LobbyOption {
	return func(l *Lobby) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithLobbyTimeout bounds one listing refresh.
func WithLobbyTimeout(d time.Duration) LobbyOption {
	return func(l *Lobby) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLobbyClock replaces the wall clock.
func WithLobbyClock(c clockwork.Clock) LobbyOption {
	return func(l *Lobby) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithLobbyLogger sets the lobby logger.
func WithLobbyLogger(lg logger.Logger) LobbyOption {
	return func(l *Lobby) {
		if lg != nil {
			l.log = lg
		}
	}
}

// WithListingHandler is called on the lobby loop with every new listing.
func WithListingHandler(fn func(lobby.Listing)) LobbyOption {
	return func(l *Lobby) {
		l.onUpdate = fn
	}
}

// Lobby keeps the grouped game listing fresh.
type Lobby struct {
	backend  model.Backend
	clock    clockwork.Clock
	log      logger.Logger
	interval time.Duration
	timeout  time.Duration
	onUpdate func(lobby.Listing)

	loop     *worker.Loop
	poll     atomic.Pointer[poller.Handle[lobby.Listing]]
	started  atomic.Bool
	stopOnce sync.Once
	listing  atomic.Pointer[lobby.Listing]

	namesMu sync.Mutex
	names   map[model.Identity]string
}

// NewLobby creates a stopped lobby watcher.
func NewLobby(backend model.Backend, opts ...LobbyOption) *Lobby {
	l := &Lobby{
		backend:  backend,
		clock:    clockwork.NewRealClock(),
		interval: DefaultLobbyInterval,
		timeout:  DefaultRequestTimeout,
		names:    make(map[model.Identity]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("lobby")
	}
	l.loop = worker.NewLoop(context.Background(),
		worker.WithName("lobby"),
		worker.WithClock(l.clock),
		worker.WithLogger(l.log))
	l.listing.Store(&lobby.Listing{})
	return l
}

// Start begins refreshing the listing until ctx is done or Stop is called.
func (l *Lobby) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	l.loop.Start()
	l.poll.Store(poller.New(l.loop, l.load,
		poller.WithName("lobby"),
		poller.WithInterval(l.interval),
		poller.WithTimeout(l.timeout),
		poller.WithLogger(l.log),
	).Start(l.apply))
	context.AfterFunc(ctx, l.Stop)
	return nil
}

// Stop halts refreshing. It is idempotent.
func (l *Lobby) Stop() {
	l.stopOnce.Do(func() {
		if h := l.poll.Load(); h != nil {
			h.Stop()
		}
		l.loop.Stop()
	})
}

// Refresh asks for an immediate reload.
func (l *Lobby) Refresh() {
	if h := l.poll.Load(); h != nil {
		h.Refresh()
	}
}

// Listing returns the latest grouped listing.
func (l *Lobby) Listing() lobby.Listing { return *l.listing.Load() }

// Search returns the latest listing narrowed by f.
func (l *Lobby) Search(f lobby.Filter) lobby.Listing { return l.Listing().Apply(f) }

func (l *Lobby) apply(v lobby.Listing) {
	l.listing.Store(&v)
	if l.onUpdate != nil {
		l.onUpdate(v)
	}
}

func (l *Lobby) load(ctx context.Context) (lobby.Listing, error) {
	games, err := l.backend.GetActiveGames(ctx)
	if err != nil {
		return lobby.Listing{}, err
	}
	names := l.resolve(ctx, lobby.Principals(games))
	return lobby.Build(games, names, l.clock.Now()), nil
}

// resolve looks up display names, asking the backend only for identities it
// has not seen. A failed lookup falls back to the raw identity.
func (l *Lobby) resolve(ctx context.Context, ids []model.Identity) map[model.Identity]string {
	out := make(map[model.Identity]string, len(ids))
	var missing []model.Identity
	l.namesMu.Lock()
	for _, id := range ids {
		if n, ok := l.names[id]; ok {
			out[id] = n
		} else {
			missing = append(missing, id)
		}
	}
	l.namesMu.Unlock()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(nameLookups)
	for _, id := range missing {
		g.Go(func() error {
			name, _, err := l.backend.GetUsername(ctx, id)
			if err != nil {
				l.log.Debug(ctx, "username lookup failed", logger.String("principal", string(id)), logger.Error(err))
				return nil
			}
			mu.Lock()
			out[id] = name
			mu.Unlock()
			l.namesMu.Lock()
			l.names[id] = name
			l.namesMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}
