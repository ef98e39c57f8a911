package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/httpclient"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/mq/publisher"
	service "github.com/dickhery/Blockchain-Bingo-on-ICP/internal/app"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/config"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/lobby"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "client stopped with error", logger.Error(err))
		return
	}
	log.Info(ctx, "client stopped")
}

// run follows the lobby and, when a game is configured, one game session
// until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	who := model.Identity(cfg.Identity)
	backend := httpclient.New(cfg.BackendURL, who,
		httpclient.WithLogger(log.Named("backend")))

	g, ctx := errgroup.WithContext(ctx)

	l := service.NewLobby(backend,
		service.WithLobbyInterval(cfg.ListPollInterval()),
		service.WithLobbyTimeout(cfg.RequestTimeout()),
		service.WithLobbyLogger(log.Named("lobby")),
		service.WithListingHandler(func(v lobby.Listing) {
			log.Debug(ctx, "lobby updated",
				logger.Int("upcoming", len(v.Upcoming)),
				logger.Int("now_playing", len(v.NowPlaying)),
				logger.Int("past", len(v.Past)))
		}))
	if err := l.Start(ctx); err != nil {
		return err
	}
	defer l.Stop()

	if cfg.GameID != 0 {
		s, closeSink, err := newSession(cfg, backend, who, log)
		if err != nil {
			return err
		}
		defer closeSink()
		if err := s.Start(ctx); err != nil {
			return err
		}
		defer s.Stop()
		g.Go(func() error {
			select {
			case <-s.Done():
				log.Info(ctx, "session ended", logger.GameID(cfg.GameID))
			case <-ctx.Done():
			}
			return nil
		})
	}

	g.Go(func() error {
		startSystemMetricsUpdater(ctx)
		return nil
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, cfg.MetricsAddr, log) })
	}

	return g.Wait()
}

// newSession builds the game session, publishing its events to NATS when a
// URL is configured. The returned func closes the publisher.
func newSession(cfg *config.Config, backend model.Backend, who model.Identity, log logger.Logger) (*service.Session, func(), error) {
	id := uuid.NewString()
	opts := []service.Option{
		service.WithSessionID(id),
		service.WithLogger(log.Named("session")),
		service.WithPollInterval(cfg.PollInterval()),
		service.WithRequestTimeout(cfg.RequestTimeout()),
		service.WithFailureThreshold(cfg.PollFailureThreshold),
		service.WithMaxBackoff(cfg.PollMaxBackoff()),
		service.WithAutoDrawInterval(cfg.AutoDrawInterval()),
		service.WithStaleAfter(cfg.HostStaleAfter()),
		service.WithAutoDraw(cfg.AutoDraw),
		service.WithNoticeHandler(func(n service.Notice) {
			log.Info(context.Background(), n.Message,
				logger.GameID(cfg.GameID),
				logger.String("code", n.Code),
				logger.String("level", n.Level.String()))
		}),
		service.WithEventHandler(func(ev model.Event) {
			log.Debug(context.Background(), "session event",
				logger.GameID(ev.Game),
				logger.String("kind", string(ev.Kind)))
		}),
	}

	closeSink := func() {}
	if cfg.NATSURL != "" {
		pub, err := publisher.Connect(cfg.NATSURL,
			publisher.WithSubjectPrefix(cfg.NATSSubjectPrefix),
			publisher.WithSessionID(id))
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, service.WithEventSink(pub))
		closeSink = pub.Close
	}

	return service.NewSession(backend, cfg.GameID, who, opts...), closeSink, nil
}

// serveMetrics exposes /metrics and /healthz until ctx is done.
func serveMetrics(ctx context.Context, addr string, log logger.Logger) error {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
		return err
	}
	return nil
}

// startSystemMetricsUpdater refreshes process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
