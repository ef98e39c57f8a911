package main

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/httpclient"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/memory"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/http/api"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/config"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/metrics"
)

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given client settings in the environment", t, func() {
		_ = os.Setenv("BINGO_BACKEND_URL", "http://backend:9080")
		_ = os.Setenv("BINGO_GAME_ID", "7")
		_ = os.Setenv("BINGO_AUTO_DRAW", "true")
		defer func() {
			_ = os.Unsetenv("BINGO_BACKEND_URL")
			_ = os.Unsetenv("BINGO_GAME_ID")
			_ = os.Unsetenv("BINGO_AUTO_DRAW")
		}()

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.BackendURL, convey.ShouldEqual, "http://backend:9080")
			convey.So(cfg.GameID, convey.ShouldEqual, uint64(7))
			convey.So(cfg.AutoDraw, convey.ShouldBeTrue)
		})

		convey.Convey("And a session should be buildable without a message bus", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			backend := httpclient.New(cfg.BackendURL, "alice")
			s, closeSink, err := newSession(cfg, backend, "alice", logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(s, convey.ShouldNotBeNil)
			convey.So(s.Game(), convey.ShouldEqual, uint64(7))
			convey.So(closeSink, convey.ShouldNotPanic)
		})
	})

	convey.Convey("Given an empty backend URL", t, func() {
		_ = os.Setenv("BINGO_BACKEND_URL", " ")
		defer func() { _ = os.Unsetenv("BINGO_BACKEND_URL") }()

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainRun(t *testing.T) {
	convey.Convey("Given a backend with a game", t, func() {
		store := memory.NewStore(memory.WithLogger(logger.Nop()))
		srv := httptest.NewServer(api.NewServer(store, api.WithLogger(logger.Nop())).Handler())
		defer srv.Close()
		id, err := store.Client("host").CreateGame(context.Background(), model.CreateGameRequest{
			Name:                 "Daemon",
			ScheduledStartTimeMs: time.Now().Add(time.Hour).UnixMilli(),
		})
		convey.So(err, convey.ShouldBeNil)

		cfg := config.New(context.Background())
		cfg.BackendURL = srv.URL
		cfg.Identity = "host"
		cfg.GameID = id
		cfg.MetricsAddr = ""

		convey.Convey("When the client runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			err := run(ctx, cfg, logger.Nop())

			convey.Convey("Then it shuts down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When it runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When metrics are updated once", func() {
			updateSystemMetrics()

			convey.Convey("Then the goroutine gauge is exported", func() {
				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				found := false
				for _, mf := range families {
					if mf.GetName() == "bingo_session_system_goroutine_count" {
						found = mf.GetMetric()[0].GetGauge().GetValue() > 0
					}
				}
				convey.So(found, convey.ShouldBeTrue)
			})
		})
	})
}
