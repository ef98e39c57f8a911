package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.BackendURL, convey.ShouldEqual, "http://localhost:9080")
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 3000)
				convey.So(cfg.AutoDraw, convey.ShouldBeFalse)
				convey.So(cfg.GameID, convey.ShouldEqual, uint64(0))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("BINGO_BACKEND_URL", "http://backend:8080")
			_ = os.Setenv("BINGO_IDENTITY", "alice")
			_ = os.Setenv("BINGO_GAME_ID", "12")
			_ = os.Setenv("BINGO_AUTO_DRAW", "true")
			_ = os.Setenv("BINGO_POLL_INTERVAL_MS", "1500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BackendURL, convey.ShouldEqual, "http://backend:8080")
				convey.So(cfg.Identity, convey.ShouldEqual, "alice")
				convey.So(cfg.GameID, convey.ShouldEqual, uint64(12))
				convey.So(cfg.AutoDraw, convey.ShouldBeTrue)
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 1500)
				convey.So(cfg.ListPollIntervalMS, convey.ShouldEqual, 10000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
backend_url: "http://file:9000"
identity: bob
auto_draw_interval_ms: 9000
nats_url: "nats://localhost:4222"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("BINGO_CONFIG", tmpFile)
			_ = os.Setenv("BINGO_IDENTITY", "carol")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BackendURL, convey.ShouldEqual, "http://file:9000")
				convey.So(cfg.Identity, convey.ShouldEqual, "carol")
				convey.So(cfg.AutoDrawIntervalMS, convey.ShouldEqual, 9000)
				convey.So(cfg.NATSURL, convey.ShouldEqual, "nats://localhost:4222")
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("BINGO_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a missing file", func() {
			_ = os.Setenv("BINGO_CONFIG", "/nonexistent/bingo.yaml")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When loading config with a non-positive interval", func() {
			_ = os.Setenv("BINGO_POLL_INTERVAL_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "poll_interval_ms")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("BINGO_GAME_ID", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"BINGO_CONFIG", "BINGO_BACKEND_URL", "BINGO_IDENTITY", "BINGO_GAME_ID",
		"BINGO_AUTO_DRAW", "BINGO_POLL_INTERVAL_MS",
	} {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "bingo-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}
