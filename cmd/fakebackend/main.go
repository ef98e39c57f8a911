package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/memory"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/http/api"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/ledger"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/config"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/dedupe"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
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

	store := memory.NewStore(
		memory.WithLedger(ledger.New(ledger.WithLogger(log.Named("ledger")))),
		memory.WithGameAccount(model.Identity(cfg.GameAccount)),
		memory.WithStaleAfter(cfg.HostStaleAfter()),
		memory.WithLogger(log.Named("backend")),
	)
	srv := api.NewServer(store,
		api.WithLogger(log.Named("api")),
		api.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))),
	)

	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		log.Error(ctx, "backend stopped with error", logger.Error(err))
		return
	}
	log.Info(ctx, "backend stopped")
}
