package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Harky911/ReolinkANPR/internal/config"
	"github.com/Harky911/ReolinkANPR/internal/daemon"
	"github.com/Harky911/ReolinkANPR/internal/logging"
	"github.com/Harky911/ReolinkANPR/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open event store", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, st, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = st.Close()
		return
	}
	defer d.Close()

	// Start degrades to waiting-for-configuration on camera trouble; only
	// lock contention is fatal here.
	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("anprd shutting down")
}
