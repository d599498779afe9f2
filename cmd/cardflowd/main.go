package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cardflow/internal/config"
	"cardflow/internal/daemon"
	"cardflow/internal/kanban"
	"cardflow/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := kanban.Open(cfg)
	if err != nil {
		logger.Error("open board store", "error", err)
		return
	}

	registry := buildRegistry(cfg, logger)
	d, err := daemon.New(cfg, store, registry, logger)
	if err != nil {
		logger.Error("create daemon", "error", err)
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", "error", err)
		return
	}

	<-ctx.Done()
	logger.Info("cardflowd shutting down")
}
