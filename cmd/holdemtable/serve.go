package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ServeCmd runs the configured tables until interrupted
type ServeCmd struct {
	MetricsAddr   string        `help:"Serve Prometheus metrics on this address (overrides config)"`
	ActionTimeout time.Duration `help:"Time a player has to act (overrides config)"`
	Seed          int64         `help:"Deterministic RNG seed (overrides config)"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if c.MetricsAddr != "" {
		cfg.Server.MetricsAddress = c.MetricsAddr
	}
	options := cfg.ServiceOptions()
	if c.ActionTimeout > 0 {
		options.ActionTimeout = c.ActionTimeout
	}
	if c.Seed != 0 {
		options.Seed = c.Seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := start(ctx, cfg, logger, options)
	if err != nil {
		return err
	}
	logger.Info("serving tables", "tables", len(h.tables), "action_timeout", options.ActionTimeout)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return h.close(shutdownCtx)
}
