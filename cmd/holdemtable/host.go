package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/holdemtable/internal/broadcast"
	"github.com/lox/holdemtable/internal/server"
	"github.com/lox/holdemtable/internal/store"
)

// host is everything a command needs to run tables
type host struct {
	config      *server.ServerConfig
	logger      *log.Logger
	store       store.Store
	broadcaster broadcast.Broadcaster
	registry    *prometheus.Registry
	service     *server.GameService
	tables      []*server.TableWorker
	metricsSrv  *http.Server
}

func (c *CLI) loadConfig() (*server.ServerConfig, *log.Logger, error) {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return nil, nil, err
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           cfg.LogLevel(),
		ReportTimestamp: true,
	})
	return cfg, logger, nil
}

// start opens storage and broadcasting and starts a worker for every
// configured table
func start(ctx context.Context, cfg *server.ServerConfig, logger *log.Logger, options server.ServiceOptions) (*host, error) {
	h := &host{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	h.registry.MustRegister(collectors.NewGoCollector())

	var err error
	if h.store, err = openStore(ctx, cfg.Storage, logger); err != nil {
		return nil, err
	}
	if h.broadcaster, err = openBroadcaster(cfg.Broadcast, logger); err != nil {
		_ = h.store.Close()
		return nil, err
	}

	h.service = server.NewGameService(h.store, h.broadcaster, options,
		server.WithMetrics(server.NewMetrics(h.registry)),
		server.WithServiceLogger(logger),
	)

	for _, tableConfig := range cfg.TableConfigs() {
		w, err := h.service.CreateTable(ctx, tableConfig)
		if err != nil {
			_ = h.close(ctx)
			return nil, fmt.Errorf("create table %s: %w", tableConfig.Name, err)
		}
		logger.Info("table ready",
			"name", w.Name(),
			"id", w.ID(),
			"blinds", fmt.Sprintf("%d/%d", tableConfig.SmallBlind, tableConfig.BigBlind),
			"seats", fmt.Sprintf("%d-%d", tableConfig.MinPlayers, tableConfig.MaxPlayers))
		h.tables = append(h.tables, w)
	}

	if addr := cfg.Server.MetricsAddress; addr != "" {
		h.metricsSrv = serveMetrics(addr, h.registry, logger)
	}
	return h, nil
}

func openStore(ctx context.Context, settings *server.StorageSettings, logger *log.Logger) (store.Store, error) {
	switch settings.Driver {
	case "redis":
		logger.Info("using redis storage", "address", settings.Address)
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Address:  settings.Address,
			Password: settings.Password,
			DB:       settings.DB,
			Prefix:   settings.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil
	case "file":
		logger.Info("using file storage", "path", settings.Path)
		fs, err := store.NewFileStore(settings.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "postgres":
		logger.Info("using postgres storage")
		ps, err := store.NewPostgresStore(ctx, settings.DSN)
		if err != nil {
			return nil, err
		}
		return ps, nil
	default:
		logger.Info("using in-memory storage")
		return store.NewMemoryStore(), nil
	}
}

func openBroadcaster(settings *server.BroadcastSettings, logger *log.Logger) (broadcast.Broadcaster, error) {
	logs := broadcast.NewLogBroadcaster(logger)
	if settings.Driver != "nats" {
		return logs, nil
	}
	nb, err := broadcast.NewNATSBroadcaster(settings.URL)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing snapshots to nats", "url", settings.URL)
	return broadcast.Multi{logs, nb}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// close stops every table, then flushes and closes storage and broadcasting
func (h *host) close(ctx context.Context) error {
	var errs []error
	if h.service != nil {
		errs = append(errs, h.service.Shutdown(ctx))
	}
	if h.metricsSrv != nil {
		errs = append(errs, h.metricsSrv.Shutdown(ctx))
	}
	if h.broadcaster != nil {
		errs = append(errs, h.broadcaster.Close())
	}
	if h.store != nil {
		errs = append(errs, h.store.Close())
	}
	return errors.Join(errs...)
}
