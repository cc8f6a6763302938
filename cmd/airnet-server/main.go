package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/algorithms"
	"github.com/dd0wney/cluso-airnet/pkg/api"
	"github.com/dd0wney/cluso-airnet/pkg/config"
	"github.com/dd0wney/cluso-airnet/pkg/health"
	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/persistence"
	"github.com/dd0wney/cluso-airnet/pkg/pubsub"
	"github.com/dd0wney/cluso-airnet/pkg/scenario"
)

const systemMetricsInterval = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airnet-server: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.Logger(os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	reg := metrics.NewRegistry()
	opts := persistence.Options{Logger: logger, Metrics: reg}

	logger.Info("airnet server starting",
		logging.Backend(cfg.Storage.Backend),
		logging.Bool("backup", cfg.Backup.Enabled))

	store, err := openStore(ctx, cfg.Storage, opts)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var backup *persistence.S3Backup
	if cfg.Backup.Enabled {
		backup, err = persistence.NewS3Backup(ctx, s3Config(cfg.Backup), opts)
		if err != nil {
			return err
		}
	}

	events := pubsub.NewBroker(pubsub.Config{Buffer: cfg.Server.EventBuffer, Logger: logger, Metrics: reg})
	defer events.Shutdown()

	graphCfg := network.Config{Notifier: events, Logger: logger, Metrics: reg}
	if store != nil {
		graphCfg.Writer = store
	}
	g := network.NewGraph(graphCfg)

	if _, err := persistence.Bootstrap(ctx, g, store, restoreSources(cfg, store, backup, logger), logger); err != nil {
		return fmt.Errorf("restore network: %w", err)
	}

	analyzer := algorithms.NewAnalyzer(g, algorithms.AnalyzerConfig{
		Workers: cfg.Analytics.Workers,
		Louvain: algorithms.LouvainOptions{
			Resolution: cfg.Analytics.Resolution,
			MaxLevels:  cfg.Analytics.MaxLevels,
		},
		Logger:  logger,
		Metrics: reg,
	})
	engine := scenario.NewEngine(g, scenario.Config{Logger: logger})

	srv, err := api.NewServer(api.Options{
		Server:   cfg.Server,
		Graph:    g,
		Analyzer: analyzer,
		Scenario: engine,
		Health:   healthChecker(g, store, cfg.Storage.Backend),
		Events:   events,
		Metrics:  reg,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	background := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	if store != nil {
		background(func() {
			persistence.RunCheckpoints(ctx, g, store, cfg.Storage.SnapshotInterval, cfg.Storage.Backend, logger)
		})
	}
	if backup != nil {
		background(func() {
			persistence.RunCheckpoints(ctx, g, backup, cfg.Backup.Interval, "s3", logger)
		})
	}
	background(func() {
		ticker := time.NewTicker(systemMetricsInterval)
		defer ticker.Stop()
		for {
			reg.UpdateSystemMetrics(startTime)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case serveErr = <-errCh:
		stop()
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		serveErr = errors.Join(serveErr, fmt.Errorf("http shutdown: %w", err))
	}
	wg.Wait()

	// Final checkpoints so the next start replays nothing
	if store != nil {
		if err := g.Checkpoint(shutdownCtx, store); err != nil {
			serveErr = errors.Join(serveErr, err)
		}
	}
	if backup != nil {
		if err := g.Checkpoint(shutdownCtx, backup); err != nil {
			serveErr = errors.Join(serveErr, err)
		}
	}

	logger.Info("airnet server stopped", logging.Duration("uptime", time.Since(startTime)))
	return serveErr
}

// healthChecker registers the graph, store and memory checks
func healthChecker(g *network.Graph, store persistence.Store, backend string) *health.HealthChecker {
	hc := health.NewHealthChecker()
	hc.RegisterCheck("graph", health.GraphCheck(func() (int, int) {
		st := g.Stats()
		return st.Airports, st.Routes
	}))
	hc.RegisterCheck("memory", health.MemoryCheck(health.RuntimeMemory))
	if store != nil {
		check := health.StoreCheck(backend, store.Ping)
		hc.RegisterCheck("store", check)
		hc.RegisterReadinessCheck("store", check)
	} else {
		hc.RegisterReadinessCheck("store", health.SimpleCheck("store"))
	}
	hc.RegisterLivenessCheck("process", health.SimpleCheck("process"))
	return hc
}
