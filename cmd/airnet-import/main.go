// Command airnet-import cleans an OpenFlights dataset and writes it as a
// network snapshot to a storage backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-airnet/pkg/config"
	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/persistence"
)

const targetStdout = "stdout"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	dir := flag.String("dir", "", "Directory holding airports.dat, airlines.dat and routes.dat")
	target := flag.String("target", "", "Where to write: file, postgres, s3 or stdout (default: storage.backend)")
	dataDir := flag.String("data", "", "Data directory for the file target (default: storage.data_dir)")
	databaseURL := flag.String("database-url", "", "PostgreSQL URL for the postgres target")
	bucket := flag.String("bucket", "", "Bucket for the s3 target (default: backup.bucket)")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Usage: airnet-import -dir ./openflights [-target file|postgres|s3|stdout] [-config airnet.yaml]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "OpenFlights data: https://openflights.org/data.php")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "airnet-import: %v\n", err)
		os.Exit(1)
	}
	if *target == "" {
		*target = cfg.Storage.Backend
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if *databaseURL != "" {
		cfg.Storage.DatabaseURL = *databaseURL
	}
	if *bucket != "" {
		cfg.Backup.Bucket = *bucket
	}

	// Logs go to stderr so the stdout target stays clean JSON
	logger := cfg.Logger(os.Stderr)
	if err := run(cfg, *dir, *target, logger); err != nil {
		logger.Error("import failed", logging.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, dir, target string, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, stats, err := persistence.ImportOpenFlightsDir(ctx, dir, logger)
	if err != nil {
		return err
	}

	// Loading validates the cleaned dataset as a whole before it is written
	g := network.NewGraph(network.Config{Logger: logger})
	if err := g.Load(ds); err != nil {
		return fmt.Errorf("imported dataset is inconsistent: %w", err)
	}

	opts := persistence.Options{Logger: logger}
	var sink network.Snapshotter
	switch target {
	case targetStdout:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	case config.BackendFile:
		s, err := persistence.OpenFileStore(cfg.Storage.DataDir, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		sink = s
	case config.BackendPostgres:
		s, err := persistence.NewPGStore(ctx, cfg.Storage.DatabaseURL, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		sink = s
	case "s3":
		if cfg.Backup.Bucket == "" {
			return fmt.Errorf("s3 target needs -bucket or AIRNET_BACKUP_BUCKET")
		}
		b, err := persistence.NewS3Backup(ctx, s3Config(cfg.Backup), opts)
		if err != nil {
			return err
		}
		sink = b
	default:
		return fmt.Errorf("unknown target %q", target)
	}

	if err := g.Checkpoint(ctx, sink); err != nil {
		return err
	}

	logger.Info("import written",
		logging.String("target", target),
		logging.Int("airports", stats.AirportsKept),
		logging.Int("airlines", stats.AirlinesKept),
		logging.Int("routes", stats.RoutesCreated),
		logging.Int("unknown_endpoint", stats.UnknownEndpoint),
		logging.Int("self_loops", stats.SelfLoops))
	return nil
}

func s3Config(cfg config.BackupConfig) persistence.S3Config {
	return persistence.S3Config{
		Bucket:          cfg.Bucket,
		Key:             cfg.Key,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		UsePathStyle:    cfg.UsePathStyle,
	}
}
