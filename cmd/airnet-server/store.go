package main

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-airnet/pkg/config"
	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/persistence"
)

// openStore opens the configured primary backend. The memory backend has
// none and yields a nil Store.
func openStore(ctx context.Context, cfg config.StorageConfig, opts persistence.Options) (persistence.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return nil, nil
	case config.BackendFile:
		s, err := persistence.OpenFileStore(cfg.DataDir, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := persistence.NewPGStore(ctx, cfg.DatabaseURL, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// restoreSources lists where a network may be restored from, most
// authoritative first: the primary store, the S3 backup, then the
// OpenFlights import directory.
func restoreSources(cfg *config.Config, store persistence.Store, backup *persistence.S3Backup, logger logging.Logger) []persistence.Source {
	var sources []persistence.Source
	if store != nil {
		sources = append(sources, persistence.Source{Name: cfg.Storage.Backend, Loader: store})
	}
	if backup != nil {
		sources = append(sources, persistence.Source{Name: "s3", Loader: backup})
	}
	if cfg.Storage.ImportDir != "" {
		sources = append(sources, persistence.Source{
			Name:   "openflights",
			Loader: persistence.OpenFlightsLoader{Dir: cfg.Storage.ImportDir, Logger: logger},
		})
	}
	return sources
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
