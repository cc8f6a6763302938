// Package config loads server settings from an optional YAML file overlaid
// with environment variables.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/validation"
)

// Storage backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the complete server configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Backup    BackupConfig    `yaml:"backup"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RequestTimeout bounds every API request, analytics included
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any
	CORSOrigins  []string `yaml:"cors_origins"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	// EventBuffer is the per-subscriber queue of the change feed
	EventBuffer int `yaml:"event_buffer"`
}

// StorageConfig selects where the network is persisted
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
	// ImportDir seeds an empty store from OpenFlights files
	ImportDir        string        `yaml:"import_dir"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// BackupConfig enables periodic snapshots to S3
type BackupConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Bucket          string        `yaml:"bucket"`
	Key             string        `yaml:"key"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	UsePathStyle    bool          `yaml:"use_path_style"`
	Interval        time.Duration `yaml:"interval"`
}

// AnalyticsConfig tunes the graph algorithms
type AnalyticsConfig struct {
	// Workers is the parallelism of centrality runs; 0 means GOMAXPROCS
	Workers    int     `yaml:"workers"`
	Resolution float64 `yaml:"resolution"`
	MaxLevels  int     `yaml:"max_levels"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
			EventBuffer:     256,
		},
		Storage: StorageConfig{
			Backend:          BackendFile,
			DataDir:          "./data/airnet",
			SnapshotInterval: 10 * time.Minute,
		},
		Backup: BackupConfig{
			Region:   "us-east-1",
			Key:      "airnet/snapshot.json.snappy",
			Interval: time.Hour,
		},
		Analytics: AnalyticsConfig{
			Resolution: 1.0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatJSON),
		},
	}
}

// Load reads path (if non-empty) and the process environment
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays environment variables on c
func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("PORT", &c.Server.Port)
	setDuration("AIRNET_REQUEST_TIMEOUT", &c.Server.RequestTimeout)
	setDuration("AIRNET_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
	setInt("AIRNET_EVENT_BUFFER", &c.Server.EventBuffer)
	if v := getenv("AIRNET_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = c.Server.CORSOrigins[:0:0]
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}

	setString("AIRNET_STORAGE_BACKEND", &c.Storage.Backend)
	setString("AIRNET_DATA_DIR", &c.Storage.DataDir)
	setString("AIRNET_DATABASE_URL", &c.Storage.DatabaseURL)
	setString("AIRNET_IMPORT_DIR", &c.Storage.ImportDir)
	setDuration("AIRNET_SNAPSHOT_INTERVAL", &c.Storage.SnapshotInterval)

	if v := getenv("AIRNET_BACKUP_BUCKET"); v != "" {
		c.Backup.Enabled = true
		c.Backup.Bucket = v
	}
	setString("AIRNET_BACKUP_KEY", &c.Backup.Key)
	setString("AIRNET_BACKUP_REGION", &c.Backup.Region)
	setString("AIRNET_BACKUP_ENDPOINT", &c.Backup.Endpoint)
	setString("AIRNET_BACKUP_ACCESS_KEY_ID", &c.Backup.AccessKeyID)
	setString("AIRNET_BACKUP_SECRET_ACCESS_KEY", &c.Backup.SecretAccessKey)
	setDuration("AIRNET_BACKUP_INTERVAL", &c.Backup.Interval)

	setInt("AIRNET_WORKERS", &c.Analytics.Workers)

	setString("LOG_LEVEL", &c.Log.Level)
	setString("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate checks the configuration as a whole
func (c *Config) Validate() error {
	return validation.NewConfigValidator("config").
		RangeInt("server.port", c.Server.Port, 1, 65535).
		MinDuration("server.request_timeout", c.Server.RequestTimeout, time.Second).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, time.Second).
		NonNegative("server.max_body_bytes", int(c.Server.MaxBodyBytes)).
		RangeInt("server.event_buffer", c.Server.EventBuffer, 1, 65536).
		OneOf("storage.backend", c.Storage.Backend, []string{BackendMemory, BackendFile, BackendPostgres}).
		When(c.Storage.Backend == BackendFile, func(cv *validation.ConfigValidator) {
			cv.Required("storage.data_dir", c.Storage.DataDir)
		}).
		When(c.Storage.Backend == BackendPostgres, func(cv *validation.ConfigValidator) {
			cv.Required("storage.database_url", c.Storage.DatabaseURL)
		}).
		When(c.Storage.Backend != BackendMemory, func(cv *validation.ConfigValidator) {
			cv.MinDuration("storage.snapshot_interval", c.Storage.SnapshotInterval, time.Second)
		}).
		When(c.Backup.Enabled, func(cv *validation.ConfigValidator) {
			cv.Required("backup.bucket", c.Backup.Bucket).
				Required("backup.region", c.Backup.Region).
				MinDuration("backup.interval", c.Backup.Interval, time.Minute)
		}).
		NonNegative("analytics.workers", c.Analytics.Workers).
		PositiveFloat("analytics.resolution", c.Analytics.Resolution).
		NonNegative("analytics.max_levels", c.Analytics.MaxLevels).
		OneOf("log.level", c.Log.Level, []string{"debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR"}).
		OneOf("log.format", c.Log.Format, []string{string(logging.FormatJSON), string(logging.FormatText)}).
		Validate()
}

// Logger builds the process logger described by c.Log
func (c *Config) Logger(w io.Writer) *logging.JSONLogger {
	return logging.New(w, logging.ParseLevel(c.Log.Level), logging.Format(c.Log.Format))
}
