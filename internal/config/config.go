// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TierGate Contributors

// Package config loads tiergate configuration.
//
// Sources are layered lowest to highest: built-in defaults, the YAML config
// file, the DATABASE_URL environment variable (only when the file leaves
// database.url unset), then explicitly set command-line flags.
package config

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/tiergate/tiergate/internal/logging"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// DatabaseURLEnv names the environment fallback for database.url.
const DatabaseURLEnv = "DATABASE_URL"

// Config is the complete tiergate configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" json:"log,omitempty" yaml:"log"`
	Store    StoreConfig    `koanf:"store" json:"store,omitempty" yaml:"store"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty" yaml:"database"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
	Audit    AuditConfig    `koanf:"audit" json:"audit,omitempty" yaml:"audit"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text,default=json"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// StoreConfig selects where access state lives.
type StoreConfig struct {
	Driver string `koanf:"driver" json:"driver,omitempty" yaml:"driver" jsonschema:"enum=memory,enum=postgres,default=postgres"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL            string        `koanf:"url" json:"url,omitempty" yaml:"url,omitempty" jsonschema_description:"PostgreSQL URL; DATABASE_URL is used when unset"`
	ConnectRetries uint64        `koanf:"connect_retries" json:"connect_retries,omitempty" yaml:"connect_retries" jsonschema:"minimum=0,maximum=100"`
	ConnectBackoff time.Duration `koanf:"connect_backoff" json:"connect_backoff,omitempty" yaml:"connect_backoff" jsonschema:"type=string" jsonschema_description:"Initial retry delay as a Go duration, for example 500ms"`
	AutoMigrate    bool          `koanf:"auto_migrate" json:"auto_migrate,omitempty" yaml:"auto_migrate"`
}

// MetricsConfig configures the observability HTTP server.
type MetricsConfig struct {
	// Addr is host:port; empty disables the server.
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled,omitempty" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:   LogConfig{Format: "json", Level: "info"},
		Store: StoreConfig{Driver: DriverPostgres},
		Database: DatabaseConfig{
			ConnectRetries: 5,
			ConnectBackoff: 500 * time.Millisecond,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Audit:   AuditConfig{Enabled: true},
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-format":   "log.format",
	"log-level":    "log.level",
	"store":        "store.driver",
	"database-url": "database.url",
	"auto-migrate": "database.auto_migrate",
	"metrics-addr": "metrics.addr",
}

// RegisterFlags adds the config override flags to fs, defaulted from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("store", d.Store.Driver, "store driver (memory or postgres)")
	fs.String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations at startup")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// Path is the config file. A missing file is an error only when
	// Explicit is set.
	Path     string
	Explicit bool
	// Flags, when set, overlays the flags registered by RegisterFlags.
	Flags *pflag.FlagSet
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load builds and validates a Config.
func Load(opts LoadOptions) (*Config, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	k := koanf.New(".")
	if opts.Path != "" {
		if err := loadFile(k, opts.Path, opts.Explicit); err != nil {
			return nil, err
		}
	}

	if url := opts.Getenv(DatabaseURLEnv); url != "" && !k.Exists("database.url") {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.In("config").Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || (f.Name == "database-url" && !f.Changed) {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").Code("CONFIG_DECODE_FAILED").With("path", opts.Path).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	provider := file.Provider(path)
	data, err := provider.ReadBytes()
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return oops.In("config").Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateYAML(data); err != nil {
		return oops.In("config").With("path", path).Wrap(err)
	}
	if err := k.Load(provider, kyaml.Parser()); err != nil {
		return oops.In("config").Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be json or text, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown log level %q", c.Log.Level)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return invalid("database.url", "database.url or %s is required for the postgres store", DatabaseURLEnv)
		}
	default:
		return invalid("store.driver", "store.driver must be memory or postgres, got %q", c.Store.Driver)
	}

	if c.Database.ConnectBackoff < 0 {
		return invalid("database.connect_backoff", "database.connect_backoff must not be negative")
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return invalid("metrics.addr", "metrics.addr must be host:port, got %q", c.Metrics.Addr)
		}
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.In("config").Code("INVALID_CONFIG").With("key", key).Errorf(format, args...)
}

// Marshal renders c as YAML. The database URL is omitted when empty.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, oops.In("config").Code("CONFIG_MARSHAL_FAILED").Wrap(err)
	}
	return out, nil
}
