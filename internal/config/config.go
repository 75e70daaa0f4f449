// Package config loads shelfscan settings from .env files, an optional TOML
// file and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Catalog configures the external catalog sources.
type Catalog struct {
	OpenLibraryBaseURL string        `toml:"openlibrary_base_url"`
	GoogleBooksBaseURL string        `toml:"googlebooks_base_url"`
	GoogleBooksAPIKey  string        `toml:"googlebooks_api_key"`
	UserAgent          string        `toml:"user_agent"`
	RequestsPerSecond  int           `toml:"requests_per_second"`
	ResolveTimeout     time.Duration `toml:"-"`
	// ResolveTimeoutText holds the TOML form, e.g. "15s".
	ResolveTimeoutText string `toml:"resolve_timeout"`
}

// Library configures where resolved records are kept.
type Library struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	DatabaseDSN string `toml:"database_dsn"`
}

// Server configures the HTTP API.
type Server struct {
	Addr          string  `toml:"addr"`
	ScanRateLimit float64 `toml:"scan_rate_limit"`
	ScanRateBurst int     `toml:"scan_rate_burst"`
	MaxBodyBytes  int64   `toml:"max_body_bytes"`
	EnableHSTS    bool    `toml:"enable_hsts"`
}

// Logging configures the slog handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full shelfscan configuration.
type Config struct {
	Catalog Catalog `toml:"catalog"`
	Library Library `toml:"library"`
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Catalog: Catalog{
			OpenLibraryBaseURL: "https://openlibrary.org",
			GoogleBooksBaseURL: "https://www.googleapis.com",
			UserAgent:          "shelfscan/1.0 (+https://openlibrary.org/developers/api)",
			RequestsPerSecond:  5,
			ResolveTimeout:     15 * time.Second,
		},
		Library: Library{
			Backend: BackendSQLite,
			Path:    defaultLibraryPath(),
		},
		Server: Server{
			Addr:          ":8080",
			ScanRateLimit: 2,
			ScanRateBurst: 5,
			MaxBodyBytes:  1 << 20,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultLibraryPath() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "shelfscan", "library.db")
	}
	return "library.db"
}

// Load builds the configuration. path may be empty; SHELFSCAN_CONFIG is used
// then, and a missing file is not an error unless it was named explicitly.
func Load(path string) (Config, error) {
	loadEnvFiles()

	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = os.Getenv("SHELFSCAN_CONFIG")
		explicit = path != ""
	}
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				err = nil
			}
			if err != nil {
				return Config{}, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFiles() {
	// Do not override environment provided by the runtime (e.g. Docker).
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if text := strings.TrimSpace(cfg.Catalog.ResolveTimeoutText); text != "" {
		d, err := time.ParseDuration(text)
		if err != nil {
			return fmt.Errorf("parse config %s: catalog.resolve_timeout: %w", path, err)
		}
		cfg.Catalog.ResolveTimeout = d
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Addr, "APP_ADDR")
	setString(&cfg.Library.Backend, "LIBRARY_BACKEND")
	setString(&cfg.Library.Path, "LIBRARY_PATH")
	setString(&cfg.Library.DatabaseDSN, "DB_DSN")
	setString(&cfg.Catalog.OpenLibraryBaseURL, "OPENLIBRARY_BASE_URL")
	setString(&cfg.Catalog.GoogleBooksBaseURL, "GOOGLEBOOKS_BASE_URL")
	setString(&cfg.Catalog.GoogleBooksAPIKey, "GOOGLEBOOKS_API_KEY")
	setString(&cfg.Catalog.UserAgent, "CATALOG_USER_AGENT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("ENABLE_HSTS"); v != "" {
		cfg.Server.EnableHSTS = v == "true"
	}
	if v := os.Getenv("CATALOG_RPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CATALOG_RPS: %w", err)
		}
		cfg.Catalog.RequestsPerSecond = n
	}
	if v := os.Getenv("RESOLVE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RESOLVE_TIMEOUT: %w", err)
		}
		cfg.Catalog.ResolveTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) normalize() {
	c.Library.Backend = strings.ToLower(strings.TrimSpace(c.Library.Backend))
	c.Library.Path = strings.TrimSpace(c.Library.Path)
	c.Catalog.OpenLibraryBaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.OpenLibraryBaseURL), "/")
	c.Catalog.GoogleBooksBaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.GoogleBooksBaseURL), "/")
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Library.Backend {
	case BackendSQLite:
		if c.Library.Path == "" {
			return errors.New("library.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Library.DatabaseDSN == "" {
			return errors.New("library.database_dsn (DB_DSN) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("library.backend: unsupported value %q", c.Library.Backend)
	}
	if c.Catalog.OpenLibraryBaseURL == "" || c.Catalog.GoogleBooksBaseURL == "" {
		return errors.New("catalog base urls must not be empty")
	}
	if c.Catalog.ResolveTimeout <= 0 {
		return errors.New("catalog.resolve_timeout must be positive")
	}
	if c.Catalog.RequestsPerSecond < 0 {
		return errors.New("catalog.requests_per_second must not be negative")
	}
	switch c.Logging.Format {
	case "text", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
