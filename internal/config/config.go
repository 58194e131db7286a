// Package config defines the surebet configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields come from a TOML file and may be
// overridden by SUREBET_* environment variables.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Postgres PostgresConfig `toml:"postgres"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	OCR      OCRConfig      `toml:"ocr"`
	LLM      LLMConfig      `toml:"llm"`
	Analysis AnalysisConfig `toml:"analysis"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// StorageConfig picks the record store.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver string `toml:"driver"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SQLiteConfig holds the database file location.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// RedisConfig holds Redis connection parameters. When disabled, caching,
// rate limiting and pub/sub run in process.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	URL        string   `toml:"url"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	RecordTTL  duration `toml:"record_ttl"`
}

// S3Config holds object storage parameters for the upload archive and
// record exports.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// OCRConfig configures the OCR.space compatible text-recognition provider.
type OCRConfig struct {
	Enabled           bool     `toml:"enabled"`
	URL               string   `toml:"url"`
	APIKey            string   `toml:"api_key"`
	Language          string   `toml:"language"`
	Engine            string   `toml:"engine"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// LLMConfig configures the OpenAI-compatible structured-extraction
// collaborator.
type LLMConfig struct {
	Enabled           bool     `toml:"enabled"`
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Model             string   `toml:"model"`
	Temperature       float64  `toml:"temperature"`
	MaxTokens         int      `toml:"max_tokens"`
	Timeout           duration `toml:"timeout"`
	JSONMode          bool     `toml:"json_mode"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

// AnalysisConfig tunes screenshot analysis and the stake calculator.
type AnalysisConfig struct {
	// MemoTTL is how long an extraction is reused for identical OCR text.
	MemoTTL duration `toml:"memo_ttl"`
	// StakeRounding rounds calculated stakes to this step (0 disables).
	StakeRounding float64 `toml:"stake_rounding"`
	MaxUploadMB   int     `toml:"max_upload_mb"`
}

// duration wraps time.Duration so TOML strings like "5m" decode.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey guards every route but /api/health; empty disables auth.
	APIKey string `toml:"api_key"`
	// RateLimit is requests per client per minute; 0 disables limiting.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config that runs the API locally on the in-memory store
// with only the local parser.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{Driver: "memory"},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "surebet",
			User:          "surebet",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		SQLite: SQLiteConfig{Path: "surebet.db"},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			RecordTTL:  duration{10 * time.Minute},
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		OCR: OCRConfig{
			URL:               "https://api.ocr.space/parse/image",
			Language:          "por",
			Engine:            "2",
			Timeout:           duration{30 * time.Second},
			RequestsPerSecond: 1,
		},
		LLM: LLMConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			Temperature:       0,
			MaxTokens:         1024,
			Timeout:           duration{45 * time.Second},
			JSONMode:          true,
			RequestsPerSecond: 2,
			Burst:             2,
		},
		Analysis: AnalysisConfig{
			MemoTTL:       duration{time.Hour},
			StakeRounding: 0.01,
			MaxUploadMB:   10,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
		},
		Notify: NotifyConfig{
			Events: []string{"arbitrage.saved", "export.done"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

var (
	validModes     = []string{"server", "parse", "export"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validDrivers   = []string{"memory", "sqlite", "postgres"}
)

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Validate checks c and returns one error listing every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if !oneOf(c.Mode, validModes) {
		add("unknown mode %q (valid: %s)", c.Mode, strings.Join(validModes, ", "))
	}
	if !oneOf(c.LogLevel, validLogLevels) {
		add("unknown log_level %q (valid: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				add("postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				add("postgres: port must be 1-65535, got %d", c.Postgres.Port)
			}
			if c.Postgres.Database == "" {
				add("postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			add("postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			add("postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			add("sqlite: path must not be empty")
		}
	case "memory":
	default:
		add("storage: unknown driver %q (valid: %s)", c.Storage.Driver, strings.Join(validDrivers, ", "))
	}

	if c.Redis.Enabled {
		if c.Redis.URL == "" && c.Redis.Addr == "" {
			add("redis: url or addr must be set when enabled")
		}
		if c.Redis.PoolSize < 1 {
			add("redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			add("s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			add("s3: region must not be empty when enabled")
		}
	}
	if strings.EqualFold(c.Mode, "export") && !c.S3.Enabled {
		add("mode export requires s3.enabled")
	}

	if c.OCR.Enabled {
		if c.OCR.URL == "" {
			add("ocr: url must not be empty when enabled")
		}
		if c.OCR.APIKey == "" {
			add("ocr: api_key is required when enabled")
		}
	}

	if c.LLM.Enabled {
		if c.LLM.BaseURL == "" {
			add("llm: base_url must not be empty when enabled")
		}
		if c.LLM.Model == "" {
			add("llm: model must not be empty when enabled")
		}
		if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
			add("llm: temperature must be within [0, 2], got %g", c.LLM.Temperature)
		}
	}

	if c.Analysis.StakeRounding < 0 {
		add("analysis: stake_rounding must be >= 0")
	}
	if c.Analysis.MaxUploadMB < 1 {
		add("analysis: max_upload_mb must be >= 1")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server: port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		add("server: rate_limit must be >= 0")
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		add("notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
