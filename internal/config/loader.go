package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges the TOML file at path over Defaults, loads a .env file when
// present and applies SUREBET_* overrides. An empty path skips the file. The
// result is not validated; call Config.Validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// A missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides lets operators inject secrets and per-deploy settings
// without touching the TOML file. Unset or empty variables change nothing;
// when two variables target one field the SUREBET_* one is applied last.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Storage.Driver, "SUREBET_STORAGE_DRIVER")

	setStr(&cfg.Postgres.DSN, "DATABASE_URL")
	setStr(&cfg.Postgres.DSN, "SUREBET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SUREBET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SUREBET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SUREBET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SUREBET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SUREBET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SUREBET_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SUREBET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SUREBET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SUREBET_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.SQLite.Path, "SUREBET_SQLITE_PATH")

	setBool(&cfg.Redis.Enabled, "SUREBET_REDIS_ENABLED")
	setStr(&cfg.Redis.URL, "SUREBET_REDIS_URL")
	setStr(&cfg.Redis.Addr, "SUREBET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SUREBET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SUREBET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SUREBET_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "SUREBET_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.RecordTTL, "SUREBET_REDIS_RECORD_TTL")

	setBool(&cfg.S3.Enabled, "SUREBET_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SUREBET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SUREBET_S3_REGION")
	setStr(&cfg.S3.Bucket, "SUREBET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SUREBET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SUREBET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SUREBET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SUREBET_S3_FORCE_PATH_STYLE")

	setBool(&cfg.OCR.Enabled, "SUREBET_OCR_ENABLED")
	setStr(&cfg.OCR.URL, "SUREBET_OCR_URL")
	setStr(&cfg.OCR.APIKey, "SUREBET_OCR_API_KEY")
	setStr(&cfg.OCR.Language, "SUREBET_OCR_LANGUAGE")
	setDuration(&cfg.OCR.Timeout, "SUREBET_OCR_TIMEOUT")

	setBool(&cfg.LLM.Enabled, "SUREBET_LLM_ENABLED")
	setStr(&cfg.LLM.BaseURL, "SUREBET_LLM_BASE_URL")
	setStr(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setStr(&cfg.LLM.APIKey, "SUREBET_LLM_API_KEY")
	setStr(&cfg.LLM.Model, "SUREBET_LLM_MODEL")
	setFloat64(&cfg.LLM.Temperature, "SUREBET_LLM_TEMPERATURE")
	setInt(&cfg.LLM.MaxTokens, "SUREBET_LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, "SUREBET_LLM_TIMEOUT")

	setDuration(&cfg.Analysis.MemoTTL, "SUREBET_ANALYSIS_MEMO_TTL")
	setFloat64(&cfg.Analysis.StakeRounding, "SUREBET_ANALYSIS_STAKE_ROUNDING")
	setInt(&cfg.Analysis.MaxUploadMB, "SUREBET_ANALYSIS_MAX_UPLOAD_MB")

	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.Port, "SUREBET_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SUREBET_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SUREBET_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SUREBET_SERVER_RATE_LIMIT")

	setStr(&cfg.Notify.TelegramToken, "SUREBET_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SUREBET_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SUREBET_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SUREBET_NOTIFY_EVENTS")

	setStr(&cfg.Mode, "SUREBET_MODE")
	setStr(&cfg.LogLevel, "SUREBET_LOG_LEVEL")
}

// Typed env helpers. Values that fail to parse are ignored.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
