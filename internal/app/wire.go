package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/surebet/internal/blob/s3"
	"github.com/alanyoungcy/surebet/internal/cache/redis"
	"github.com/alanyoungcy/surebet/internal/config"
	"github.com/alanyoungcy/surebet/internal/domain"
	"github.com/alanyoungcy/surebet/internal/extract"
	"github.com/alanyoungcy/surebet/internal/metrics"
	"github.com/alanyoungcy/surebet/internal/notify"
	"github.com/alanyoungcy/surebet/internal/ocr"
	"github.com/alanyoungcy/surebet/internal/server/handler"
	"github.com/alanyoungcy/surebet/internal/service"
	"github.com/alanyoungcy/surebet/internal/store/memory"
	"github.com/alanyoungcy/surebet/internal/store/postgres"
	"github.com/alanyoungcy/surebet/internal/store/sqlite"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	RecordStore domain.RecordStore
	AuditStore  domain.AuditStore

	// Caches and coordination
	RecordCache   domain.RecordCache
	AnalysisCache domain.AnalysisCache
	RateLimiter   domain.RateLimiter
	LockManager   domain.LockManager
	SignalBus     domain.SignalBus

	// Blob storage; nil when s3 is disabled.
	Archiver domain.Archiver

	// Collaborators; OCR is nil when disabled.
	OCR       ocr.Engine
	Extractor *extract.Extractor

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics

	// Health lists the pingable backends by name.
	Health map[string]handler.Pinger

	Analysis *service.AnalysisService
	Records  *service.RecordService
	Exports  *service.ExportService
}

// Wire constructs all concrete implementations from cfg and returns them
// with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(what string, err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: %s: %w", what, err)
	}

	deps := &Dependencies{
		Metrics: metrics.New(),
		Health:  make(map[string]handler.Pinger),
	}

	// --- Record storage ---
	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail("postgres", err)
		}
		closers = append(closers, pgClient.Close)
		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail("postgres migrations", err)
			}
		}
		pool := pgClient.Pool()
		deps.RecordStore = postgres.NewRecordStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Health["postgres"] = pgClient

	case "sqlite":
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return fail("sqlite", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		deps.RecordStore = db.Records()
		deps.AuditStore = db.Audit()
		deps.Health["sqlite"] = db

	default:
		logger.Warn("using in-memory record store; records are lost on restart")
		deps.RecordStore = memory.NewRecordStore()
		deps.AuditStore = memory.NewAuditStore()
	}

	// --- Redis, or the in-process equivalents ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			URL:        cfg.Redis.URL,
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail("redis", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RecordCache = redis.NewRecordCache(redisClient, cfg.Redis.RecordTTL.Duration)
		deps.AnalysisCache = redis.NewAnalysisCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.Health["redis"] = redisClient
	} else {
		deps.AnalysisCache = memory.NewAnalysisCache()
		deps.RateLimiter = memory.NewRateLimiter()
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail("s3", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		reader := s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), reader, reader)
		deps.Health["s3"] = handler.PingFunc(s3Client.Health)
	}

	// --- OCR and structured extraction ---
	if cfg.OCR.Enabled {
		deps.OCR = ocr.NewSpaceClient(ocr.SpaceConfig{
			URL:               cfg.OCR.URL,
			APIKey:            cfg.OCR.APIKey,
			Language:          cfg.OCR.Language,
			Engine:            cfg.OCR.Engine,
			Timeout:           cfg.OCR.Timeout.Duration,
			RequestsPerSecond: cfg.OCR.RequestsPerSecond,
		})
	}
	var llm extract.Completer
	if cfg.LLM.Enabled {
		llm = extract.NewClient(extract.Config{
			BaseURL:           cfg.LLM.BaseURL,
			APIKey:            cfg.LLM.APIKey,
			Model:             cfg.LLM.Model,
			Temperature:       cfg.LLM.Temperature,
			MaxTokens:         cfg.LLM.MaxTokens,
			Timeout:           cfg.LLM.Timeout.Duration,
			JSONMode:          cfg.LLM.JSONMode,
			RequestsPerSecond: cfg.LLM.RequestsPerSecond,
			Burst:             cfg.LLM.Burst,
		})
	}
	deps.Extractor = extract.NewExtractor(llm, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender("", cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Analysis = service.NewAnalysisService(
		deps.Extractor,
		deps.OCR,
		deps.AnalysisCache,
		deps.Archiver,
		deps.Metrics,
		service.AnalysisConfig{MemoTTL: cfg.Analysis.MemoTTL.Duration},
		logger,
	)
	deps.Records = service.NewRecordService(
		deps.RecordStore,
		deps.RecordCache,
		deps.AuditStore,
		deps.SignalBus,
		deps.Archiver,
		deps.Notifier,
		deps.Metrics,
		logger,
	)
	deps.Exports = service.NewExportService(
		deps.Records,
		deps.Archiver,
		deps.LockManager,
		deps.AuditStore,
		deps.Notifier,
		deps.Metrics,
		logger,
	)

	return deps, cleanup, nil
}
