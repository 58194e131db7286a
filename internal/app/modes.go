package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/surebet/internal/server"
	"github.com/alanyoungcy/surebet/internal/server/handler"
	"github.com/alanyoungcy/surebet/internal/server/ws"
	"github.com/alanyoungcy/surebet/internal/service"
)

// imageExts are the file extensions parse mode sends through OCR.
var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true, ".bmp": true,
}

// ServerMode runs the HTTP API and the WebSocket hub until ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.SignalBus, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      time.Now().UTC(),
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	}, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
		},
		server.Handlers{
			Health:    handler.NewHealthHandler(deps.Health, a.cfg.Mode, a.logger),
			Analyze:   handler.NewAnalyzeHandler(deps.Analysis, a.cfg.Analysis.MaxUploadMB, a.logger),
			Calculate: handler.NewCalculateHandler(a.cfg.Analysis.StakeRounding, a.logger),
			Records:   handler.NewRecordHandler(deps.Records, a.logger),
			Exports:   handler.NewExportHandler(deps.Exports, a.logger),
		},
		server.Deps{
			Hub:     hub,
			Limiter: deps.RateLimiter,
			Metrics: deps.Metrics,
		},
		a.logger,
	)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)),
			slog.Bool("ocr", deps.OCR != nil),
			slog.Bool("llm", deps.Extractor.Collaborating()),
			slog.Bool("s3", deps.Archiver != nil),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

// ParseMode analyzes one file and prints the result as JSON. Images go
// through OCR; anything else is read as OCR text.
func (a *App) ParseMode(ctx context.Context, deps *Dependencies) error {
	if a.opts.Input == "" {
		return fmt.Errorf("app: parse mode needs an input file")
	}
	data, err := os.ReadFile(a.opts.Input)
	if err != nil {
		return fmt.Errorf("app: read input: %w", err)
	}

	var result service.Analysis
	if imageExts[strings.ToLower(filepath.Ext(a.opts.Input))] {
		result, err = deps.Analysis.AnalyzeImage(ctx, data, filepath.Base(a.opts.Input))
	} else {
		result, err = deps.Analysis.AnalyzeText(ctx, string(data))
	}
	if err != nil {
		return fmt.Errorf("app: analyze %s: %w", a.opts.Input, err)
	}

	enc := json.NewEncoder(a.opts.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("app: write result: %w", err)
	}
	return nil
}

// ExportMode writes one JSONL export of every record and exits.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	res, err := deps.Exports.Export(ctx)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.logger.InfoContext(ctx, "export complete",
		slog.String("path", res.Path),
		slog.Int("count", res.Count),
	)
	return nil
}
