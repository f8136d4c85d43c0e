package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mfaber/tradewatch/internal/config"
	"github.com/mfaber/tradewatch/internal/flatfile"
	"github.com/mfaber/tradewatch/internal/metrics"
	"github.com/mfaber/tradewatch/internal/model"
	"github.com/mfaber/tradewatch/internal/pipeline"
	"github.com/mfaber/tradewatch/internal/polygon"
	"github.com/mfaber/tradewatch/internal/source"
	"github.com/mfaber/tradewatch/internal/storage"
	"github.com/mfaber/tradewatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/pipeline.local.yaml", "path to config file")
	dateStr := flag.String("date", "", "trading date YYYY-MM-DD (default: previous business day)")
	backfillDays := flag.Int("backfill", 0, "run the last N business days ending at -date")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Credentials usually live in .env during local runs
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using process environment")
	}

	logger.Info("starting pipeline",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"source", cfg.Pipeline.Source,
		"window_size", cfg.Detection.WindowSize,
		"z_threshold", cfg.Detection.ZThreshold,
	)

	// Resolve the trading date to process
	date := model.PrevBusinessDay(time.Now().UTC())
	if *dateStr != "" {
		date, err = model.ParseDay(*dateStr)
		if err != nil {
			logger.Error("invalid -date", "value", *dateStr, "error", err)
			os.Exit(1)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Postgres.Host,
		"port", cfg.Database.Postgres.Port,
		"database", cfg.Database.Postgres.Name,
	)

	store, err := storage.Open(ctx, cfg.Database.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready")

	// Build data sources in fallback order
	resolver, err := buildResolver(cfg, logger)
	if err != nil {
		logger.Error("failed to build data sources", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint, unless disabled by port -1
	var recorder *metrics.Recorder
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Port != -1 {
		recorder = metrics.New()
		resolver.OnFailure(recorder.RecordSourceFailure)

		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, recorder.Handler())
		mux.HandleFunc("/health", healthHandler(store))

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	p := pipeline.New(pipeline.Config{
		WindowSize:      cfg.Detection.WindowSize,
		ZThreshold:      cfg.Detection.ZThreshold,
		Concurrency:     cfg.Pipeline.Concurrency,
		PersistAttempts: cfg.Pipeline.PersistAttempts,
	}, resolver, store, recorder, logger)

	exitCode := 0
	if *backfillDays > 0 {
		report, err := p.Backfill(ctx, date, *backfillDays)
		if err != nil {
			logger.Error("backfill aborted", "error", err)
			exitCode = 1
		} else if len(report.Succeeded) == 0 && len(report.Failed) > 0 {
			logger.Error("backfill failed for every date", "failed", len(report.Failed))
			exitCode = 1
		}
		for _, d := range report.Failed {
			logger.Warn("backfill date failed", "date", model.FormatDay(d))
		}
	} else {
		res, err := p.RunForDate(ctx, date)
		if err != nil {
			logger.Error("run failed",
				"date", model.FormatDay(date),
				"state", res.State,
				"error", err,
			)
			exitCode = 1
		}
	}

	// Stop the metrics server and wait for it
	cancel()
	if err := g.Wait(); err != nil {
		logger.Error("metrics server error", "error", err)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	logger.Info("pipeline stopped")
}

// buildResolver assembles the source chain the run will try in order.
func buildResolver(cfg *config.Config, logger *slog.Logger) (*source.Resolver, error) {
	var sources []source.Source

	addREST := func() {
		client := polygon.NewClient(cfg.API.BaseURL, cfg.API.APIKey,
			polygon.WithLogger(logger),
			polygon.WithTimeout(cfg.API.Timeout),
			polygon.WithRetries(cfg.API.MaxRetries, time.Second),
			polygon.WithRateLimit(cfg.API.RequestsPerSec),
		)
		sources = append(sources, source.NewREST(client))
	}
	addFlatFiles := func() error {
		fetcher, err := flatfile.New(
			cfg.FlatFiles.Endpoint,
			cfg.FlatFiles.AccessKey,
			cfg.FlatFiles.SecretKey,
			cfg.FlatFiles.Bucket,
			flatfile.WithLogger(logger),
			flatfile.WithTimeout(cfg.FlatFiles.Timeout),
			flatfile.WithMaxElapsedRetry(cfg.FlatFiles.MaxElapsedRetry),
		)
		if err != nil {
			return err
		}
		filter := flatfile.TradeFilter{
			Venues:  cfg.FlatFiles.Venues,
			MinSize: cfg.FlatFiles.MinTradeSize,
		}
		sources = append(sources, source.NewFlatFile(fetcher, cfg.FlatFiles.UseTrades, filter))
		return nil
	}

	switch cfg.Pipeline.Source {
	case config.SourceRest:
		addREST()
	case config.SourceFlatFile:
		if err := addFlatFiles(); err != nil {
			return nil, err
		}
		if cfg.Pipeline.Fallback {
			addREST()
		}
	default: // auto
		if cfg.FlatFiles.Enabled {
			if err := addFlatFiles(); err != nil {
				return nil, err
			}
		}
		addREST()
	}

	return source.NewResolver(logger, sources...), nil
}

// healthHandler reports process health as JSON, degraded to 503 when the
// database is unreachable.
func healthHandler(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]string),
		}

		if err := store.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = "disconnected: " + err.Error()
		} else {
			health.Components["postgres"] = "connected"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	}
}
