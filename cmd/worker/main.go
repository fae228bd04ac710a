package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/autolog"
	"github.com/nstreif/mlb-wins-pool/internal/backfill"
	"github.com/nstreif/mlb-wins-pool/internal/cache"
	"github.com/nstreif/mlb-wins-pool/internal/client"
	"github.com/nstreif/mlb-wins-pool/internal/config"
	"github.com/nstreif/mlb-wins-pool/internal/ledger"
	"github.com/nstreif/mlb-wins-pool/internal/metrics"
	"github.com/nstreif/mlb-wins-pool/internal/models"
	"github.com/nstreif/mlb-wins-pool/internal/pool"
	"github.com/nstreif/mlb-wins-pool/internal/repository"
	"github.com/nstreif/mlb-wins-pool/internal/scheduler"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting MLB Wins Pool Worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("ledger_backend", cfg.LedgerBackend).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Load participant configuration
	participants, err := pool.Load(cfg.ParticipantsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load participants")
	}
	log.Info().
		Int("participants", len(participants)).
		Int("teams", participants.TeamCount()).
		Msg("Participants configured")

	// Initialize snapshot cache
	var snapCache cache.SnapshotCache = cache.NewMemory()
	if cfg.CacheBackend == config.CacheBackendRedis {
		redisCache, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - falling back to in-memory snapshot cache")
		} else {
			defer redisCache.Close()
			snapCache = redisCache
		}
	}

	// Initialize standings client
	mlbClient := client.NewClient(cfg.MLBBaseURL, cfg.MLBSeason, cfg.MLBTimeout, snapCache)
	log.Info().Str("season", cfg.MLBSeason).Msg("Standings client initialized")

	// Open the history ledger
	store, closeLedger, err := openLedger(ctx, cfg, participants)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history ledger")
	}
	defer closeLedger()

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(fmt.Sprintf("%d", cfg.MetricsPort))
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	logger := autolog.NewLogger(mlbClient, participants, store, nil)

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg, mlbClient, logger)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Backfill recent history on startup so a worker that was down for a
	// few days repairs its own gap. Idempotent upserts make this free for
	// days that are already logged.
	if cfg.BackfillOnStart && cfg.BackfillDays > 0 {
		log.Info().Int("days", cfg.BackfillDays).Msg("Running startup backfill...")
		orch := backfill.NewOrchestrator(mlbClient, participants, store)
		to := models.Day(time.Now())
		from := to.AddDate(0, 0, -(cfg.BackfillDays - 1))
		result, err := orch.Run(ctx, from, to)
		if err != nil {
			log.Error().Err(err).Msg("Startup backfill failed, continuing anyway...")
		} else {
			log.Info().
				Int("days", len(result.Days)).
				Int("failed", len(result.Failures())).
				Msg("Startup backfill completed")
		}
	}

	// Log today immediately rather than waiting for the first tick.
	if _, err := logger.RunOnce(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial daily log failed, scheduler will retry")
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// openLedger opens the configured ledger backend and returns it with its
// cleanup function.
func openLedger(ctx context.Context, cfg *config.Config, participants pool.Participants) (ledger.Ledger, func(), error) {
	switch cfg.LedgerBackend {
	case config.LedgerBackendPostgres:
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     fmt.Sprintf("%d", cfg.DatabasePort),
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		return db.History, db.Close, nil

	default:
		fl := ledger.NewFileLedger(cfg.LedgerPath, participants.Names())
		log.Info().Str("path", cfg.LedgerPath).Msg("CSV history ledger opened")
		return fl, func() {}, nil
	}
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
