// Command backfill replays the fetch-aggregate-log pipeline over a date
// range to fill in missing ledger records. Days already logged are left
// untouched; days whose fetch fails are reported and skipped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/backfill"
	"github.com/nstreif/mlb-wins-pool/internal/cache"
	"github.com/nstreif/mlb-wins-pool/internal/client"
	"github.com/nstreif/mlb-wins-pool/internal/config"
	"github.com/nstreif/mlb-wins-pool/internal/ledger"
	"github.com/nstreif/mlb-wins-pool/internal/models"
	"github.com/nstreif/mlb-wins-pool/internal/pool"
	"github.com/nstreif/mlb-wins-pool/internal/repository"
)

func main() {
	var (
		fromFlag = flag.String("from", "", "start date (YYYY-MM-DD, inclusive)")
		toFlag   = flag.String("to", "", "end date (YYYY-MM-DD, inclusive; default today)")
		days     = flag.Int("days", 0, "alternative to -from: backfill this many trailing days")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx := context.Background()
	cfg := config.MustLoad()

	to := models.Day(time.Now())
	if *toFlag != "" {
		var err error
		to, err = models.ParseDay(*toFlag)
		if err != nil {
			log.Fatal().Err(err).Str("to", *toFlag).Msg("Invalid -to date")
		}
	}

	var from time.Time
	switch {
	case *fromFlag != "":
		var err error
		from, err = models.ParseDay(*fromFlag)
		if err != nil {
			log.Fatal().Err(err).Str("from", *fromFlag).Msg("Invalid -from date")
		}
	case *days > 0:
		from = to.AddDate(0, 0, -(*days - 1))
	default:
		fmt.Fprintln(os.Stderr, "usage: backfill -from YYYY-MM-DD [-to YYYY-MM-DD] | -days N")
		os.Exit(2)
	}

	participants, err := pool.Load(cfg.ParticipantsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load participants")
	}

	store, closeLedger, err := openLedger(ctx, cfg, participants)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history ledger")
	}
	defer closeLedger()

	mlbClient := client.NewClient(cfg.MLBBaseURL, cfg.MLBSeason, cfg.MLBTimeout, cache.NewMemory())

	orch := backfill.NewOrchestrator(mlbClient, participants, store)
	result, err := orch.Run(ctx, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("Backfill aborted")
	}

	logged, existing := 0, 0
	for _, day := range result.Days {
		switch day.Status {
		case backfill.StatusLogged:
			logged++
		case backfill.StatusExisting:
			existing++
		case backfill.StatusFailed:
			log.Warn().
				Err(day.Err).
				Str("date", models.FormatDay(day.Date)).
				Msg("Day skipped")
		}
	}

	log.Info().
		Str("from", models.FormatDay(from)).
		Str("to", models.FormatDay(to)).
		Int("logged", logged).
		Int("existing", existing).
		Int("failed", len(result.Failures())).
		Msg("Backfill complete")
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
		return ledger.NewFileLedger(cfg.LedgerPath, participants.Names()), func() {}, nil
	}
}
