// Package autolog records today's pool totals into the ledger, at most once
// per calendar day no matter how often it runs.
package autolog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/backfill"
	"github.com/nstreif/mlb-wins-pool/internal/ledger"
	"github.com/nstreif/mlb-wins-pool/internal/metrics"
	"github.com/nstreif/mlb-wins-pool/internal/models"
	"github.com/nstreif/mlb-wins-pool/internal/pool"
)

// RunResult is the outcome of one auto-log invocation.
type RunResult struct {
	Date   time.Time
	Totals map[string]int

	// Inserted reports whether this invocation created today's ledger
	// record, as opposed to an earlier run already having logged it. It is
	// purely the ledger's idempotence outcome; the logger keeps no state
	// of its own.
	Inserted bool
}

// Logger fetches today's standings, aggregates them, and upserts the result
// into the ledger. Safe to invoke any number of times per day and across
// process restarts.
type Logger struct {
	fetcher      backfill.StandingsFetcher
	participants pool.Participants
	store        ledger.Ledger
	now          func() time.Time
}

// NewLogger creates an auto-logger. now may be nil to use the wall clock.
func NewLogger(fetcher backfill.StandingsFetcher, participants pool.Participants, store ledger.Ledger, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	return &Logger{
		fetcher:      fetcher,
		participants: participants,
		store:        store,
		now:          now,
	}
}

// RunOnce runs the pipeline for today. A fetch failure is fatal for this
// run and leaves the ledger untouched.
func (l *Logger) RunOnce(ctx context.Context) (RunResult, error) {
	today := models.Day(l.now())

	snap, err := l.fetcher.FetchStandings(ctx, today)
	if err != nil {
		metrics.RecordError("autolog", "fetch")
		return RunResult{}, fmt.Errorf("auto-log for %s: %w", models.FormatDay(today), err)
	}

	totals := pool.Aggregate(snap, l.participants)

	inserted, err := l.store.InsertIfAbsent(ctx, today, totals)
	if err != nil {
		metrics.RecordError("autolog", "ledger")
		return RunResult{}, fmt.Errorf("auto-log for %s: %w", models.FormatDay(today), err)
	}

	if inserted {
		metrics.RecordLedgerUpsert("inserted")
		metrics.RecordDailyLog()
		log.Info().
			Str("date", models.FormatDay(today)).
			Int("participants", len(totals)).
			Msg("Daily totals logged")
	} else {
		metrics.RecordLedgerUpsert("exists")
		log.Debug().
			Str("date", models.FormatDay(today)).
			Msg("Daily totals already logged")
	}

	return RunResult{Date: today, Totals: totals, Inserted: inserted}, nil
}
