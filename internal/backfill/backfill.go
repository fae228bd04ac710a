// Package backfill replays the fetch-aggregate-log pipeline across a
// historical date range to fill in missing ledger records.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/ledger"
	"github.com/nstreif/mlb-wins-pool/internal/metrics"
	"github.com/nstreif/mlb-wins-pool/internal/models"
	"github.com/nstreif/mlb-wins-pool/internal/pool"
)

// StandingsFetcher retrieves the standings snapshot for one calendar date.
type StandingsFetcher interface {
	FetchStandings(ctx context.Context, day time.Time) (models.Snapshot, error)
}

// DayStatus is the terminal state of one date within a backfill run.
type DayStatus string

const (
	// StatusLogged means this run fetched, aggregated, and inserted the
	// day's record.
	StatusLogged DayStatus = "logged"

	// StatusExisting means the day was already in the ledger; the stored
	// totals were read back so the range view stays complete.
	StatusExisting DayStatus = "existing"

	// StatusFailed means the fetch for the day failed. Terminal for that
	// day only; the rest of the range is unaffected.
	StatusFailed DayStatus = "failed"
)

// DayReport is the outcome of one date in a backfill run.
type DayReport struct {
	Date   time.Time
	Status DayStatus
	Totals map[string]int // nil when Status is StatusFailed
	Err    error          // nil unless Status is StatusFailed
}

// Result is the outcome of a whole backfill run.
type Result struct {
	Days []DayReport
}

// Totals returns the successfully covered days as ordered DailyTotals,
// regardless of whether this run or an earlier one produced each record.
func (r Result) Totals() []models.DailyTotals {
	out := []models.DailyTotals{}
	for _, d := range r.Days {
		if d.Status == StatusFailed {
			continue
		}
		out = append(out, models.DailyTotals{Date: d.Date, Totals: d.Totals})
	}
	return out
}

// Failures returns the days whose fetch failed.
func (r Result) Failures() []DayReport {
	out := []DayReport{}
	for _, d := range r.Days {
		if d.Status == StatusFailed {
			out = append(out, d)
		}
	}
	return out
}

// Orchestrator drives the fetcher and aggregator across a date range to
// populate the ledger.
type Orchestrator struct {
	fetcher      StandingsFetcher
	participants pool.Participants
	store        ledger.Ledger
}

// NewOrchestrator creates a backfill orchestrator.
func NewOrchestrator(fetcher StandingsFetcher, participants pool.Participants, store ledger.Ledger) *Orchestrator {
	return &Orchestrator{
		fetcher:      fetcher,
		participants: participants,
		store:        store,
	}
}

// Run processes every date in the inclusive [from, to] range in ascending
// order, strictly sequentially. A failed fetch is recorded and skipped; it
// never aborts the remaining range, and the orchestrator carries no state
// from one date to the next. Ledger errors are fatal and returned
// immediately: a store that cannot be written (or is corrupt) must surface,
// never be skipped past.
func (o *Orchestrator) Run(ctx context.Context, from, to time.Time) (Result, error) {
	from, to = models.Day(from), models.Day(to)
	if to.Before(from) {
		return Result{}, fmt.Errorf("backfill range is inverted: %s after %s", models.FormatDay(from), models.FormatDay(to))
	}

	start := time.Now()
	log.Info().
		Str("from", models.FormatDay(from)).
		Str("to", models.FormatDay(to)).
		Msg("Starting backfill")

	var result Result
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			metrics.RecordBackfill("cancelled", time.Since(start).Seconds())
			return result, ctx.Err()
		default:
		}

		report, err := o.runDay(ctx, day)
		if err != nil {
			metrics.RecordBackfill("error", time.Since(start).Seconds())
			return result, err
		}
		result.Days = append(result.Days, report)
	}

	failures := len(result.Failures())
	log.Info().
		Int("days", len(result.Days)).
		Int("failed", failures).
		Dur("duration", time.Since(start)).
		Msg("Backfill complete")
	metrics.RecordBackfill("success", time.Since(start).Seconds())

	return result, nil
}

// runDay walks one date through the per-day pipeline. The returned error is
// non-nil only for ledger failures; fetch failures come back as a
// StatusFailed report.
func (o *Orchestrator) runDay(ctx context.Context, day time.Time) (DayReport, error) {
	snap, err := o.fetcher.FetchStandings(ctx, day)
	if err != nil {
		log.Warn().
			Err(err).
			Str("date", models.FormatDay(day)).
			Msg("Could not fetch standings, skipping day")
		metrics.RecordBackfillDay("failed")
		metrics.RecordError("backfill", "fetch")
		return DayReport{Date: day, Status: StatusFailed, Err: err}, nil
	}

	totals := pool.Aggregate(snap, o.participants)

	inserted, err := o.store.InsertIfAbsent(ctx, day, totals)
	if err != nil {
		return DayReport{}, fmt.Errorf("backfill of %s: %w", models.FormatDay(day), err)
	}

	if inserted {
		metrics.RecordBackfillDay("logged")
		metrics.RecordLedgerUpsert("inserted")
		return DayReport{Date: day, Status: StatusLogged, Totals: totals}, nil
	}

	// Already logged by an earlier run (or a concurrent writer). Read the
	// stored totals back so callers see the committed record, not the
	// totals this run computed and discarded.
	metrics.RecordBackfillDay("existing")
	metrics.RecordLedgerUpsert("exists")

	existing, ok, err := o.store.GetByDate(ctx, day)
	if err != nil {
		return DayReport{}, fmt.Errorf("backfill of %s: %w", models.FormatDay(day), err)
	}
	if !ok {
		// Insert said the day exists but the read missed it; only possible
		// with a non-transactional store misbehaving.
		return DayReport{}, fmt.Errorf("backfill of %s: record vanished between insert and read", models.FormatDay(day))
	}

	return DayReport{Date: day, Status: StatusExisting, Totals: existing.Totals}, nil
}
