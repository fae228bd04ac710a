package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/ledger"
	"github.com/nstreif/mlb-wins-pool/internal/metrics"
	"github.com/nstreif/mlb-wins-pool/internal/models"
)

// HistoryRepository is the Postgres-backed pool history ledger. One row per
// calendar day, keyed by the day itself; ON CONFLICT DO NOTHING on the
// primary key is what makes InsertIfAbsent atomic across concurrent writers —
// two processes racing to log the same day commit exactly one row, and the
// loser sees inserted=false.
type HistoryRepository struct {
	db *Database
}

// ensureSchema creates the history table if it does not exist.
func (r *HistoryRepository) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS pool_history (
			day        DATE PRIMARY KEY,
			totals     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure pool_history schema: %w", err)
	}
	return nil
}

// InsertIfAbsent appends a record for day unless one already exists,
// reporting whether this call created it.
func (r *HistoryRepository) InsertIfAbsent(ctx context.Context, day time.Time, totals map[string]int) (bool, error) {
	start := time.Now()

	payload, err := json.Marshal(totals)
	if err != nil {
		return false, fmt.Errorf("failed to marshal totals: %w", err)
	}

	query := `
		INSERT INTO pool_history (day, totals)
		VALUES ($1, $2)
		ON CONFLICT (day) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query, models.Day(day), payload)
	if err != nil {
		metrics.RecordDBQuery("insert", "pool_history", "error", time.Since(start).Seconds())
		return false, fmt.Errorf("failed to insert history record: %w", err)
	}
	metrics.RecordDBQuery("insert", "pool_history", "success", time.Since(start).Seconds())

	inserted := tag.RowsAffected() == 1
	if inserted {
		log.Debug().
			Str("date", models.FormatDay(day)).
			Msg("History record inserted")
	}
	return inserted, nil
}

// GetByDate returns the record for day, if present.
func (r *HistoryRepository) GetByDate(ctx context.Context, day time.Time) (models.DailyTotals, bool, error) {
	query := `SELECT day, totals FROM pool_history WHERE day = $1`

	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, query, models.Day(day)))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DailyTotals{}, false, nil
	}
	if err != nil {
		return models.DailyTotals{}, false, fmt.Errorf("failed to get history record: %w", err)
	}
	return rec, true, nil
}

// List returns every record, sorted by day ascending.
func (r *HistoryRepository) List(ctx context.Context) ([]models.DailyTotals, error) {
	query := `SELECT day, totals FROM pool_history ORDER BY day ASC`
	return r.queryRecords(ctx, query)
}

// ListRange returns the records in the inclusive [from, to] interval, sorted
// ascending. An empty interval yields an empty slice.
func (r *HistoryRepository) ListRange(ctx context.Context, from, to time.Time) ([]models.DailyTotals, error) {
	query := `
		SELECT day, totals FROM pool_history
		WHERE day >= $1 AND day <= $2
		ORDER BY day ASC
	`
	return r.queryRecords(ctx, query, models.Day(from), models.Day(to))
}

// LastNDays returns the records in the trailing n-day window ending at the
// latest stored day.
func (r *HistoryRepository) LastNDays(ctx context.Context, n int) ([]models.DailyTotals, error) {
	if n <= 0 {
		return []models.DailyTotals{}, nil
	}

	query := `
		SELECT day, totals FROM pool_history
		WHERE day > (SELECT MAX(day) FROM pool_history) - $1::int
		ORDER BY day ASC
	`
	return r.queryRecords(ctx, query, n)
}

func (r *HistoryRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]models.DailyTotals, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []models.DailyTotals{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (models.DailyTotals, error) {
	var (
		day     time.Time
		payload []byte
	)
	if err := row.Scan(&day, &payload); err != nil {
		return models.DailyTotals{}, err
	}

	totals := map[string]int{}
	if err := json.Unmarshal(payload, &totals); err != nil {
		return models.DailyTotals{}, fmt.Errorf("%w: totals for %s: %v", ledger.ErrCorrupt, models.FormatDay(day), err)
	}

	return models.DailyTotals{Date: models.Day(day), Totals: totals}, nil
}

var _ ledger.Ledger = (*HistoryRepository)(nil)
