// Package ledger defines the durable, date-keyed history of daily pool
// totals and a CSV-file-backed implementation.
//
// The central invariant is at most one record per calendar date. Writers go
// through InsertIfAbsent, which inserts only when the date is absent and
// otherwise leaves the store untouched; running the whole fetch-aggregate-log
// pipeline any number of times in one day therefore produces exactly one
// record. The ledger only ever grows — there is no delete or compaction.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/nstreif/mlb-wins-pool/internal/models"
)

// ErrCorrupt means the persisted store exists but cannot be parsed. It is
// always surfaced to the caller; the store is never reset or truncated to
// recover, since that would silently destroy history.
var ErrCorrupt = errors.New("ledger store corrupt")

// Ledger is the date-keyed store of daily totals.
//
// Reads always reflect the most recently committed state, including writes
// from other processes sharing the same backing store. A successful
// InsertIfAbsent is fully persisted before it returns true.
type Ledger interface {
	// InsertIfAbsent appends a record for day unless one already exists.
	// It reports whether this call created the record. Losing a race with
	// a concurrent writer for the same day is not an error; the loser
	// simply observes false.
	InsertIfAbsent(ctx context.Context, day time.Time, totals map[string]int) (bool, error)

	// GetByDate returns the record for day, if present.
	GetByDate(ctx context.Context, day time.Time) (models.DailyTotals, bool, error)

	// List returns every record, sorted by date ascending.
	List(ctx context.Context) ([]models.DailyTotals, error)

	// ListRange returns the records in the inclusive [from, to] interval,
	// sorted ascending. An empty interval yields an empty slice, not an
	// error.
	ListRange(ctx context.Context, from, to time.Time) ([]models.DailyTotals, error)

	// LastNDays returns the records in the trailing n-day window ending at
	// the latest stored date (which is not necessarily today).
	LastNDays(ctx context.Context, n int) ([]models.DailyTotals, error)
}
