package autolog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstreif/mlb-wins-pool/internal/ledger"
	"github.com/nstreif/mlb-wins-pool/internal/models"
	"github.com/nstreif/mlb-wins-pool/internal/pool"
)

type fakeFetcher struct {
	snap  models.Snapshot
	err   error
	calls int
}

func (f *fakeFetcher) FetchStandings(context.Context, time.Time) (models.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

var testParticipants = pool.Participants{
	"Alice": {0},
	"Bob":   {1},
}

func fixedClock(s string) func() time.Time {
	return func() time.Time {
		d, _ := models.ParseDay(s)
		return d.Add(15 * time.Hour)
	}
}

func newTestLedger(t *testing.T) ledger.Ledger {
	t.Helper()
	return ledger.NewFileLedger(filepath.Join(t.TempDir(), "history.csv"), testParticipants.Names())
}

func TestLogger_RunOnce(t *testing.T) {
	fetcher := &fakeFetcher{snap: models.Snapshot{
		{Name: "Yankees", Wins: 10},
		{Name: "Orioles", Wins: 8},
	}}
	store := newTestLedger(t)
	logger := NewLogger(fetcher, testParticipants, store, fixedClock("2024-06-15"))

	result, err := logger.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Inserted, "First run of the day creates the record")
	assert.Equal(t, "2024-06-15", models.FormatDay(result.Date))
	assert.Equal(t, 10, result.Totals["Alice"])
	assert.Equal(t, 8, result.Totals["Bob"])
}

func TestLogger_RunOnce_SecondRunSameDay(t *testing.T) {
	fetcher := &fakeFetcher{snap: models.Snapshot{
		{Name: "Yankees", Wins: 10},
		{Name: "Orioles", Wins: 8},
	}}
	store := newTestLedger(t)
	logger := NewLogger(fetcher, testParticipants, store, fixedClock("2024-06-15"))
	ctx := context.Background()

	first, err := logger.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, first.Inserted)

	// Standings moved intraday; the ledger still keeps the first record.
	fetcher.snap = models.Snapshot{
		{Name: "Yankees", Wins: 11},
		{Name: "Orioles", Wins: 8},
	}

	second, err := logger.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, second.Inserted, "Second run of the day must not insert")
	assert.Equal(t, 11, second.Totals["Alice"], "Run still reports the freshly computed totals")

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 10, records[0].Totals["Alice"], "Persisted record is the first run's")
}

func TestLogger_RunOnce_AcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	fetcher := &fakeFetcher{snap: models.Snapshot{{Name: "Yankees", Wins: 3}, {Name: "Orioles", Wins: 4}}}
	ctx := context.Background()

	first := NewLogger(fetcher, testParticipants, ledger.NewFileLedger(path, testParticipants.Names()), fixedClock("2024-06-15"))
	r1, err := first.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, r1.Inserted)

	// New logger instance over the same store simulates a process restart
	// on the same day: the boolean reflects the ledger, not logger state.
	restarted := NewLogger(fetcher, testParticipants, ledger.NewFileLedger(path, testParticipants.Names()), fixedClock("2024-06-15"))
	r2, err := restarted.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, r2.Inserted)
}

func TestLogger_RunOnce_NewDayInserts(t *testing.T) {
	fetcher := &fakeFetcher{snap: models.Snapshot{{Name: "Yankees", Wins: 3}, {Name: "Orioles", Wins: 4}}}
	store := newTestLedger(t)
	ctx := context.Background()

	day1 := NewLogger(fetcher, testParticipants, store, fixedClock("2024-06-15"))
	r1, err := day1.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, r1.Inserted)

	day2 := NewLogger(fetcher, testParticipants, store, fixedClock("2024-06-16"))
	r2, err := day2.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, r2.Inserted, "A new calendar day gets its own record")

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestLogger_RunOnce_FetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("upstream down")}
	store := newTestLedger(t)
	logger := NewLogger(fetcher, testParticipants, store, fixedClock("2024-06-15"))

	_, err := logger.RunOnce(context.Background())
	require.Error(t, err, "Fetch failure is fatal for a single-day run")

	records, listErr := store.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, records, "A failed run leaves the ledger untouched")
}
