package backfill

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

// fakeFetcher serves canned snapshots and errors by date, counting calls.
type fakeFetcher struct {
	snapshots map[string]models.Snapshot
	errs      map[string]error
	calls     []string
}

func (f *fakeFetcher) FetchStandings(_ context.Context, day time.Time) (models.Snapshot, error) {
	date := models.FormatDay(day)
	f.calls = append(f.calls, date)
	if err, ok := f.errs[date]; ok {
		return nil, err
	}
	if snap, ok := f.snapshots[date]; ok {
		return snap, nil
	}
	return nil, fmt.Errorf("no snapshot for %s", date)
}

var testParticipants = pool.Participants{
	"Alice": {0},
	"Bob":   {1},
}

func snapshot(aliceWins, bobWins int) models.Snapshot {
	return models.Snapshot{
		{Name: "Yankees", Wins: aliceWins},
		{Name: "Orioles", Wins: bobWins},
	}
}

func newTestLedger(t *testing.T) ledger.Ledger {
	t.Helper()
	return ledger.NewFileLedger(filepath.Join(t.TempDir(), "history.csv"), testParticipants.Names())
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDay(s)
	require.NoError(t, err)
	return d
}

func TestOrchestrator_Run(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: map[string]models.Snapshot{
		"2024-06-01": snapshot(1, 2),
		"2024-06-02": snapshot(2, 3),
		"2024-06-03": snapshot(3, 4),
	}}
	store := newTestLedger(t)
	orch := NewOrchestrator(fetcher, testParticipants, store)

	result, err := orch.Run(context.Background(), day(t, "2024-06-01"), day(t, "2024-06-03"))
	require.NoError(t, err)
	require.Len(t, result.Days, 3)

	for i, want := range []struct {
		date  string
		alice int
	}{
		{"2024-06-01", 1}, {"2024-06-02", 2}, {"2024-06-03", 3},
	} {
		assert.Equal(t, want.date, models.FormatDay(result.Days[i].Date))
		assert.Equal(t, StatusLogged, result.Days[i].Status)
		assert.Equal(t, want.alice, result.Days[i].Totals["Alice"])
	}

	// Dates are processed strictly ascending.
	assert.Equal(t, []string{"2024-06-01", "2024-06-02", "2024-06-03"}, fetcher.calls)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestOrchestrator_PartialFailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{
		snapshots: map[string]models.Snapshot{
			"2024-06-01": snapshot(1, 1),
			"2024-06-03": snapshot(3, 3),
		},
		errs: map[string]error{
			"2024-06-02": fmt.Errorf("upstream down"),
		},
	}
	store := newTestLedger(t)
	orch := NewOrchestrator(fetcher, testParticipants, store)

	result, err := orch.Run(context.Background(), day(t, "2024-06-01"), day(t, "2024-06-03"))
	require.NoError(t, err, "A failed day must not abort the run")

	require.Len(t, result.Days, 3)
	assert.Equal(t, StatusLogged, result.Days[0].Status)
	assert.Equal(t, StatusFailed, result.Days[1].Status)
	assert.Error(t, result.Days[1].Err)
	assert.Equal(t, StatusLogged, result.Days[2].Status)

	failures := result.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "2024-06-02", models.FormatDay(failures[0].Date))

	// Ledger holds records for the two successful days only.
	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-06-01", models.FormatDay(records[0].Date))
	assert.Equal(t, "2024-06-03", models.FormatDay(records[1].Date))
}

func TestOrchestrator_ExistingRecordsIncluded(t *testing.T) {
	store := newTestLedger(t)
	ctx := context.Background()

	// 06-02 was logged earlier with different totals than the fetcher now
	// serves. The run must return the stored totals, not refetched ones.
	inserted, err := store.InsertIfAbsent(ctx, day(t, "2024-06-02"), map[string]int{"Alice": 42, "Bob": 42})
	require.NoError(t, err)
	require.True(t, inserted)

	fetcher := &fakeFetcher{snapshots: map[string]models.Snapshot{
		"2024-06-01": snapshot(1, 1),
		"2024-06-02": snapshot(99, 99),
		"2024-06-03": snapshot(3, 3),
	}}
	orch := NewOrchestrator(fetcher, testParticipants, store)

	result, err := orch.Run(ctx, day(t, "2024-06-01"), day(t, "2024-06-03"))
	require.NoError(t, err)
	require.Len(t, result.Days, 3)

	assert.Equal(t, StatusLogged, result.Days[0].Status)
	assert.Equal(t, StatusExisting, result.Days[1].Status)
	assert.Equal(t, 42, result.Days[1].Totals["Alice"], "Stored totals win over a refetch")
	assert.Equal(t, StatusLogged, result.Days[2].Status)

	totals := result.Totals()
	require.Len(t, totals, 3, "Complete range view regardless of which run produced each day")
}

func TestOrchestrator_Rerun_Idempotent(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: map[string]models.Snapshot{
		"2024-06-01": snapshot(1, 1),
		"2024-06-02": snapshot(2, 2),
	}}
	store := newTestLedger(t)
	orch := NewOrchestrator(fetcher, testParticipants, store)
	ctx := context.Background()

	_, err := orch.Run(ctx, day(t, "2024-06-01"), day(t, "2024-06-02"))
	require.NoError(t, err)

	result, err := orch.Run(ctx, day(t, "2024-06-01"), day(t, "2024-06-02"))
	require.NoError(t, err)

	for _, d := range result.Days {
		assert.Equal(t, StatusExisting, d.Status)
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2, "Re-running a range must not duplicate records")
}

func TestOrchestrator_InvertedRange(t *testing.T) {
	orch := NewOrchestrator(&fakeFetcher{}, testParticipants, newTestLedger(t))

	_, err := orch.Run(context.Background(), day(t, "2024-06-03"), day(t, "2024-06-01"))
	require.Error(t, err)
}

func TestOrchestrator_SingleDayRange(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: map[string]models.Snapshot{
		"2024-06-01": snapshot(5, 6),
	}}
	orch := NewOrchestrator(fetcher, testParticipants, newTestLedger(t))

	result, err := orch.Run(context.Background(), day(t, "2024-06-01"), day(t, "2024-06-01"))
	require.NoError(t, err)
	require.Len(t, result.Days, 1)
	assert.Equal(t, StatusLogged, result.Days[0].Status)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: map[string]models.Snapshot{
		"2024-06-01": snapshot(1, 1),
	}}
	orch := NewOrchestrator(fetcher, testParticipants, newTestLedger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Run(ctx, day(t, "2024-06-01"), day(t, "2024-06-03"))
	require.ErrorIs(t, err, context.Canceled)
}
