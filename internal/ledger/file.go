package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/models"
)

const (
	lockRetryInterval = 25 * time.Millisecond
	lockTimeout       = 5 * time.Second
	lockStaleAfter    = time.Minute
)

// FileLedger stores the history as a CSV file with one header row
// (date,<participant>,...) and one row per logged date. Participant columns
// are exactly the configured participant set, in sorted name order.
//
// Writes rewrite the whole table to a temp file and rename it over the
// store, fsyncing first, so readers never observe a partial row and a crash
// mid-write leaves the previous committed state intact. A lock file
// serializes read-modify-write cycles across processes, which is what makes
// InsertIfAbsent atomic when a cron-run logger and an interactive session
// race to log the same day.
//
// Every read re-parses the file; there is no in-memory copy that can go
// stale relative to another process's committed write.
type FileLedger struct {
	path  string
	names []string
}

// NewFileLedger creates a ledger over the CSV file at path with the given
// participant column order. The file is created lazily on first insert.
func NewFileLedger(path string, names []string) *FileLedger {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	return &FileLedger{path: path, names: sorted}
}

func (l *FileLedger) InsertIfAbsent(ctx context.Context, day time.Time, totals map[string]int) (bool, error) {
	day = models.Day(day)

	if err := l.validateTotals(totals); err != nil {
		return false, err
	}

	unlock, err := l.acquireLock(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	records, err := l.load()
	if err != nil {
		return false, err
	}

	for _, rec := range records {
		if rec.Date.Equal(day) {
			return false, nil
		}
	}

	records = append(records, models.DailyTotals{Date: day, Totals: copyTotals(totals)})
	if err := l.rewrite(records); err != nil {
		return false, err
	}

	log.Debug().
		Str("date", models.FormatDay(day)).
		Str("path", l.path).
		Msg("Ledger record inserted")

	return true, nil
}

func (l *FileLedger) GetByDate(_ context.Context, day time.Time) (models.DailyTotals, bool, error) {
	day = models.Day(day)

	records, err := l.load()
	if err != nil {
		return models.DailyTotals{}, false, err
	}
	for _, rec := range records {
		if rec.Date.Equal(day) {
			return rec, true, nil
		}
	}
	return models.DailyTotals{}, false, nil
}

func (l *FileLedger) List(_ context.Context) ([]models.DailyTotals, error) {
	records, err := l.load()
	if err != nil {
		return nil, err
	}
	sortByDate(records)
	return records, nil
}

func (l *FileLedger) ListRange(ctx context.Context, from, to time.Time) ([]models.DailyTotals, error) {
	from, to = models.Day(from), models.Day(to)

	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}

	out := []models.DailyTotals{}
	for _, rec := range all {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *FileLedger) LastNDays(ctx context.Context, n int) ([]models.DailyTotals, error) {
	all, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 || n <= 0 {
		return []models.DailyTotals{}, nil
	}

	// Window ends at the latest stored date, not at today.
	latest := all[len(all)-1].Date
	from := latest.AddDate(0, 0, -(n - 1))

	out := []models.DailyTotals{}
	for _, rec := range all {
		if !rec.Date.Before(from) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// validateTotals rejects totals whose keys do not match the configured
// participant columns. rewrite coerces rows to the column set, so a
// mismatched map would otherwise round-trip lossily with no signal.
func (l *FileLedger) validateTotals(totals map[string]int) error {
	for _, name := range l.names {
		if _, ok := totals[name]; !ok {
			return fmt.Errorf("totals missing participant %q for ledger %s", name, l.path)
		}
	}
	if len(totals) != len(l.names) {
		known := make(map[string]bool, len(l.names))
		for _, name := range l.names {
			known[name] = true
		}
		for name := range totals {
			if !known[name] {
				return fmt.Errorf("totals participant %q is not a configured column in ledger %s", name, l.path)
			}
		}
	}
	return nil
}

// load parses the store. A missing file is an empty ledger; anything
// unparseable is ErrCorrupt.
func (l *FileLedger) load() ([]models.DailyTotals, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, l.path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	if len(header) < 2 || header[0] != "date" {
		return nil, fmt.Errorf("%w: %s: bad header %v", ErrCorrupt, l.path, header)
	}
	names := header[1:]

	var records []models.DailyTotals
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: %s: row has %d columns, want %d", ErrCorrupt, l.path, len(row), len(header))
		}

		day, err := models.ParseDay(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad date %q", ErrCorrupt, l.path, row[0])
		}

		totals := make(map[string]int, len(names))
		for i, name := range names {
			v, err := strconv.Atoi(row[i+1])
			if err != nil || v < 0 {
				return nil, fmt.Errorf("%w: %s: bad total %q for %s on %s", ErrCorrupt, l.path, row[i+1], name, row[0])
			}
			totals[name] = v
		}

		records = append(records, models.DailyTotals{Date: day, Totals: totals})
	}

	return records, nil
}

// rewrite writes the full table to a temp file in the same directory, syncs
// it, and renames it over the store.
func (l *FileLedger) rewrite(records []models.DailyTotals) error {
	sortByDate(records)

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(append([]string{"date"}, l.names...)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for _, rec := range records {
		row := make([]string, 0, len(l.names)+1)
		row = append(row, models.FormatDay(rec.Date))
		for _, name := range l.names {
			row = append(row, strconv.Itoa(rec.Totals[name]))
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush ledger: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp ledger: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}

// acquireLock takes the advisory lock file next to the store, retrying until
// lockTimeout. A lock left behind by a crashed process is stolen once its
// mtime is older than lockStaleAfter.
func (l *FileLedger) acquireLock(ctx context.Context) (func(), error) {
	lockPath := l.path + ".lock"
	token := fmt.Sprintf("%d-%d\n", os.Getpid(), time.Now().UnixNano())
	deadline := time.Now().Add(lockTimeout)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprint(f, token)
			f.Close()
			return func() { releaseLock(lockPath, token) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire ledger lock: %w", err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			// Claim the stale lock by renaming it aside first: the rename
			// succeeds for exactly one contender, so a late remover can
			// never delete a fresh lock another contender just created.
			stolen := fmt.Sprintf("%s.stale-%d-%d", lockPath, os.Getpid(), time.Now().UnixNano())
			if os.Rename(lockPath, stolen) == nil {
				log.Warn().Str("lock", lockPath).Msg("Removed stale ledger lock")
				os.Remove(stolen)
				continue
			}
			// Another contender claimed it first; fall through and retry.
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for ledger lock %s", lockPath)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}
}

// releaseLock removes the lock file only while it still carries our token. A
// holder that outlived lockStaleAfter may have had its lock stolen, and its
// deferred release must not delete the lock the current holder owns.
func releaseLock(lockPath, token string) {
	data, err := os.ReadFile(lockPath)
	if err != nil || string(data) != token {
		return
	}
	os.Remove(lockPath)
}

func sortByDate(records []models.DailyTotals) {
	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
}

func copyTotals(totals map[string]int) map[string]int {
	out := make(map[string]int, len(totals))
	for k, v := range totals {
		out[k] = v
	}
	return out
}

var _ Ledger = (*FileLedger)(nil)
