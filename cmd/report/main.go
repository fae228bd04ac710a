// Command report prints the current pool standings and a recent-history
// table from the ledger. It is the text consumption surface for the data the
// worker logs; charting lives elsewhere.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

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
		days     = flag.Int("days", 30, "trailing history window to print")
		fromFlag = flag.String("from", "", "history start date (YYYY-MM-DD); overrides -days")
		toFlag   = flag.String("to", "", "history end date (YYYY-MM-DD, used with -from)")
		live     = flag.Bool("live", true, "fetch live standings for the current totals section")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	ctx := context.Background()
	cfg := config.MustLoad()

	participants, err := pool.Load(cfg.ParticipantsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load participants")
	}

	store, closeLedger, err := openLedger(ctx, cfg, participants)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history ledger")
	}
	defer closeLedger()

	// Current totals: live standings if asked, otherwise the latest record.
	var (
		current map[string]int
		asOf    time.Time
	)
	if *live {
		mlbClient := client.NewClient(cfg.MLBBaseURL, cfg.MLBSeason, cfg.MLBTimeout, cache.NewMemory())
		snap, err := mlbClient.FetchStandings(ctx, time.Now())
		if err != nil {
			log.Warn().Err(err).Msg("Live fetch failed, falling back to latest ledger record")
		} else {
			current = pool.Aggregate(snap, participants)
			asOf = models.Day(time.Now())
		}
	}
	if current == nil {
		latest, err := store.LastNDays(ctx, 1)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read ledger")
		}
		if len(latest) == 0 {
			fmt.Println("No history logged yet.")
			return
		}
		current = latest[0].Totals
		asOf = latest[0].Date
	}

	printCurrentTotals(current, asOf)

	// History window.
	var history []models.DailyTotals
	if *fromFlag != "" {
		from, err := models.ParseDay(*fromFlag)
		if err != nil {
			log.Fatal().Err(err).Str("from", *fromFlag).Msg("Invalid -from date")
		}
		to := models.Day(time.Now())
		if *toFlag != "" {
			if to, err = models.ParseDay(*toFlag); err != nil {
				log.Fatal().Err(err).Str("to", *toFlag).Msg("Invalid -to date")
			}
		}
		history, err = store.ListRange(ctx, from, to)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read history range")
		}
	} else {
		history, err = store.LastNDays(ctx, *days)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read history")
		}
	}

	printHistory(history, participants.Names())
}

func printCurrentTotals(totals map[string]int, asOf time.Time) {
	type row struct {
		name string
		wins int
	}
	rows := make([]row, 0, len(totals))
	for name, wins := range totals {
		rows = append(rows, row{name, wins})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].wins != rows[j].wins {
			return rows[i].wins > rows[j].wins
		}
		return rows[i].name < rows[j].name
	})

	fmt.Printf("Participant win totals as of %s\n\n", models.FormatDay(asOf))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i, r := range rows {
		fmt.Fprintf(w, "%d.\t%s\t%d\n", i+1, r.name, r.wins)
	}
	w.Flush()
	fmt.Println()
}

func printHistory(history []models.DailyTotals, names []string) {
	if len(history) == 0 {
		fmt.Println("No history in the selected window.")
		return
	}

	fmt.Printf("History (%s to %s)\n\n",
		models.FormatDay(history[0].Date),
		models.FormatDay(history[len(history)-1].Date))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "date")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)

	for _, rec := range history {
		fmt.Fprint(w, models.FormatDay(rec.Date))
		for _, name := range names {
			fmt.Fprintf(w, "\t%d", rec.Totals[name])
		}
		fmt.Fprintln(w)
	}
	w.Flush()
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
