package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nstreif/mlb-wins-pool/internal/cache"
	"github.com/nstreif/mlb-wins-pool/internal/metrics"
	"github.com/nstreif/mlb-wins-pool/internal/models"
)

// Sentinel errors for the two ways a standings fetch can fail. Callers
// classify with errors.Is; the client never retries on its own, retry policy
// belongs to the caller (the backfill loop skips the day, the auto-logger
// surfaces the failure).
var (
	// ErrUpstream covers transport failures and non-success HTTP statuses.
	ErrUpstream = errors.New("standings upstream error")

	// ErrUpstreamFormat means the provider responded but the payload did not
	// match the expected records/teamRecords shape.
	ErrUpstreamFormat = errors.New("standings payload format error")
)

// Static query parameters for the bdfed standings transform. These pin the
// division-then-team sort order that participant team indices depend on;
// changing sortDivisions or sortLeagues reorders the snapshot and silently
// reassigns every participant's teams.
var staticParams = map[string]string{
	"splitPcts":      "false",
	"numberPcts":     "false",
	"standingsView":  "division",
	"sortTemplate":   "3",
	"leagueIds":      "103",
	"standingsTypes": "regularSeason",
	"hydrateAlias":   "noSchedule",
	"sortDivisions":  "201,202,200,204,205,203",
	"sortLeagues":    "103,104,115,114",
	"sortSports":     "1",
}

// Client fetches MLB standings snapshots from the bdfed transform endpoint.
type Client struct {
	baseURL    string
	season     string
	httpClient *http.Client
	cache      cache.SnapshotCache
}

// NewClient creates a standings client. cache may be nil to disable
// fetch-by-date caching.
func NewClient(baseURL, season string, timeout time.Duration, snapCache cache.SnapshotCache) *Client {
	return &Client{
		baseURL: baseURL,
		season:  season,
		cache:   snapCache,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// FetchStandings retrieves the standings snapshot for one calendar date.
//
// Caching is transparent: a cache hit returns the same snapshot a live fetch
// for that date would have, and cache failures degrade to a live fetch.
// Standings for a past date are immutable once finalized, but "today" can
// change intraday; callers that need mid-day freshness should invalidate
// today's cache entry first.
func (c *Client) FetchStandings(ctx context.Context, day time.Time) (models.Snapshot, error) {
	day = models.Day(day)

	if c.cache != nil {
		snap, ok, err := c.cache.Get(ctx, day)
		if err != nil {
			log.Warn().Err(err).Str("date", models.FormatDay(day)).Msg("Snapshot cache read failed, fetching live")
		} else if ok {
			metrics.RecordCacheHit()
			return snap, nil
		} else {
			metrics.RecordCacheMiss()
		}
	}

	snap, err := c.fetchLive(ctx, day)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, day, snap); err != nil {
			log.Warn().Err(err).Str("date", models.FormatDay(day)).Msg("Snapshot cache write failed")
		}
	}

	return snap, nil
}

// InvalidateToday drops today's cache entry so the next fetch sees the
// latest intraday standings. No-op without a cache.
func (c *Client) InvalidateToday(ctx context.Context, now time.Time) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Invalidate(ctx, models.Day(now))
}

func (c *Client) fetchLive(ctx context.Context, day time.Time) (models.Snapshot, error) {
	start := time.Now()
	date := models.FormatDay(day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	q := req.URL.Query()
	for key, value := range staticParams {
		q.Add(key, value)
	}
	// The endpoint takes leagueIds twice (AL and NL).
	q.Add("leagueIds", "104")
	q.Set("season", c.season)
	q.Set("date", date)
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mlb-wins-pool/1.0")

	log.Debug().
		Str("date", date).
		Str("url", req.URL.String()).
		Msg("Fetching standings")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordFetch("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: request for %s failed: %v", ErrUpstream, date, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordFetch("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: failed to read response for %s: %v", ErrUpstream, date, err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RecordFetch(fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: status %d for %s: %s", ErrUpstream, resp.StatusCode, date, truncate(body, 200))
	}

	var payload models.StandingsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordFetch("bad_payload", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: unmarshal standings for %s: %v", ErrUpstreamFormat, date, err)
	}

	snap := payload.Flatten()
	if len(snap) == 0 {
		metrics.RecordFetch("bad_payload", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: no team records in standings for %s", ErrUpstreamFormat, date)
	}

	metrics.RecordFetch("ok", time.Since(start).Seconds())
	log.Debug().
		Str("date", date).
		Int("teams", len(snap)).
		Msg("Standings fetched")

	return snap, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
