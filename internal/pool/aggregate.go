package pool

import (
	"github.com/nstreif/mlb-wins-pool/internal/models"
)

// Aggregate computes each participant's win total for one standings snapshot
// by summing the wins of the teams at that participant's indices.
//
// Indices out of bounds for the snapshot are skipped silently: a short or
// partial snapshot (provider outage mid-season) lowers the affected totals for
// the day instead of failing the whole aggregation. Aggregate never errors.
func Aggregate(snap models.Snapshot, participants Participants) map[string]int {
	totals := make(map[string]int, len(participants))
	for name, idxs := range participants {
		sum := 0
		for _, i := range idxs {
			if i < 0 || i >= len(snap) {
				continue
			}
			sum += snap[i].Wins
		}
		totals[name] = sum
	}
	return totals
}
