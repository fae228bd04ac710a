package models

// TeamRecord is one team's win/loss line from the league standings.
type TeamRecord struct {
	Name   string `json:"name"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
}

// Snapshot is the full league standings for one calendar date, in the
// provider's division-then-team order.
//
// The order is load-bearing: participant ownership is expressed as positional
// indices into this sequence (see pool.Participants), so index i must refer to
// the same team across snapshots taken on different dates. That stability is a
// contract with the provider's static sort parameters, not something this
// package can enforce.
type Snapshot []TeamRecord

// StandingsResponse mirrors the provider's JSON payload:
// divisions under "records", each holding its "teamRecords".
type StandingsResponse struct {
	Records []DivisionRecords `json:"records"`
}

// DivisionRecords is one division's slice of team standings.
type DivisionRecords struct {
	TeamRecords []TeamRecord `json:"teamRecords"`
}

// Flatten collapses the nested division/team shape into a Snapshot,
// preserving the provider's division-then-team order.
func (r *StandingsResponse) Flatten() Snapshot {
	var snap Snapshot
	for _, div := range r.Records {
		snap = append(snap, div.TeamRecords...)
	}
	return snap
}
