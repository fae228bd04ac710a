package pool

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
)

// Participants maps a participant name to the ordered standings indices of
// the teams they own. Ownership is positional: an index points at a row of a
// standings Snapshot, not at a team name. The mapping is static configuration,
// supplied at startup and never derived or persisted by this service.
type Participants map[string][]int

// DefaultParticipants is the reference pool: six participants, five teams
// each, together spanning the full 30-team roster.
func DefaultParticipants() Participants {
	return Participants{
		"Nick":    {0, 10, 18, 7, 19},
		"Doug":    {4, 8, 5, 23, 12},
		"Ryan Hi": {27, 25, 13, 24, 14},
		"Peter":   {1, 20, 26, 22, 9},
		"Ryan Hu": {15, 16, 3, 21, 29},
		"Colin":   {28, 11, 2, 6, 17},
	}
}

// Load reads a participants mapping from a JSON file of the shape
// {"Name": [0, 10, ...], ...}. An empty path selects the built-in default
// pool. The mapping is validated before being returned.
func Load(path string) (Participants, error) {
	if path == "" {
		p := DefaultParticipants()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read participants file: %w", err)
	}

	var p Participants
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse participants file %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid participants file %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("participants", len(p)).
		Int("teams", p.TeamCount()).
		Msg("Participants loaded")

	return p, nil
}

// Validate checks the configuration invariants: at least one participant,
// no negative index, no index owned twice, and the owned indices together
// covering 0..n-1 with no gaps.
func (p Participants) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("no participants configured")
	}

	owner := make(map[int]string)
	for name, idxs := range p {
		if len(idxs) == 0 {
			return fmt.Errorf("participant %q owns no teams", name)
		}
		for _, i := range idxs {
			if i < 0 {
				return fmt.Errorf("participant %q has negative team index %d", name, i)
			}
			if prev, ok := owner[i]; ok {
				return fmt.Errorf("team index %d owned by both %q and %q", i, prev, name)
			}
			owner[i] = name
		}
	}

	// Indices must span the roster contiguously from 0; a gap means a team
	// nobody owns, which is almost always a typo in the config.
	for i := 0; i < len(owner); i++ {
		if _, ok := owner[i]; !ok {
			return fmt.Errorf("team index %d is unowned (indices must cover 0..%d)", i, len(owner)-1)
		}
	}

	return nil
}

// TeamCount returns the total number of owned team indices.
func (p Participants) TeamCount() int {
	n := 0
	for _, idxs := range p {
		n += len(idxs)
	}
	return n
}

// Names returns the participant names in sorted order, for stable column
// layouts and report rows.
func (p Participants) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
