package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstreif/mlb-wins-pool/internal/models"
)

func TestAggregate(t *testing.T) {
	snap := models.Snapshot{
		{Name: "Yankees", Wins: 5, Losses: 2},
		{Name: "Orioles", Wins: 3, Losses: 4},
		{Name: "Red Sox", Wins: 7, Losses: 1},
	}

	participants := Participants{
		"Alice": {0, 2},
		"Bob":   {1},
	}

	totals := Aggregate(snap, participants)
	assert.Equal(t, 12, totals["Alice"], "Alice owns indices 0 and 2: 5+7")
	assert.Equal(t, 3, totals["Bob"], "Bob owns index 1")
}

func TestAggregate_OutOfBoundsIndicesSkipped(t *testing.T) {
	snap := models.Snapshot{
		{Name: "Yankees", Wins: 5},
		{Name: "Orioles", Wins: 3},
	}

	// Index 5 is beyond a 2-team snapshot; it must be skipped, not fail.
	participants := Participants{
		"Alice": {0, 1, 5},
	}

	totals := Aggregate(snap, participants)
	assert.Equal(t, 8, totals["Alice"], "Only in-bounds indices should count")
}

func TestAggregate_EmptySnapshot(t *testing.T) {
	participants := Participants{
		"Alice": {0, 1},
		"Bob":   {2, 3},
	}

	totals := Aggregate(models.Snapshot{}, participants)
	assert.Equal(t, 0, totals["Alice"])
	assert.Equal(t, 0, totals["Bob"])
	assert.Len(t, totals, 2, "Every participant should get a total even with no standings")
}

func TestParticipants_ValidateDefault(t *testing.T) {
	p := DefaultParticipants()
	require.NoError(t, p.Validate())
	assert.Equal(t, 30, p.TeamCount(), "Reference pool spans the full 30-team roster")
	assert.Len(t, p, 6)
}

func TestParticipants_ValidateDuplicateIndex(t *testing.T) {
	p := Participants{
		"Alice": {0, 1},
		"Bob":   {1, 2},
	}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owned by both")
}

func TestParticipants_ValidateGap(t *testing.T) {
	// Index 1 is unowned, so coverage of 0..2 has a gap.
	p := Participants{
		"Alice": {0},
		"Bob":   {2},
	}
	require.Error(t, p.Validate())
}

func TestParticipants_ValidateNegativeIndex(t *testing.T) {
	p := Participants{"Alice": {-1, 0}}
	require.Error(t, p.Validate())
}

func TestParticipants_ValidateEmpty(t *testing.T) {
	require.Error(t, Participants{}.Validate())
	require.Error(t, Participants{"Alice": {}}.Validate())
}

func TestParticipants_Names(t *testing.T) {
	p := Participants{"Colin": {0}, "Alice": {1}, "Bob": {2}}
	assert.Equal(t, []string{"Alice", "Bob", "Colin"}, p.Names())
}
