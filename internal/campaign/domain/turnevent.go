package domain

import "time"

// TurnEvent is the immutable, append-only record of one resolved turn.
// Turn indices for a campaign form a gap-free, strictly increasing sequence
// starting at 1; index 0 is reserved for the initial snapshot. Events are
// never mutated; rewind deletes trailing events and nothing else.
type TurnEvent struct {
	CampaignID   string
	TurnIndex    uint64
	PlayerInput  string
	NarratorText string
	RollRequests []RollRequest
	RollResults  []RollResult
	Patch        StatePatch
	LoreDeltas   []LoreDelta
	// StateHash is the canonical state digest computed after applying the
	// patch.
	StateHash string
	// UniverseTime is the universe-clock value after the turn, in seconds.
	UniverseTime int64
	CreatedAt    time.Time
}

// Snapshot is a cached canonical state at a specific turn index. Snapshots
// are never mutated, only superseded; removing all of them and replaying
// from turn 0 is semantically equivalent.
type Snapshot struct {
	CampaignID string
	TurnIndex  uint64
	State      *CampaignState
	StateHash  string
	CreatedAt  time.Time
}
