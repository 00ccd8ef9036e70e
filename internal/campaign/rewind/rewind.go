// Package rewind rolls a campaign back to an earlier turn: it truncates the
// event journal, drops newer snapshots, tombstones lore sourced after the
// target, and re-materializes state at the target index.
package rewind

import (
	"context"
	"fmt"
	"log"

	"github.com/dcowern/whispyrkeep/internal/campaign/state"
	"github.com/dcowern/whispyrkeep/internal/campaign/turn"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
	"github.com/dcowern/whispyrkeep/internal/storage"
)

// Outcome reports what a rewind removed.
type Outcome struct {
	// TargetIndex is the journal head after the rewind.
	TargetIndex uint64
	// EventsDeleted counts truncated turn events.
	EventsDeleted int
	// SnapshotsDeleted counts dropped snapshots.
	SnapshotsDeleted int
	// LoreInvalidated counts tombstoned lore entries.
	LoreInvalidated int
}

// Coordinator performs rewinds under the same per-campaign lock the turn
// engine uses, so a rewind never races an in-flight turn.
type Coordinator struct {
	store  storage.Store
	states *state.Service
	locks  *turn.Locks
}

// NewCoordinator creates a rewind coordinator. The lock registry must be
// the one the turn engine runs with.
func NewCoordinator(store storage.Store, states *state.Service, locks *turn.Locks) *Coordinator {
	if locks == nil {
		locks = turn.NewLocks()
	}
	return &Coordinator{store: store, states: states, locks: locks}
}

// Rewind truncates the campaign to target. Rewinding to the current head is
// a successful no-op; rewinding past it is a conflict. On success the state
// at target is rebuilt and snapshotted so later turns resume immediately.
func (c *Coordinator) Rewind(ctx context.Context, campaignID string, target uint64) (Outcome, error) {
	if !c.locks.TryAcquire(campaignID) {
		return Outcome{}, perrors.New(perrors.CodeTurnInFlight,
			fmt.Sprintf("campaign %q already has a turn in flight", campaignID))
	}
	defer c.locks.Release(campaignID)

	latest, err := c.store.LatestTurnIndex(ctx, campaignID)
	if err != nil {
		return Outcome{}, perrors.Wrap(perrors.CodePersistenceFailed, "read latest turn index", err)
	}
	if target > latest {
		return Outcome{}, perrors.New(perrors.CodeRewindBeyondLatest,
			fmt.Sprintf("rewind target %d is beyond the journal head %d", target, latest))
	}
	if target == latest {
		return Outcome{TargetIndex: target}, nil
	}

	// Rebuild first: a replay failure must abort the rewind before any
	// deletion happens.
	rebuilt, err := c.states.StateAt(ctx, campaignID, target)
	if err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{TargetIndex: target}
	outcome.EventsDeleted, err = c.store.DeleteEventsAfter(ctx, campaignID, target)
	if err != nil {
		return Outcome{}, perrors.Wrap(perrors.CodePersistenceFailed, "truncate events", err)
	}
	outcome.SnapshotsDeleted, err = c.store.DeleteSnapshotsAfter(ctx, campaignID, target)
	if err != nil {
		return Outcome{}, perrors.Wrap(perrors.CodePersistenceFailed, "drop snapshots", err)
	}
	outcome.LoreInvalidated, err = c.store.InvalidateLoreAfter(ctx, campaignID, target)
	if err != nil {
		return Outcome{}, perrors.Wrap(perrors.CodePersistenceFailed, "invalidate lore", err)
	}

	if err := c.states.SaveSnapshot(ctx, campaignID, target, rebuilt, ""); err != nil {
		return Outcome{}, err
	}
	log.Printf("campaign rewound campaign=%s target=%d events_deleted=%d snapshots_deleted=%d lore_invalidated=%d",
		campaignID, target, outcome.EventsDeleted, outcome.SnapshotsDeleted, outcome.LoreInvalidated)
	return outcome, nil
}
