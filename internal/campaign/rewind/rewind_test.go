package rewind

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/campaign/state"
	"github.com/dcowern/whispyrkeep/internal/campaign/turn"
	"github.com/dcowern/whispyrkeep/internal/campaign/validate"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
	"github.com/dcowern/whispyrkeep/internal/storage/memory"
)

type fixture struct {
	store  *memory.Store
	states *state.Service
	locks  *turn.Locks
	coord  *Coordinator
}

// newFixture boots a campaign with five committed turns. Each turn bumps
// mira's hit points down by one and records one soft-lore delta.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	states := state.NewService(store, state.WithSnapshotEvery(2))
	locks := turn.NewLocks()

	campaign := domain.Campaign{
		ID:            "c1",
		Name:          "Emberfall",
		DiceSeed:      42,
		FailureStyle:  domain.FailureStyleFailForward,
		ContentRating: domain.RatingTeen,
	}
	initial := domain.NewCampaignState(campaign)
	initial.Characters["mira"] = &domain.CharacterState{Name: "Mira", HitPoints: 10, MaxHitPoints: 10}
	current, err := states.Bootstrap(ctx, campaign, initial)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		patch := domain.StatePatch{
			{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 10 - i},
		}
		next, err := state.ApplyTurn(current, patch, validate.StatePathPolicy{})
		if err != nil {
			t.Fatal(err)
		}
		hash, err := state.Hash(next)
		if err != nil {
			t.Fatal(err)
		}
		event := domain.TurnEvent{
			CampaignID: "c1",
			TurnIndex:  uint64(i),
			Patch:      patch,
			StateHash:  hash,
			CreatedAt:  time.Now(),
		}
		if err := states.CommitTurn(ctx, event, next); err != nil {
			t.Fatal(err)
		}
		deltas := []domain.LoreDelta{{Type: domain.LoreTypeSoftLore, Text: "Something happened.", Tags: []string{"log"}}}
		if err := store.AppendLore(ctx, "c1", uint64(i), deltas); err != nil {
			t.Fatal(err)
		}
		current = next
	}

	return &fixture{
		store:  store,
		states: states,
		locks:  locks,
		coord:  NewCoordinator(store, states, locks),
	}
}

func TestRewindTruncatesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	outcome, err := f.coord.Rewind(ctx, "c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.TargetIndex != 2 || outcome.EventsDeleted != 3 {
		t.Fatalf("outcome = %+v", outcome)
	}
	// Cadence snapshots existed at 0, 2, and 4; only 4 is past the target.
	if outcome.SnapshotsDeleted != 1 {
		t.Fatalf("snapshots deleted = %d, want 1", outcome.SnapshotsDeleted)
	}
	if outcome.LoreInvalidated != 3 {
		t.Fatalf("lore invalidated = %d, want 3", outcome.LoreInvalidated)
	}

	latest, _ := f.store.LatestTurnIndex(ctx, "c1")
	if latest != 2 {
		t.Fatalf("latest = %d", latest)
	}

	rebuilt, err := f.states.StateAt(ctx, "c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if rebuilt.Character("mira").HitPoints != 8 {
		t.Fatalf("rebuilt hp = %d, want 8", rebuilt.Character("mira").HitPoints)
	}

	active, _ := f.store.ListLore(ctx, "c1", false)
	if len(active) != 2 {
		t.Fatalf("active lore = %d entries, want 2", len(active))
	}
	all, _ := f.store.ListLore(ctx, "c1", true)
	if len(all) != 5 {
		t.Fatalf("tombstoned lore lost: %d entries, want 5", len(all))
	}

	// The rewind force-saved a snapshot at the target.
	snapshot, err := f.store.NearestSnapshot(ctx, "c1", 2)
	if err != nil || snapshot.TurnIndex != 2 {
		t.Fatalf("snapshot at target = %+v, %v", snapshot, err)
	}
}

func TestRewindToHeadIsNoOp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	outcome, err := f.coord.Rewind(ctx, "c1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.EventsDeleted != 0 || outcome.SnapshotsDeleted != 0 || outcome.LoreInvalidated != 0 {
		t.Fatalf("no-op rewind removed records: %+v", outcome)
	}
	latest, _ := f.store.LatestTurnIndex(ctx, "c1")
	if latest != 5 {
		t.Fatalf("latest = %d", latest)
	}
}

func TestRewindBeyondHeadIsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.coord.Rewind(ctx, "c1", 9)
	if !errors.Is(err, perrors.New(perrors.CodeRewindBeyondLatest, "")) {
		t.Fatalf("want rewind beyond latest, got %v", err)
	}
}

func TestRewindRespectsCampaignLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if !f.locks.TryAcquire("c1") {
		t.Fatal("setup: lock acquisition failed")
	}
	defer f.locks.Release("c1")

	_, err := f.coord.Rewind(ctx, "c1", 2)
	if !errors.Is(err, perrors.New(perrors.CodeTurnInFlight, "")) {
		t.Fatalf("want turn in flight, got %v", err)
	}
}

func TestRewindThenAppendContinuesFromTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.coord.Rewind(ctx, "c1", 3); err != nil {
		t.Fatal(err)
	}

	current, latest, err := f.states.Latest(ctx, "c1")
	if err != nil || latest != 3 {
		t.Fatalf("latest = %d, %v", latest, err)
	}

	patch := domain.StatePatch{{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 10}}
	next, err := state.ApplyTurn(current, patch, validate.StatePathPolicy{})
	if err != nil {
		t.Fatal(err)
	}
	hash, err := state.Hash(next)
	if err != nil {
		t.Fatal(err)
	}
	event := domain.TurnEvent{CampaignID: "c1", TurnIndex: 4, Patch: patch, StateHash: hash, CreatedAt: time.Now()}
	if err := f.states.CommitTurn(ctx, event, next); err != nil {
		t.Fatalf("append after rewind: %v", err)
	}

	replayed, err := f.states.StateAt(ctx, "c1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if replayed.Character("mira").HitPoints != 10 {
		t.Fatalf("replayed hp = %d, want 10", replayed.Character("mira").HitPoints)
	}
}
