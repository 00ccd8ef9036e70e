package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/campaign/validate"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
	"github.com/dcowern/whispyrkeep/internal/storage/memory"
)

func testCampaign() domain.Campaign {
	return domain.Campaign{
		ID:                   "c1",
		Name:                 "Emberfall",
		DiceSeed:             42,
		FailureStyle:         domain.FailureStyleFailForward,
		ContentRating:        domain.RatingTeen,
		StartingUniverseTime: 1000,
	}
}

func seededState() *domain.CampaignState {
	initial := domain.NewCampaignState(testCampaign())
	initial.Characters["mira"] = &domain.CharacterState{
		Name:         "Mira",
		Level:        1,
		HitPoints:    11,
		MaxHitPoints: 11,
		Abilities:    map[string]int{"wisdom": 14},
	}
	return initial
}

func TestApplyTurnDoesNotMutateInput(t *testing.T) {
	current := seededState()
	patch := domain.StatePatch{
		{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 5},
		{Op: domain.PatchOpReplace, Path: "flags/weather", Value: "storm"},
		{Op: domain.PatchOpAdvanceTime, Delta: 600},
	}

	next, err := ApplyTurn(current, patch, validate.StatePathPolicy{})
	if err != nil {
		t.Fatal(err)
	}
	if next.TurnIndex != 1 || next.UniverseTime != 1600 {
		t.Fatalf("turn=%d time=%d, want 1/1600", next.TurnIndex, next.UniverseTime)
	}
	if next.Character("mira").HitPoints != 5 || next.WorldFlags["weather"] != "storm" {
		t.Fatalf("patch not applied: %+v", next)
	}
	if current.TurnIndex != 0 || current.Character("mira").HitPoints != 11 || len(current.WorldFlags) != 0 {
		t.Fatalf("input state mutated: %+v", current)
	}
}

func TestApplyTurnAllOrNothing(t *testing.T) {
	current := seededState()
	patch := domain.StatePatch{
		{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 5},
		{Op: domain.PatchOpReplace, Path: "characters/ghost/hp", Value: 3},
	}

	_, err := ApplyTurn(current, patch, validate.StatePathPolicy{})
	if err == nil {
		t.Fatal("unknown character must fail the whole patch")
	}
	if !errors.Is(err, domain.ErrCharacterNotFound) {
		t.Fatalf("err = %v, want ErrCharacterNotFound", err)
	}
	if current.Character("mira").HitPoints != 11 {
		t.Fatalf("failed patch leaked a write: %d", current.Character("mira").HitPoints)
	}
}

func TestApplyTurnRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		op   domain.PatchOp
	}{
		{"negative hp", domain.PatchOp{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: -1}},
		{"fractional hp", domain.PatchOp{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 4.5}},
		{"non-list conditions", domain.PatchOp{Op: domain.PatchOpReplace, Path: "characters/mira/conditions", Value: "poisoned"}},
		{"non-string flag", domain.PatchOp{Op: domain.PatchOpReplace, Path: "flags/weather", Value: 7}},
		{"disallowed path", domain.PatchOp{Op: domain.PatchOpReplace, Path: "characters/mira/level", Value: 2}},
		{"negative delta", domain.PatchOp{Op: domain.PatchOpAdvanceTime, Delta: -1}},
		{"unknown op", domain.PatchOp{Op: "remove", Path: "characters/mira/hp"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			current := seededState()
			if _, err := ApplyTurn(current, domain.StatePatch{tc.op}, validate.StatePathPolicy{}); err == nil {
				t.Fatal("want error")
			}
		})
	}
}

func TestHashIsStableAcrossEqualStates(t *testing.T) {
	a := seededState()
	a.WorldFlags["zeta"] = "1"
	a.WorldFlags["alpha"] = "2"

	b := seededState()
	b.WorldFlags["alpha"] = "2"
	b.WorldFlags["zeta"] = "1"

	hashA, err := Hash(a)
	if err != nil {
		t.Fatal(err)
	}
	hashB, err := Hash(b)
	if err != nil {
		t.Fatal(err)
	}
	if hashA != hashB {
		t.Fatalf("equal states hash differently: %s vs %s", hashA, hashB)
	}
	if len(hashA) != 32 {
		t.Fatalf("hash length = %d, want 32 hex chars", len(hashA))
	}

	b.WorldFlags["alpha"] = "3"
	hashC, _ := Hash(b)
	if hashC == hashA {
		t.Fatal("different states must hash differently")
	}
}

func commitTurns(t *testing.T, ctx context.Context, service *Service, campaignID string, initial *domain.CampaignState, patches []domain.StatePatch) *domain.CampaignState {
	t.Helper()
	current := initial
	for i, patch := range patches {
		next, err := ApplyTurn(current, patch, validate.StatePathPolicy{})
		if err != nil {
			t.Fatalf("apply turn %d: %v", i+1, err)
		}
		hash, err := Hash(next)
		if err != nil {
			t.Fatal(err)
		}
		event := domain.TurnEvent{
			CampaignID:   campaignID,
			TurnIndex:    uint64(i + 1),
			Patch:        patch,
			StateHash:    hash,
			UniverseTime: next.UniverseTime,
			CreatedAt:    time.Now(),
		}
		if err := service.CommitTurn(ctx, event, next); err != nil {
			t.Fatalf("commit turn %d: %v", i+1, err)
		}
		current = next
	}
	return current
}

func TestReplayMatchesDirectApplication(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	service := NewService(store, WithSnapshotEvery(2))

	initial, err := service.Bootstrap(ctx, testCampaign(), seededState())
	if err != nil {
		t.Fatal(err)
	}
	if initial.UniverseTime != 1000 {
		t.Fatalf("bootstrap time = %d, want 1000", initial.UniverseTime)
	}

	patches := []domain.StatePatch{
		{{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 8}},
		{{Op: domain.PatchOpAdvanceTime, Delta: 600}},
		{{Op: domain.PatchOpReplace, Path: "flags/weather", Value: "storm"}},
		{{Op: domain.PatchOpReplace, Path: "characters/mira/conditions", Value: []string{"poisoned"}}},
		{{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 3}},
	}
	direct := commitTurns(t, ctx, service, "c1", initial, patches)

	replayed, latest, err := service.Latest(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if latest != 5 {
		t.Fatalf("latest = %d, want 5", latest)
	}

	directHash, _ := Hash(direct)
	replayHash, _ := Hash(replayed)
	if directHash != replayHash {
		t.Fatalf("replay diverged from direct application: %s vs %s", directHash, replayHash)
	}
	if replayed.Character("mira").HitPoints != 3 || replayed.UniverseTime != 1600 {
		t.Fatalf("replayed state wrong: %+v", replayed)
	}
}

func TestStateAtIntermediateTurn(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	service := NewService(store)

	initial, err := service.Bootstrap(ctx, testCampaign(), seededState())
	if err != nil {
		t.Fatal(err)
	}
	patches := []domain.StatePatch{
		{{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 8}},
		{{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 5}},
		{{Op: domain.PatchOpReplace, Path: "characters/mira/hp", Value: 2}},
	}
	commitTurns(t, ctx, service, "c1", initial, patches)

	mid, err := service.StateAt(ctx, "c1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if mid.TurnIndex != 2 || mid.Character("mira").HitPoints != 5 {
		t.Fatalf("state at 2 = %+v", mid)
	}

	zero, err := service.StateAt(ctx, "c1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if zero.Character("mira").HitPoints != 11 {
		t.Fatalf("state at 0 = %+v", zero)
	}

	if _, err := service.StateAt(ctx, "c1", 9); !errors.Is(err, perrors.New(perrors.CodeTurnIndexOutOfRange, "")) {
		t.Fatalf("want turn index out of range, got %v", err)
	}
}

func TestSnapshotCadence(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	service := NewService(store, WithSnapshotEvery(2))

	initial, err := service.Bootstrap(ctx, testCampaign(), seededState())
	if err != nil {
		t.Fatal(err)
	}
	patches := make([]domain.StatePatch, 5)
	for i := range patches {
		patches[i] = domain.StatePatch{{Op: domain.PatchOpAdvanceTime, Delta: 60}}
	}
	commitTurns(t, ctx, service, "c1", initial, patches)

	snapshot, err := store.NearestSnapshot(ctx, "c1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if snapshot.TurnIndex != 4 {
		t.Fatalf("nearest snapshot = %d, want the cadence write at 4", snapshot.TurnIndex)
	}

	snapshot, err = store.NearestSnapshot(ctx, "c1", 1)
	if err != nil || snapshot.TurnIndex != 0 {
		t.Fatalf("initial snapshot missing: %+v, %v", snapshot, err)
	}
}

func TestReplayDetectsHashMismatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	service := NewService(store)

	if _, err := service.Bootstrap(ctx, testCampaign(), seededState()); err != nil {
		t.Fatal(err)
	}
	// Append an event whose recorded hash does not match its patch outcome.
	err := store.AppendEvent(ctx, domain.TurnEvent{
		CampaignID: "c1",
		TurnIndex:  1,
		Patch:      domain.StatePatch{{Op: domain.PatchOpAdvanceTime, Delta: 60}},
		StateHash:  "tampered",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := service.StateAt(ctx, "c1", 1); err == nil {
		t.Fatal("hash mismatch must fail replay")
	}
}

func TestStateAtMissingCampaign(t *testing.T) {
	ctx := context.Background()
	service := NewService(memory.New())

	_, _, err := service.Latest(ctx, "ghost")
	if !errors.Is(err, perrors.New(perrors.CodeCampaignNotFound, "")) {
		t.Fatalf("want campaign not found, got %v", err)
	}
}
