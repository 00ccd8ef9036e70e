package mechanics

import (
	"testing"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/core/check"
	"github.com/dcowern/whispyrkeep/internal/core/dice"
)

func testActors() ActorFunc {
	mira := check.Actor{
		Level:              1,
		Abilities:          map[check.Ability]int{check.Wisdom: 14, check.Dexterity: 12},
		SkillProficiencies: map[check.Skill]bool{check.Perception: true},
	}
	brand := check.Actor{
		Level:     5,
		Abilities: map[check.Ability]int{check.Strength: 16},
	}
	actors := map[string]check.Actor{"mira": mira, "brand": brand}
	return func(id string) (check.Actor, bool) {
		actor, ok := actors[id]
		return actor, ok
	}
}

func TestExecuteAbilityCheck(t *testing.T) {
	roller := dice.NewRoller(42)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "r1", Kind: domain.RollKindAbilityCheck, Actor: "mira", Ability: "wisdom", Skill: "perception", DC: 12},
	})
	if len(results) != 1 {
		t.Fatalf("want 1 result, got %d", len(results))
	}
	got := results[0]
	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	// Natural 8, +2 wisdom, +2 proficiency.
	if len(got.Rolls) != 1 || got.Rolls[0] != 8 {
		t.Errorf("rolls = %v, want [8]", got.Rolls)
	}
	if got.Modifier != 4 || got.Total != 12 || !got.Success {
		t.Errorf("modifier=%d total=%d success=%v, want 4/12/true", got.Modifier, got.Total, got.Success)
	}
}

func TestExecuteSavingThrowIgnoresSkillProficiency(t *testing.T) {
	roller := dice.NewRoller(42)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "r1", Kind: domain.RollKindSavingThrow, Actor: "mira", Ability: "dexterity", DC: 10},
	})
	got := results[0]
	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	// Natural 8, +1 dexterity, no save proficiency.
	if got.Total != 9 || got.Success {
		t.Errorf("total=%d success=%v, want 9/false", got.Total, got.Success)
	}
}

func TestExecuteAttackNaturalTwentyAlwaysHits(t *testing.T) {
	roller := dice.NewRoller(3)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "a1", Kind: domain.RollKindAttackRoll, Actor: "brand", Ability: "strength", DC: 40},
	})
	got := results[0]
	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	// Natural 20, +3 strength, +3 proficiency at level 5.
	if got.Rolls[0] != 20 || got.Modifier != 6 || got.Total != 26 {
		t.Errorf("rolls=%v modifier=%d total=%d", got.Rolls, got.Modifier, got.Total)
	}
	if !got.Critical || !got.Success {
		t.Errorf("critical=%v success=%v, want true/true", got.Critical, got.Success)
	}
}

func TestExecuteAttackNaturalOneAlwaysMisses(t *testing.T) {
	roller := dice.NewRoller(79)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "a1", Kind: domain.RollKindAttackRoll, Actor: "brand", Ability: "strength", DC: 2, Bonus: 10},
	})
	got := results[0]
	// Natural 1 plus 16 in modifiers beats the target number, and misses anyway.
	if got.Rolls[0] != 1 || got.Total != 17 {
		t.Errorf("rolls=%v total=%d", got.Rolls, got.Total)
	}
	if !got.Fumble || got.Success {
		t.Errorf("fumble=%v success=%v, want true/false", got.Fumble, got.Success)
	}
}

func TestExecuteDamageCriticalDoublesDiceOnly(t *testing.T) {
	roller := dice.NewRoller(42)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "d1", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "2d6+3", Critical: true},
	})
	got := results[0]
	if got.Error != "" {
		t.Fatalf("unexpected error: %s", got.Error)
	}
	want := []int{6, 1, 2, 2}
	if len(got.Rolls) != 4 {
		t.Fatalf("rolls = %v, want %v", got.Rolls, want)
	}
	for i, v := range want {
		if got.Rolls[i] != v {
			t.Fatalf("rolls = %v, want %v", got.Rolls, want)
		}
	}
	if got.Modifier != 3 || got.Total != 14 || !got.Critical {
		t.Errorf("modifier=%d total=%d critical=%v", got.Modifier, got.Total, got.Critical)
	}
}

func TestExecuteDamageFloorsAtOne(t *testing.T) {
	roller := dice.NewRoller(42)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "d1", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "1d4-10", Healing: true},
	})
	got := results[0]
	// Natural 4 minus 10 is negative; damage and healing floor at 1.
	if got.Rolls[0] != 4 || got.Total != 1 {
		t.Errorf("rolls=%v total=%d, want [4]/1", got.Rolls, got.Total)
	}
	if !got.Healing {
		t.Error("healing flag dropped from result")
	}
}

func TestExecuteDamageCarriesHealingFlag(t *testing.T) {
	roller := dice.NewRoller(42)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "heal", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "2d6+3", Healing: true},
		{ID: "hurt", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "1d6"},
	})
	if !results[0].Healing {
		t.Error("healing roll not marked in result")
	}
	if results[1].Healing {
		t.Error("damage roll wrongly marked as healing")
	}
}

func TestExecuteFailedRequestConsumesNoDice(t *testing.T) {
	roller := dice.NewRoller(42)

	results := Execute(roller, testActors(), []domain.RollRequest{
		{ID: "r1", Kind: domain.RollKindAbilityCheck, Actor: "nobody", Ability: "wisdom", DC: 10},
		{ID: "d1", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "bad"},
		{ID: "d2", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "2d6"},
	})
	if results[0].Error == "" || results[1].Error == "" {
		t.Fatalf("want errors on first two results: %+v", results[:2])
	}
	// The stream is untouched by the failures: d2 sees the seed's first draws.
	got := results[2]
	if got.Error != "" || got.Rolls[0] != 6 || got.Rolls[1] != 1 || got.Total != 7 {
		t.Errorf("d2 = %+v, want rolls [6 1] total 7", got)
	}
}

func TestExecutePreservesOrderAndIDs(t *testing.T) {
	roller := dice.NewRoller(5)

	requests := []domain.RollRequest{
		{ID: "first", Kind: domain.RollKindAbilityCheck, Actor: "mira", Ability: "wisdom", DC: 10},
		{ID: "second", Kind: "initiative", Actor: "mira"},
		{ID: "third", Kind: domain.RollKindDamageRoll, Actor: "brand", Expression: "1d6"},
	}
	results := Execute(roller, testActors(), requests)
	if len(results) != 3 {
		t.Fatalf("want 3 results, got %d", len(results))
	}
	for i, request := range requests {
		if results[i].ID != request.ID || results[i].Kind != request.Kind {
			t.Errorf("result %d = %s/%s, want %s/%s", i, results[i].ID, results[i].Kind, request.ID, request.Kind)
		}
	}
	if results[1].Error == "" {
		t.Error("unknown kind must record an error")
	}
}

func TestActorsFromState(t *testing.T) {
	state := domain.NewCampaignState(domain.Campaign{})
	state.Characters["mira"] = &domain.CharacterState{
		Name:               "Mira",
		Level:              4,
		Abilities:          map[string]int{"wisdom": 16, "dexterity": 8},
		SkillProficiencies: []string{"perception"},
		Expertise:          []string{"perception"},
		SaveProficiencies:  []string{"wisdom"},
	}

	actors := ActorsFromState(state)
	actor, ok := actors("mira")
	if !ok {
		t.Fatal("mira should resolve")
	}

	modifier, err := actor.Modifier(check.Input{Ability: check.Wisdom, Skill: check.Perception})
	if err != nil {
		t.Fatal(err)
	}
	// +3 wisdom, +2 proficiency doubled by expertise.
	if modifier != 7 {
		t.Errorf("perception modifier = %d, want 7", modifier)
	}

	modifier, err = actor.Modifier(check.Input{Ability: check.Wisdom, Save: true})
	if err != nil {
		t.Fatal(err)
	}
	if modifier != 5 {
		t.Errorf("wisdom save modifier = %d, want 5", modifier)
	}

	if _, ok := actors("ghost"); ok {
		t.Error("unknown character must not resolve")
	}
}
