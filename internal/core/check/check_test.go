package check

import (
	"errors"
	"testing"

	"github.com/dcowern/whispyrkeep/internal/core/dice"
)

func TestAbilityModifier(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{1, -5},
		{3, -4},
		{7, -2},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{14, 2},
		{15, 2},
		{20, 5},
		{30, 10},
	}
	for _, tt := range tests {
		if got := AbilityModifier(tt.score); got != tt.want {
			t.Errorf("AbilityModifier(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestProficiencyBonus(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 2},
		{1, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{13, 5},
		{17, 6},
		{20, 6},
		{25, 6},
	}
	for _, tt := range tests {
		if got := ProficiencyBonus(tt.level); got != tt.want {
			t.Errorf("ProficiencyBonus(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func proficientRogue() Actor {
	return Actor{
		Abilities: map[Ability]int{
			Dexterity: 14,
			Wisdom:    12,
		},
		Level:              1,
		SkillProficiencies: map[Skill]bool{Stealth: true, Perception: true},
		Expertise:          map[Skill]bool{Stealth: true},
		SaveProficiencies:  map[Ability]bool{Dexterity: true},
	}
}

func TestActorModifier(t *testing.T) {
	actor := proficientRogue()

	tests := []struct {
		name string
		in   Input
		want int
	}{
		{
			name: "plain ability check",
			in:   Input{Ability: Dexterity},
			want: 2,
		},
		{
			name: "proficient skill",
			in:   Input{Ability: Wisdom, Skill: Perception},
			want: 3,
		},
		{
			name: "expertise doubles proficiency",
			in:   Input{Ability: Dexterity, Skill: Stealth},
			want: 6,
		},
		{
			name: "unproficient skill adds nothing",
			in:   Input{Ability: Dexterity, Skill: Acrobatics},
			want: 2,
		},
		{
			name: "proficient save",
			in:   Input{Ability: Dexterity, Save: true},
			want: 4,
		},
		{
			name: "unproficient save",
			in:   Input{Ability: Wisdom, Save: true},
			want: 1,
		},
		{
			name: "flat bonus",
			in:   Input{Ability: Dexterity, Bonus: 3},
			want: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := actor.Modifier(tt.in)
			if err != nil {
				t.Fatalf("modifier: %v", err)
			}
			if got != tt.want {
				t.Fatalf("modifier = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestActorModifierRejectsUnknownInputs(t *testing.T) {
	actor := proficientRogue()

	if _, err := actor.Modifier(Input{Ability: Ability("luck")}); !errors.Is(err, ErrUnknownAbility) {
		t.Fatalf("expected ErrUnknownAbility, got %v", err)
	}
	if _, err := actor.Modifier(Input{Ability: Dexterity, Skill: Skill("lockpicking")}); !errors.Is(err, ErrUnknownSkill) {
		t.Fatalf("expected ErrUnknownSkill, got %v", err)
	}
}

// Golden check: +2 ability modifier, proficient (+2), DC 12, natural 8 on
// seed 42 totals exactly 12 and succeeds.
func TestResolveGoldenCheck(t *testing.T) {
	actor := Actor{
		Abilities:          map[Ability]int{Wisdom: 14},
		Level:              1,
		SkillProficiencies: map[Skill]bool{Perception: true},
	}

	result, err := Resolve(dice.NewRoller(42), actor, Input{
		Ability: Wisdom,
		Skill:   Perception,
		DC:      12,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Roll.Kept != 8 {
		t.Fatalf("natural roll = %d, want 8", result.Roll.Kept)
	}
	if result.Total != 12 {
		t.Fatalf("total = %d, want 12", result.Total)
	}
	if !result.Success {
		t.Fatal("expected success: total meets the difficulty class exactly")
	}
	if result.Margin != 0 {
		t.Fatalf("margin = %d, want 0", result.Margin)
	}
}

func TestResolveWithAdvantage(t *testing.T) {
	actor := Actor{Abilities: map[Ability]int{Strength: 10}, Level: 1}

	// Seed 42 draws 8 then 9: advantage keeps 9.
	result, err := Resolve(dice.NewRoller(42), actor, Input{
		Ability:   Strength,
		DC:        10,
		Advantage: dice.AdvantageAdvantage,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Roll.Kept != 9 {
		t.Fatalf("kept roll = %d, want 9", result.Roll.Kept)
	}
	if result.Success {
		t.Fatalf("total %d against DC 10 should fail", result.Total)
	}
}

func TestResolveContestedTieFavorsInitiator(t *testing.T) {
	initiator := Actor{Abilities: map[Ability]int{Strength: 10}, Level: 1}
	target := Actor{Abilities: map[Ability]int{Strength: 10}, Level: 1}

	// Seed 42 draws 8 then 9; the -1 bonus on the target brings both totals
	// to 8, exercising the tie rule.
	result, err := ResolveContested(
		dice.NewRoller(42),
		initiator, Input{Ability: Strength},
		target, Input{Ability: Strength, Bonus: -1},
	)
	if err != nil {
		t.Fatalf("resolve contested: %v", err)
	}
	if result.Initiator.Total != result.Target.Total {
		t.Fatalf("expected a tie, got %d vs %d", result.Initiator.Total, result.Target.Total)
	}
	if !result.InitiatorWins {
		t.Fatal("tie must favor the initiating actor")
	}
}

func TestResolveContestedTargetWins(t *testing.T) {
	initiator := Actor{Abilities: map[Ability]int{Strength: 10}, Level: 1}
	target := Actor{Abilities: map[Ability]int{Strength: 14}, Level: 1}

	// Totals: initiator 8, target 9 + 2 = 11.
	result, err := ResolveContested(
		dice.NewRoller(42),
		initiator, Input{Ability: Strength},
		target, Input{Ability: Strength},
	)
	if err != nil {
		t.Fatalf("resolve contested: %v", err)
	}
	if result.InitiatorWins {
		t.Fatalf("target total %d beats initiator total %d", result.Target.Total, result.Initiator.Total)
	}
}

func TestAverageHitPointsGain(t *testing.T) {
	tests := []struct {
		hitDie int
		con    int
		want   int
	}{
		{8, 14, 7},  // 5 + 2
		{10, 10, 6}, // 6 + 0
		{6, 3, 1},   // 4 - 4 = 0, floored to 1
	}
	for _, tt := range tests {
		if got := AverageHitPointsGain(tt.hitDie, tt.con); got != tt.want {
			t.Errorf("AverageHitPointsGain(%d, %d) = %d, want %d", tt.hitDie, tt.con, got, tt.want)
		}
	}
}

func TestRolledHitPointsGainFloor(t *testing.T) {
	// Seed 42's first d6 draw is 6; constitution 1 applies a -5 modifier.
	gain, rolled, err := RolledHitPointsGain(dice.NewRoller(42), 6, 1)
	if err != nil {
		t.Fatalf("rolled gain: %v", err)
	}
	if rolled != 6 {
		t.Fatalf("rolled = %d, want 6", rolled)
	}
	if gain != 1 {
		t.Fatalf("gain = %d, want 1 (6 - 5 = 1)", gain)
	}

	// Seed 5's first d6 draw is 1: 1 - 5 floors at 1.
	gain, rolled, err = RolledHitPointsGain(dice.NewRoller(5), 6, 1)
	if err != nil {
		t.Fatalf("rolled gain: %v", err)
	}
	if rolled != 1 {
		t.Fatalf("rolled = %d, want 1", rolled)
	}
	if gain != 1 {
		t.Fatalf("gain = %d, want 1 (floored)", gain)
	}
}
