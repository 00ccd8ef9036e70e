// Package check resolves ability checks, saving throws, and contested checks
// against actor statistics.
package check

import (
	"errors"
	"fmt"

	"github.com/dcowern/whispyrkeep/internal/core/dice"
)

var (
	// ErrUnknownAbility indicates an ability outside the six-value enumeration.
	ErrUnknownAbility = errors.New("unknown ability")
	// ErrUnknownSkill indicates a skill outside the fixed skill list.
	ErrUnknownSkill = errors.New("unknown skill")
)

// Ability names one of the six core ability scores.
type Ability string

const (
	Strength     Ability = "strength"
	Dexterity    Ability = "dexterity"
	Constitution Ability = "constitution"
	Intelligence Ability = "intelligence"
	Wisdom       Ability = "wisdom"
	Charisma     Ability = "charisma"
)

// Abilities lists every ability in canonical order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// IsValid reports whether the ability is one of the six known values.
func (a Ability) IsValid() bool {
	switch a {
	case Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma:
		return true
	}
	return false
}

// Skill names a proficiency-bearing skill.
type Skill string

const (
	Acrobatics     Skill = "acrobatics"
	AnimalHandling Skill = "animal_handling"
	Arcana         Skill = "arcana"
	Athletics      Skill = "athletics"
	Deception      Skill = "deception"
	History        Skill = "history"
	Insight        Skill = "insight"
	Intimidation   Skill = "intimidation"
	Investigation  Skill = "investigation"
	Medicine       Skill = "medicine"
	Nature         Skill = "nature"
	Perception     Skill = "perception"
	Performance    Skill = "performance"
	Persuasion     Skill = "persuasion"
	Religion       Skill = "religion"
	SleightOfHand  Skill = "sleight_of_hand"
	Stealth        Skill = "stealth"
	Survival       Skill = "survival"
)

// SkillAbilities maps each skill to the ability it keys off.
var SkillAbilities = map[Skill]Ability{
	Acrobatics:     Dexterity,
	AnimalHandling: Wisdom,
	Arcana:         Intelligence,
	Athletics:      Strength,
	Deception:      Charisma,
	History:        Intelligence,
	Insight:        Wisdom,
	Intimidation:   Charisma,
	Investigation:  Intelligence,
	Medicine:       Wisdom,
	Nature:         Intelligence,
	Perception:     Wisdom,
	Performance:    Charisma,
	Persuasion:     Charisma,
	Religion:       Intelligence,
	SleightOfHand:  Dexterity,
	Stealth:        Dexterity,
	Survival:       Wisdom,
}

// IsValid reports whether the skill is part of the fixed skill list.
func (s Skill) IsValid() bool {
	_, ok := SkillAbilities[s]
	return ok
}

// Actor carries the statistics a check needs: ability scores, level, and
// proficiency sets. The character/world state provider supplies these; the
// resolver never mutates them.
type Actor struct {
	Abilities          map[Ability]int
	Level              int
	SkillProficiencies map[Skill]bool
	Expertise          map[Skill]bool
	SaveProficiencies  map[Ability]bool
}

// AbilityScore returns the actor's score for an ability, defaulting to 10.
func (a Actor) AbilityScore(ability Ability) int {
	score, ok := a.Abilities[ability]
	if !ok {
		return 10
	}
	return score
}

// AbilityModifier converts an ability score to its modifier:
// floor((score-10)/2), with true flooring for scores below 10.
func AbilityModifier(score int) int {
	diff := score - 10
	if diff >= 0 {
		return diff / 2
	}
	return -((-diff + 1) / 2)
}

// ProficiencyBonus derives the level-based proficiency bonus. Levels are
// clamped to [1, 20].
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	if level > 20 {
		level = 20
	}
	return 2 + (level-1)/4
}

// Input describes one check to resolve.
type Input struct {
	Ability Ability
	// Skill is optional; when set, skill proficiency and expertise apply.
	Skill Skill
	// Save marks a saving throw: save proficiency applies, expertise never.
	Save      bool
	DC        int
	Bonus     int
	Advantage dice.AdvantageState
}

// Result is the outcome of one resolved check.
type Result struct {
	Roll     dice.AdvantageRoll
	Modifier int
	Total    int
	DC       int
	Success  bool
	Margin   int
}

// Modifier computes the full modifier for a check without rolling: ability
// modifier, proficiency (for a proficient skill or save), proficiency again
// for expertise, and any flat bonus.
func (a Actor) Modifier(in Input) (int, error) {
	if !in.Ability.IsValid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAbility, in.Ability)
	}

	modifier := AbilityModifier(a.AbilityScore(in.Ability)) + in.Bonus
	proficiency := ProficiencyBonus(a.Level)

	if in.Save {
		if a.SaveProficiencies[in.Ability] {
			modifier += proficiency
		}
		return modifier, nil
	}

	if in.Skill != "" {
		if !in.Skill.IsValid() {
			return 0, fmt.Errorf("%w: %q", ErrUnknownSkill, in.Skill)
		}
		if a.SkillProficiencies[in.Skill] {
			modifier += proficiency
			if a.Expertise[in.Skill] {
				modifier += proficiency
			}
		}
	}
	return modifier, nil
}

// Resolve rolls a d20 with the input's advantage state and compares the
// modified total against the difficulty class. Success is total >= DC.
func Resolve(roller *dice.Roller, actor Actor, in Input) (Result, error) {
	modifier, err := actor.Modifier(in)
	if err != nil {
		return Result{}, err
	}

	state := in.Advantage
	if state == "" {
		state = dice.AdvantageNone
	}
	roll, err := roller.Advantage(20, state)
	if err != nil {
		return Result{}, err
	}

	total := roll.Kept + modifier
	return Result{
		Roll:     roll,
		Modifier: modifier,
		Total:    total,
		DC:       in.DC,
		Success:  total >= in.DC,
		Margin:   total - in.DC,
	}, nil
}

// ContestedResult pairs the two sides of a contested check.
type ContestedResult struct {
	Initiator Result
	Target    Result
	// InitiatorWins is true when the initiator's total meets or exceeds the
	// target's: ties favor the initiating actor, never the target.
	InitiatorWins bool
}

// ResolveContested rolls two independent checks on the same roller, the
// initiator first, and declares the initiator the winner on a tie.
func ResolveContested(roller *dice.Roller, initiator Actor, initiatorIn Input, target Actor, targetIn Input) (ContestedResult, error) {
	initiatorResult, err := Resolve(roller, initiator, initiatorIn)
	if err != nil {
		return ContestedResult{}, err
	}
	targetResult, err := Resolve(roller, target, targetIn)
	if err != nil {
		return ContestedResult{}, err
	}

	return ContestedResult{
		Initiator:     initiatorResult,
		Target:        targetResult,
		InitiatorWins: initiatorResult.Total >= targetResult.Total,
	}, nil
}
