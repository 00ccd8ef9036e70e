// Package mechanics executes validated roll requests against campaign state,
// turning narrator proposals into deterministic roll results.
package mechanics

import (
	"fmt"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/core/check"
	"github.com/dcowern/whispyrkeep/internal/core/dice"
)

// ActorFunc resolves an actor identifier to its check statistics. The second
// return is false when the actor is unknown to the campaign.
type ActorFunc func(id string) (check.Actor, bool)

// ActorsFromState builds an ActorFunc over a campaign state's characters.
func ActorsFromState(state *domain.CampaignState) ActorFunc {
	return func(id string) (check.Actor, bool) {
		character := state.Character(id)
		if character == nil {
			return check.Actor{}, false
		}
		return ActorFromCharacter(character), true
	}
}

// ActorFromCharacter converts stored character state into check statistics.
func ActorFromCharacter(c *domain.CharacterState) check.Actor {
	actor := check.Actor{
		Level:              c.Level,
		Abilities:          make(map[check.Ability]int, len(c.Abilities)),
		SkillProficiencies: make(map[check.Skill]bool, len(c.SkillProficiencies)),
		Expertise:          make(map[check.Skill]bool, len(c.Expertise)),
		SaveProficiencies:  make(map[check.Ability]bool, len(c.SaveProficiencies)),
	}
	for name, score := range c.Abilities {
		actor.Abilities[check.Ability(name)] = score
	}
	for _, skill := range c.SkillProficiencies {
		actor.SkillProficiencies[check.Skill(skill)] = true
	}
	for _, skill := range c.Expertise {
		actor.Expertise[check.Skill(skill)] = true
	}
	for _, ability := range c.SaveProficiencies {
		actor.SaveProficiencies[check.Ability(ability)] = true
	}
	return actor
}

// Execute resolves a batch of roll requests in order on a single roller. A
// failing request records its error on the corresponding result and never
// aborts the batch. Failed requests consume no dice, so the full batch stays
// reproducible from the seed and the request list alone.
func Execute(roller *dice.Roller, actors ActorFunc, requests []domain.RollRequest) []domain.RollResult {
	results := make([]domain.RollResult, 0, len(requests))
	for _, request := range requests {
		results = append(results, executeOne(roller, actors, request))
	}
	return results
}

func executeOne(roller *dice.Roller, actors ActorFunc, request domain.RollRequest) domain.RollResult {
	result := domain.RollResult{ID: request.ID, Kind: request.Kind}

	switch request.Kind {
	case domain.RollKindAbilityCheck, domain.RollKindSavingThrow:
		actor, ok := actors(request.Actor)
		if !ok {
			result.Error = fmt.Sprintf("unknown actor %q", request.Actor)
			return result
		}
		in := check.Input{
			Ability:   check.Ability(request.Ability),
			Skill:     check.Skill(request.Skill),
			Save:      request.Kind == domain.RollKindSavingThrow,
			DC:        request.DC,
			Bonus:     request.Bonus,
			Advantage: dice.AdvantageState(request.Advantage),
		}
		resolved, err := check.Resolve(roller, actor, in)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Rolls = []int{resolved.Roll.Kept}
		result.Modifier = resolved.Modifier
		result.Total = resolved.Total
		result.DC = resolved.DC
		result.Success = resolved.Success
		result.Critical = resolved.Roll.Critical
		result.Fumble = resolved.Roll.Fumble
		return result

	case domain.RollKindAttackRoll:
		actor, ok := actors(request.Actor)
		if !ok {
			result.Error = fmt.Sprintf("unknown actor %q", request.Actor)
			return result
		}
		return attack(roller, actor, request)

	case domain.RollKindDamageRoll:
		return damage(roller, request)
	}

	result.Error = fmt.Sprintf("unknown roll kind %q", request.Kind)
	return result
}

// attack rolls d20 + ability modifier + proficiency bonus against the target
// number. Attackers are assumed proficient with their attacks.
func attack(roller *dice.Roller, actor check.Actor, request domain.RollRequest) domain.RollResult {
	result := domain.RollResult{ID: request.ID, Kind: request.Kind}

	ability := check.Ability(request.Ability)
	if !ability.IsValid() {
		result.Error = fmt.Sprintf("unknown ability %q", request.Ability)
		return result
	}

	state := dice.AdvantageState(request.Advantage)
	if state == "" {
		state = dice.AdvantageNone
	}
	roll, err := roller.Advantage(20, state)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	modifier := check.AbilityModifier(actor.AbilityScore(ability)) +
		check.ProficiencyBonus(actor.Level) + request.Bonus
	total := roll.Kept + modifier

	result.Rolls = []int{roll.Kept}
	result.Modifier = modifier
	result.Total = total
	result.DC = request.DC
	result.Critical = roll.Critical
	result.Fumble = roll.Fumble
	// Natural 20 always hits, natural 1 always misses.
	result.Success = (total >= request.DC || roll.Critical) && !roll.Fumble
	return result
}

// damage rolls a dice expression, doubling the dice (never the modifier) on
// a critical, and floors the amount at 1. Healing shares the same floor.
func damage(roller *dice.Roller, request domain.RollRequest) domain.RollResult {
	result := domain.RollResult{ID: request.ID, Kind: request.Kind}

	expression, err := dice.ParseExpression(request.Expression)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	var rolled dice.ExpressionResult
	if request.Critical {
		rolled, err = roller.RollCritical(expression)
	} else {
		rolled, err = roller.Roll(expression)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Rolls = rolled.Rolls
	result.Modifier = rolled.Modifier
	result.Total = dice.FloorTotal(rolled.Total)
	result.Critical = request.Critical
	result.Healing = request.Healing
	return result
}
