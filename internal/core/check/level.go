package check

import "github.com/dcowern/whispyrkeep/internal/core/dice"

// AverageHitPointsGain returns the fixed hit point gain for leveling with the
// average of the hit die: (die / 2) + 1 plus the constitution modifier, never
// less than 1.
func AverageHitPointsGain(hitDie, constitutionScore int) int {
	gain := hitDie/2 + 1 + AbilityModifier(constitutionScore)
	return dice.FloorTotal(gain)
}

// RolledHitPointsGain rolls the hit die for a level-up and adds the
// constitution modifier, never returning less than 1. The rolled die value is
// returned alongside the final gain for the turn record.
func RolledHitPointsGain(roller *dice.Roller, hitDie, constitutionScore int) (gain, rolled int, err error) {
	rolled, err = roller.Die(hitDie)
	if err != nil {
		return 0, 0, err
	}
	return dice.FloorTotal(rolled + AbilityModifier(constitutionScore)), rolled, nil
}
