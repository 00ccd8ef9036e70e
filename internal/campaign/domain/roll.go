package domain

// RollKind identifies what a roll request resolves.
type RollKind string

const (
	RollKindAbilityCheck RollKind = "ability_check"
	RollKindSavingThrow  RollKind = "saving_throw"
	RollKindAttackRoll   RollKind = "attack_roll"
	RollKindDamageRoll   RollKind = "damage_roll"
)

// IsValid reports whether the roll kind is part of the fixed enumeration.
func (k RollKind) IsValid() bool {
	switch k {
	case RollKindAbilityCheck, RollKindSavingThrow, RollKindAttackRoll, RollKindDamageRoll:
		return true
	}
	return false
}

// RollRequest is one roll the narrator asks the engine to resolve. Fields
// apply per kind: Ability and Skill to checks, Ability to saves and attacks,
// Expression and Critical to damage rolls.
type RollRequest struct {
	ID        string   `json:"id"`
	Kind      RollKind `json:"kind"`
	Actor     string   `json:"actor"`
	Ability   string   `json:"ability,omitempty"`
	Skill     string   `json:"skill,omitempty"`
	DC        int      `json:"dc,omitempty"`
	Bonus     int      `json:"bonus,omitempty"`
	Advantage string   `json:"advantage,omitempty"`
	// Expression is the dice expression for damage rolls, e.g. "2d6+3".
	Expression string `json:"expression,omitempty"`
	// Critical doubles the dice (never the modifier) of a damage roll.
	Critical bool `json:"critical,omitempty"`
	// Healing marks a damage-roll expression as healing; both share the
	// minimum-1 result floor.
	Healing bool `json:"healing,omitempty"`
}

// RollResult is one resolved roll, embedded in the turn event. Total is the
// sum of Rolls plus Modifier, except damage and healing rolls floor at 1.
type RollResult struct {
	ID       string   `json:"id"`
	Kind     RollKind `json:"kind"`
	Rolls    []int    `json:"rolls,omitempty"`
	Modifier int      `json:"modifier"`
	Total    int      `json:"total"`
	DC       int      `json:"dc,omitempty"`
	Success  bool     `json:"success,omitempty"`
	Critical bool     `json:"critical,omitempty"`
	Fumble   bool     `json:"fumble,omitempty"`
	// Healing marks the total as restored hit points rather than damage.
	Healing bool `json:"healing,omitempty"`
	// Error carries a per-roll failure (e.g. an unparseable expression)
	// without aborting the rest of the batch.
	Error string `json:"error,omitempty"`
}
