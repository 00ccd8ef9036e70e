// Package dice provides the seeded dice engine behind turn mechanics.
//
// # Determinism
//
// All randomness derives from the explicit seed passed to NewRoller. Two
// Rollers constructed with the same seed and fed the same call sequence
// produce identical outputs, across processes and across releases. Replay of
// a recorded campaign depends on this.
package dice

import "errors"

var (
	// ErrInvalidSides indicates a die size of zero or less.
	ErrInvalidSides = errors.New("die sides must be positive")
	// ErrInvalidAdvantageState indicates an unrecognized advantage state.
	ErrInvalidAdvantageState = errors.New("unknown advantage state")
	// ErrInvalidExpression indicates an unparseable dice expression.
	ErrInvalidExpression = errors.New("invalid dice expression")
)

// AdvantageState selects how many d20s are drawn and which is kept.
type AdvantageState string

const (
	// AdvantageNone draws a single die.
	AdvantageNone AdvantageState = "none"
	// AdvantageAdvantage draws two dice and keeps the higher.
	AdvantageAdvantage AdvantageState = "advantage"
	// AdvantageDisadvantage draws two dice and keeps the lower.
	AdvantageDisadvantage AdvantageState = "disadvantage"
)

// IsValid reports whether the advantage state is one of the known values.
func (a AdvantageState) IsValid() bool {
	switch a {
	case AdvantageNone, AdvantageAdvantage, AdvantageDisadvantage:
		return true
	}
	return false
}

// Roller produces die rolls from a single deterministic source. A Roller is
// not safe for concurrent use; each turn owns its own instance.
type Roller struct {
	src *Source
}

// NewRoller creates a Roller seeded with the provided value.
func NewRoller(seed int64) *Roller {
	return &Roller{src: NewSource(seed)}
}

// Die rolls a single die and returns a value in [1, sides].
func (r *Roller) Die(sides int) (int, error) {
	if sides <= 0 {
		return 0, ErrInvalidSides
	}
	return r.src.die(sides), nil
}

// D20Roll is one d20 draw with its derived critical and fumble flags.
type D20Roll struct {
	Value    int
	Critical bool // natural 20
	Fumble   bool // natural 1
}

// D20 rolls one 20-sided die. The critical and fumble flags are derived from
// the natural value, never rolled separately.
func (r *Roller) D20() D20Roll {
	value := r.src.die(20)
	return D20Roll{
		Value:    value,
		Critical: value == 20,
		Fumble:   value == 1,
	}
}

// AdvantageRoll reports the kept and discarded values of an
// advantage-or-disadvantage draw. For AdvantageNone only Kept is set and
// Discarded is zero.
type AdvantageRoll struct {
	State     AdvantageState
	Kept      int
	Discarded int
	Critical  bool
	Fumble    bool
}

// Advantage rolls with the given advantage state. Advantage keeps the higher
// of two draws, disadvantage the lower. Equal draws are not special: either
// value may be reported as kept since they are equal. Critical and fumble
// flags are derived from the kept value when sides is 20.
func (r *Roller) Advantage(sides int, state AdvantageState) (AdvantageRoll, error) {
	if sides <= 0 {
		return AdvantageRoll{}, ErrInvalidSides
	}
	if !state.IsValid() {
		return AdvantageRoll{}, ErrInvalidAdvantageState
	}

	roll := AdvantageRoll{State: state}
	first := r.src.die(sides)
	if state == AdvantageNone {
		roll.Kept = first
	} else {
		second := r.src.die(sides)
		kept, discarded := first, second
		if (state == AdvantageAdvantage) == (second > first) {
			kept, discarded = second, first
		}
		roll.Kept = kept
		roll.Discarded = discarded
	}

	if sides == 20 {
		roll.Critical = roll.Kept == 20
		roll.Fumble = roll.Kept == 1
	}
	return roll, nil
}

// FloorTotal applies the minimum-result floor for damage and healing totals:
// after all modifiers, the result is never less than 1.
func FloorTotal(total int) int {
	if total < 1 {
		return 1
	}
	return total
}
