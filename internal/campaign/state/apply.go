// Package state owns the campaign state lifecycle: patch application,
// canonical hashing, snapshot cadence, and replay from the event journal.
package state

import (
	"fmt"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/campaign/validate"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
)

// ApplyTurn applies one turn's patch to a clone of the state, advancing the
// turn index by one. The input state is never mutated: a failing op leaves
// the caller's state untouched and returns an error for the whole patch.
// Replay and live turns share this single code path.
func ApplyTurn(current *domain.CampaignState, patch domain.StatePatch, policy validate.PathPolicy) (*domain.CampaignState, error) {
	if current == nil {
		return nil, fmt.Errorf("campaign state is required")
	}
	if policy == nil {
		policy = validate.StatePathPolicy{}
	}

	next := current.Clone()
	next.TurnIndex = current.TurnIndex + 1

	for i, op := range patch {
		if err := applyOp(next, op, policy); err != nil {
			return nil, fmt.Errorf("state_patch[%d]: %w", i, err)
		}
	}
	return next, nil
}

func applyOp(state *domain.CampaignState, op domain.PatchOp, policy validate.PathPolicy) error {
	switch op.Op {
	case domain.PatchOpAdvanceTime:
		if op.Delta < 0 {
			return perrors.New(perrors.CodePatchNegativeTimeDelta, "advance_time delta must be non-negative")
		}
		state.UniverseTime += op.Delta
		return nil

	case domain.PatchOpReplace:
		spec, ok := policy.Resolve(op.Path)
		if !ok {
			return perrors.New(perrors.CodePatchPathNotAllowed, fmt.Sprintf("path %q is not mutable", op.Path))
		}
		return applyReplace(state, op, spec)
	}
	return perrors.New(perrors.CodePatchUnknownOp, fmt.Sprintf("unknown patch op %q", op.Op))
}

func applyReplace(state *domain.CampaignState, op domain.PatchOp, spec validate.PathSpec) error {
	if spec.Kind == validate.PathWorldFlag {
		value, ok := op.Value.(string)
		if !ok {
			return perrors.New(perrors.CodePatchValueType, "world flag value must be a string")
		}
		state.WorldFlags[spec.FlagName] = value
		return nil
	}

	character := state.Character(spec.CharacterID)
	if character == nil {
		return perrors.Wrap(perrors.CodePatchPathNotAllowed,
			fmt.Sprintf("character %q: %v", spec.CharacterID, domain.ErrCharacterNotFound),
			domain.ErrCharacterNotFound)
	}

	switch spec.Kind {
	case validate.PathHitPoints:
		hp, ok := intPatchValue(op.Value)
		if !ok {
			return perrors.New(perrors.CodePatchValueType, "hit points must be an integer")
		}
		if hp < 0 {
			return perrors.New(perrors.CodePatchValueRange, "hit points must be non-negative")
		}
		character.HitPoints = hp
	case validate.PathConditions:
		list, ok := stringListPatchValue(op.Value)
		if !ok {
			return perrors.New(perrors.CodePatchValueType, "conditions must be a list of strings")
		}
		character.Conditions = list
	case validate.PathInventory:
		list, ok := stringListPatchValue(op.Value)
		if !ok {
			return perrors.New(perrors.CodePatchValueType, "inventory must be a list of strings")
		}
		character.Inventory = list
	default:
		return perrors.New(perrors.CodePatchPathNotAllowed, fmt.Sprintf("path %q is not mutable", op.Path))
	}
	return nil
}

// intPatchValue accepts the numeric encodings a patch value can arrive in:
// native ints from in-process callers, float64 from decoded JSON.
func intPatchValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}

func stringListPatchValue(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
