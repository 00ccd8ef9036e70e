package validate

import (
	"fmt"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
	"github.com/dcowern/whispyrkeep/internal/core/check"
	"github.com/dcowern/whispyrkeep/internal/core/dice"
	perrors "github.com/dcowern/whispyrkeep/internal/platform/errors"
)

// Difficulty class bounds for checks, saves, and attacks.
const (
	MinDifficultyClass = 1
	MaxDifficultyClass = 40
)

// Validator enforces schema and domain-rule constraints on narrator output.
// Construct one per process and share it: it is immutable.
type Validator struct {
	ratings domain.RatingTable
	paths   PathPolicy
}

// New creates a Validator with the given rating table and path policy.
func New(ratings domain.RatingTable, paths PathPolicy) *Validator {
	if paths == nil {
		paths = StatePathPolicy{}
	}
	return &Validator{ratings: ratings, paths: paths}
}

// RollRequests validates a batch of roll requests. Identifiers must be
// unique within the batch; kinds, abilities, skills, advantage states, and
// difficulty classes must come from their fixed enumerations and bounds;
// damage rolls must carry a parseable dice expression.
func (v *Validator) RollRequests(requests []domain.RollRequest) Result {
	var result Result
	seen := make(map[string]int, len(requests))

	for i, request := range requests {
		path := fmt.Sprintf("roll_requests[%d]", i)

		if request.ID == "" {
			result.AddError(path+".id", perrors.CodeValidationFailed, "roll request id is required")
		} else if firstIdx, dup := seen[request.ID]; dup {
			result.AddError(path+".id", perrors.CodeRollDuplicateID,
				"duplicate roll id %q (first used by roll_requests[%d])", request.ID, firstIdx)
		} else {
			seen[request.ID] = i
		}

		if request.Actor == "" {
			result.AddError(path+".actor", perrors.CodeValidationFailed, "roll request actor is required")
		}

		if !request.Kind.IsValid() {
			result.AddError(path+".kind", perrors.CodeRollUnknownKind, "unknown roll kind %q", request.Kind)
			continue
		}

		if request.Advantage != "" && !dice.AdvantageState(request.Advantage).IsValid() {
			result.AddError(path+".advantage", perrors.CodeRollUnknownAdvantage,
				"unknown advantage state %q", request.Advantage)
		}

		switch request.Kind {
		case domain.RollKindDamageRoll:
			if _, err := dice.ParseExpression(request.Expression); err != nil {
				result.AddError(path+".expression", perrors.CodeRollBadDiceExpression,
					"invalid dice expression %q", request.Expression)
			}
		default:
			if !check.Ability(request.Ability).IsValid() {
				result.AddError(path+".ability", perrors.CodeRollUnknownAbility,
					"unknown ability %q", request.Ability)
			}
			if request.Skill != "" {
				if request.Kind != domain.RollKindAbilityCheck {
					result.AddError(path+".skill", perrors.CodeValidationFailed,
						"skill applies only to ability checks")
				} else if !check.Skill(request.Skill).IsValid() {
					result.AddError(path+".skill", perrors.CodeRollUnknownSkill,
						"unknown skill %q", request.Skill)
				}
			}
			if request.DC < MinDifficultyClass || request.DC > MaxDifficultyClass {
				result.AddError(path+".dc", perrors.CodeRollDifficultyOutOfRange,
					"difficulty class %d outside [%d, %d]", request.DC, MinDifficultyClass, MaxDifficultyClass)
			}
		}
	}
	return result
}

// PatchShape validates the structure of a patch without consulting campaign
// state: known op kinds, required fields, non-negative time deltas, and no
// duplicate replace targets.
func (v *Validator) PatchShape(patch domain.StatePatch) Result {
	var result Result
	seenPaths := make(map[string]int, len(patch))

	for i, op := range patch {
		path := fmt.Sprintf("state_patch[%d]", i)

		if !op.Op.IsValid() {
			result.AddError(path+".op", perrors.CodePatchUnknownOp, "unknown patch op %q", op.Op)
			continue
		}

		switch op.Op {
		case domain.PatchOpReplace:
			if op.Path == "" {
				result.AddError(path+".path", perrors.CodeValidationFailed, "replace requires a path")
				continue
			}
			if firstIdx, dup := seenPaths[op.Path]; dup {
				result.AddError(path+".path", perrors.CodePatchDuplicatePath,
					"path %q already targeted by state_patch[%d]", op.Path, firstIdx)
			} else {
				seenPaths[op.Path] = i
			}
			if op.Value == nil {
				result.AddError(path+".value", perrors.CodeValidationFailed, "replace requires a value")
			}
		case domain.PatchOpAdvanceTime:
			if op.Delta < 0 {
				result.AddError(path+".delta", perrors.CodePatchNegativeTimeDelta,
					"advance_time delta must be non-negative, got %d", op.Delta)
			}
		}
	}
	return result
}

// PatchAgainstState validates a patch's replace targets against the
// allow-listed paths and the current campaign state: paths must resolve,
// referenced characters must exist, and values must match the location's
// type and range.
func (v *Validator) PatchAgainstState(patch domain.StatePatch, state *domain.CampaignState) Result {
	var result Result

	for i, op := range patch {
		if op.Op != domain.PatchOpReplace || op.Path == "" {
			continue
		}
		path := fmt.Sprintf("state_patch[%d]", i)

		spec, ok := v.paths.Resolve(op.Path)
		if !ok {
			result.AddError(path+".path", perrors.CodePatchPathNotAllowed,
				"path %q is not an allow-listed mutable location", op.Path)
			continue
		}

		if spec.CharacterID != "" && state.Character(spec.CharacterID) == nil {
			result.AddError(path+".path", perrors.CodePatchPathNotAllowed,
				"unknown character %q", spec.CharacterID)
			continue
		}

		switch spec.Kind {
		case PathHitPoints:
			hp, ok := intValue(op.Value)
			if !ok {
				result.AddError(path+".value", perrors.CodePatchValueType,
					"hit points must be an integer, got %T", op.Value)
			} else if hp < 0 {
				result.AddError(path+".value", perrors.CodePatchValueRange,
					"hit points must be non-negative, got %d", hp)
			}
		case PathConditions, PathInventory:
			if _, ok := stringListValue(op.Value); !ok {
				result.AddError(path+".value", perrors.CodePatchValueType,
					"value for %q must be a list of strings", op.Path)
			}
		case PathWorldFlag:
			if _, ok := op.Value.(string); !ok {
				result.AddError(path+".value", perrors.CodePatchValueType,
					"world flag value must be a string, got %T", op.Value)
			}
		}
	}
	return result
}

// LoreDeltas validates lore deltas against the campaign's content-rating
// profile. Hard canon is valid but always warned: it bypasses soft-lore
// compaction and needs review.
func (v *Validator) LoreDeltas(deltas []domain.LoreDelta, rating domain.Rating) Result {
	var result Result

	profile, ok := v.ratings.Profile(rating)
	if !ok {
		result.AddError("content_rating", perrors.CodeValidationFailed,
			"unknown content rating %q", rating)
		return result
	}

	for i, delta := range deltas {
		path := fmt.Sprintf("lore_deltas[%d]", i)

		if !delta.Type.IsValid() {
			result.AddError(path+".type", perrors.CodeLoreUnknownType, "unknown lore type %q", delta.Type)
		}
		if delta.Text == "" {
			result.AddError(path+".text", perrors.CodeLoreEmptyText, "lore text is required")
		} else if len(delta.Text) > profile.MaxLoreTextLength {
			result.AddError(path+".text", perrors.CodeLoreTextTooLong,
				"lore text is %d characters, limit is %d", len(delta.Text), profile.MaxLoreTextLength)
		}
		for j, tag := range delta.Tags {
			if tag == "" {
				result.AddError(fmt.Sprintf("%s.tags[%d]", path, j), perrors.CodeLoreBadTags,
					"lore tags must be non-empty strings")
			}
		}
		if delta.Type == domain.LoreTypeHardCanon {
			result.AddWarning(path, perrors.CodeLoreHardCanon,
				"hard canon bypasses soft-lore compaction; flag for review")
		}
	}
	return result
}

// intValue normalizes JSON and programmatic numeric values to an int.
// Fractional values are rejected.
func intValue(value any) (int, bool) {
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

// stringListValue normalizes JSON and programmatic list values to []string.
func stringListValue(value any) ([]string, bool) {
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
