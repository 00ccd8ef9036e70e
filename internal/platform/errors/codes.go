// Package errors provides structured error handling for the turn engine.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Parse errors (narrator output)
	CodeParsePayloadMissing   Code = "PARSE_PAYLOAD_MISSING"
	CodeParsePayloadMalformed Code = "PARSE_PAYLOAD_MALFORMED"

	// Validation errors
	CodeValidationFailed          Code = "VALIDATION_FAILED"
	CodeRollDuplicateID           Code = "ROLL_DUPLICATE_ID"
	CodeRollUnknownKind           Code = "ROLL_UNKNOWN_KIND"
	CodeRollUnknownAbility        Code = "ROLL_UNKNOWN_ABILITY"
	CodeRollUnknownSkill          Code = "ROLL_UNKNOWN_SKILL"
	CodeRollDifficultyOutOfRange  Code = "ROLL_DIFFICULTY_OUT_OF_RANGE"
	CodeRollUnknownAdvantage      Code = "ROLL_UNKNOWN_ADVANTAGE_STATE"
	CodeRollBadDiceExpression     Code = "ROLL_BAD_DICE_EXPRESSION"
	CodePatchUnknownOp            Code = "PATCH_UNKNOWN_OP"
	CodePatchPathNotAllowed       Code = "PATCH_PATH_NOT_ALLOWED"
	CodePatchDuplicatePath        Code = "PATCH_DUPLICATE_PATH"
	CodePatchValueType            Code = "PATCH_VALUE_TYPE_MISMATCH"
	CodePatchValueRange           Code = "PATCH_VALUE_OUT_OF_RANGE"
	CodePatchNegativeTimeDelta    Code = "PATCH_NEGATIVE_TIME_DELTA"
	CodeLoreUnknownType           Code = "LORE_UNKNOWN_TYPE"
	CodeLoreEmptyText             Code = "LORE_EMPTY_TEXT"
	CodeLoreTextTooLong           Code = "LORE_TEXT_TOO_LONG"
	CodeLoreBadTags               Code = "LORE_BAD_TAGS"
	CodeLoreHardCanon             Code = "LORE_HARD_CANON_REVIEW"

	// Mechanics errors
	CodeMechanicsBadExpression Code = "MECHANICS_BAD_EXPRESSION"
	CodeMechanicsUnknownKind   Code = "MECHANICS_UNKNOWN_KIND"

	// State conflict errors
	CodeTurnInFlight        Code = "TURN_IN_FLIGHT"
	CodeRewindBeyondLatest  Code = "REWIND_BEYOND_LATEST"
	CodeCampaignNotFound    Code = "CAMPAIGN_NOT_FOUND"
	CodeTurnIndexOutOfRange Code = "TURN_INDEX_OUT_OF_RANGE"

	// Persistence errors
	CodePersistenceFailed Code = "PERSISTENCE_FAILED"
	CodeNotFound          Code = "NOT_FOUND"
)

// GRPCCode maps a domain code to the closest gRPC status code.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeParsePayloadMissing, CodeParsePayloadMalformed,
		CodeValidationFailed, CodeRollDuplicateID, CodeRollUnknownKind,
		CodeRollUnknownAbility, CodeRollUnknownSkill,
		CodeRollDifficultyOutOfRange, CodeRollUnknownAdvantage,
		CodeRollBadDiceExpression, CodePatchUnknownOp,
		CodePatchPathNotAllowed, CodePatchDuplicatePath,
		CodePatchValueType, CodePatchValueRange,
		CodePatchNegativeTimeDelta, CodeLoreUnknownType,
		CodeLoreEmptyText, CodeLoreTextTooLong, CodeLoreBadTags,
		CodeMechanicsBadExpression, CodeMechanicsUnknownKind:
		return codes.InvalidArgument
	case CodeTurnInFlight, CodeRewindBeyondLatest, CodeTurnIndexOutOfRange:
		return codes.FailedPrecondition
	case CodeCampaignNotFound, CodeNotFound:
		return codes.NotFound
	case CodePersistenceFailed:
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}
