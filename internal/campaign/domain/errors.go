package domain

import "errors"

var (
	// ErrCampaignIDRequired indicates a missing campaign id.
	ErrCampaignIDRequired = errors.New("campaign id is required")
	// ErrCampaignNameRequired indicates a missing campaign name.
	ErrCampaignNameRequired = errors.New("campaign name is required")
	// ErrInvalidFailureStyle indicates an unknown failure-handling style.
	ErrInvalidFailureStyle = errors.New("unknown failure style")
	// ErrInvalidContentRating indicates an unknown content rating code.
	ErrInvalidContentRating = errors.New("unknown content rating")
	// ErrCharacterNotFound indicates a patch or roll referenced a character
	// missing from the campaign state.
	ErrCharacterNotFound = errors.New("character not found")
)
