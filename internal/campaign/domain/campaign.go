// Package domain holds the campaign aggregate and the value types that flow
// through turn resolution: turn events, state patches, roll requests and
// results, and lore deltas.
package domain

import (
	"strings"
	"time"
)

// FailureStyle selects how the narrator is asked to treat failed checks.
// It is read-only input to mechanics and prompting; the turn engine never
// mutates it.
type FailureStyle string

const (
	// FailureStyleFailForward narrates failures as complications.
	FailureStyleFailForward FailureStyle = "fail_forward"
	// FailureStyleStrict narrates failures as hard stops.
	FailureStyleStrict FailureStyle = "strict"
)

// IsValid reports whether the failure style is a known value.
func (f FailureStyle) IsValid() bool {
	return f == FailureStyleFailForward || f == FailureStyleStrict
}

// Campaign is the aggregate root owning an ordered turn log and zero or more
// snapshots. Configuration fields are read-only inputs to validation and
// mechanics.
type Campaign struct {
	ID   string
	Name string
	// DiceSeed is the base seed for the campaign's dice; each turn derives
	// its own roller from it.
	DiceSeed int64
	// FailureStyle configures narration of failed checks.
	FailureStyle FailureStyle
	// ContentRating selects the lore constraints profile.
	ContentRating Rating
	// StartingUniverseTime is the universe-clock value before turn 1,
	// in seconds.
	StartingUniverseTime int64
	CreatedAt            time.Time
}

// Validate checks the campaign's configuration.
func (c Campaign) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrCampaignIDRequired
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrCampaignNameRequired
	}
	if !c.FailureStyle.IsValid() {
		return ErrInvalidFailureStyle
	}
	if !c.ContentRating.IsValid() {
		return ErrInvalidContentRating
	}
	return nil
}
