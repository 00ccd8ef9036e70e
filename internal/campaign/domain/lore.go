package domain

// LoreType classifies a lore delta.
type LoreType string

const (
	// LoreTypeHardCanon marks immutable campaign facts. Hard canon bypasses
	// normal soft-lore compaction, so emitting it always raises a review
	// warning downstream.
	LoreTypeHardCanon LoreType = "hard_canon"
	// LoreTypeSoftLore marks compactable narrative color.
	LoreTypeSoftLore LoreType = "soft_lore"
)

// IsValid reports whether the lore type is known.
func (t LoreType) IsValid() bool {
	return t == LoreTypeHardCanon || t == LoreTypeSoftLore
}

// LoreDelta is one unit of lore emitted by a committed turn. Deltas are
// handed to the lore collaborator keyed by source turn so a rewind can
// invalidate them.
type LoreDelta struct {
	Type LoreType `json:"type"`
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}
