package domain

// Rating is a content-rating code attached to a campaign.
type Rating string

const (
	RatingAllAges Rating = "all_ages"
	RatingTeen    Rating = "teen"
	RatingMature  Rating = "mature"
)

// IsValid reports whether the rating is a known code.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAllAges, RatingTeen, RatingMature:
		return true
	}
	return false
}

// RatingProfile carries the validation limits a content rating implies for
// turn output. The text filter itself lives outside this core; only the
// limits it feeds into validation are modeled here.
type RatingProfile struct {
	Rating Rating
	// MaxLoreTextLength bounds the text of a single lore delta.
	MaxLoreTextLength int
}

// RatingTable maps rating codes to their profiles. It is built once and
// passed by reference to every component that needs it; there is no ambient
// global lookup.
type RatingTable struct {
	profiles map[Rating]RatingProfile
}

// DefaultRatingTable builds the standard rating table.
func DefaultRatingTable() RatingTable {
	return RatingTable{profiles: map[Rating]RatingProfile{
		RatingAllAges: {Rating: RatingAllAges, MaxLoreTextLength: 500},
		RatingTeen:    {Rating: RatingTeen, MaxLoreTextLength: 1000},
		RatingMature:  {Rating: RatingMature, MaxLoreTextLength: 2000},
	}}
}

// Profile returns the profile for a rating code.
func (t RatingTable) Profile(r Rating) (RatingProfile, bool) {
	profile, ok := t.profiles[r]
	return profile, ok
}
