package domain

// CharacterState is the mutable per-character slice of campaign state.
// Ability scores and proficiencies change rarely (leveling); hit points,
// conditions, and inventory change turn to turn via state patches.
type CharacterState struct {
	Name               string         `json:"name"`
	Level              int            `json:"level"`
	HitPoints          int            `json:"hit_points"`
	MaxHitPoints       int            `json:"max_hit_points"`
	Abilities          map[string]int `json:"abilities"`
	SkillProficiencies []string       `json:"skill_proficiencies,omitempty"`
	SaveProficiencies  []string       `json:"save_proficiencies,omitempty"`
	Expertise          []string       `json:"expertise,omitempty"`
	Conditions         []string       `json:"conditions"`
	Inventory          []string       `json:"inventory"`
}

// clone deep-copies the character state.
func (c *CharacterState) clone() *CharacterState {
	if c == nil {
		return nil
	}
	out := &CharacterState{
		Name:         c.Name,
		Level:        c.Level,
		HitPoints:    c.HitPoints,
		MaxHitPoints: c.MaxHitPoints,
	}
	if c.Abilities != nil {
		out.Abilities = make(map[string]int, len(c.Abilities))
		for k, v := range c.Abilities {
			out.Abilities[k] = v
		}
	}
	out.SkillProficiencies = append([]string(nil), c.SkillProficiencies...)
	out.SaveProficiencies = append([]string(nil), c.SaveProficiencies...)
	out.Expertise = append([]string(nil), c.Expertise...)
	out.Conditions = append([]string(nil), c.Conditions...)
	out.Inventory = append([]string(nil), c.Inventory...)
	return out
}

// CampaignState is the full canonical game state at a turn index. It is
// uniquely determined by the initial state and the ordered patch history.
type CampaignState struct {
	TurnIndex    uint64                     `json:"turn_index"`
	UniverseTime int64                      `json:"universe_time"`
	Characters   map[string]*CharacterState `json:"characters"`
	WorldFlags   map[string]string          `json:"world_flags"`
}

// NewCampaignState builds the turn-0 state for a campaign.
func NewCampaignState(c Campaign) *CampaignState {
	return &CampaignState{
		TurnIndex:    0,
		UniverseTime: c.StartingUniverseTime,
		Characters:   make(map[string]*CharacterState),
		WorldFlags:   make(map[string]string),
	}
}

// Clone deep-copies the state. Patch application always works on a clone so
// a failed application leaves the original untouched.
func (s *CampaignState) Clone() *CampaignState {
	if s == nil {
		return nil
	}
	out := &CampaignState{
		TurnIndex:    s.TurnIndex,
		UniverseTime: s.UniverseTime,
		Characters:   make(map[string]*CharacterState, len(s.Characters)),
		WorldFlags:   make(map[string]string, len(s.WorldFlags)),
	}
	for id, character := range s.Characters {
		out.Characters[id] = character.clone()
	}
	for k, v := range s.WorldFlags {
		out.WorldFlags[k] = v
	}
	return out
}

// Character returns the character with the given id, or nil.
func (s *CampaignState) Character(id string) *CharacterState {
	if s == nil {
		return nil
	}
	return s.Characters[id]
}
