package validate

import "strings"

// PathKind classifies an allow-listed mutable state location.
type PathKind int

const (
	PathUnknown PathKind = iota
	PathHitPoints
	PathConditions
	PathInventory
	PathWorldFlag
)

// PathSpec is a resolved state path.
type PathSpec struct {
	Kind PathKind
	// CharacterID is set for character-scoped paths.
	CharacterID string
	// FlagName is set for world-flag paths.
	FlagName string
}

// PathPolicy resolves patch paths against the allow-listed set of mutable
// state locations. The character/world state provider supplies the policy;
// StatePathPolicy is the standard one.
type PathPolicy interface {
	Resolve(path string) (PathSpec, bool)
}

// StatePathPolicy allows the standard mutable locations:
//
//	characters/<id>/hp
//	characters/<id>/conditions
//	characters/<id>/inventory
//	flags/<name>
type StatePathPolicy struct{}

// Resolve implements PathPolicy.
func (StatePathPolicy) Resolve(path string) (PathSpec, bool) {
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 3 && parts[0] == "characters":
		id := strings.TrimSpace(parts[1])
		if id == "" {
			return PathSpec{}, false
		}
		switch parts[2] {
		case "hp":
			return PathSpec{Kind: PathHitPoints, CharacterID: id}, true
		case "conditions":
			return PathSpec{Kind: PathConditions, CharacterID: id}, true
		case "inventory":
			return PathSpec{Kind: PathInventory, CharacterID: id}, true
		}
		return PathSpec{}, false
	case len(parts) == 2 && parts[0] == "flags":
		name := strings.TrimSpace(parts[1])
		if name == "" {
			return PathSpec{}, false
		}
		return PathSpec{Kind: PathWorldFlag, FlagName: name}, true
	}
	return PathSpec{}, false
}
