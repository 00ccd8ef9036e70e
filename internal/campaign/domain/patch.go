package domain

// PatchOpKind identifies a primitive state mutation.
type PatchOpKind string

const (
	// PatchOpReplace overwrites the value at an allow-listed state path.
	PatchOpReplace PatchOpKind = "replace"
	// PatchOpAdvanceTime advances the universe clock by a non-negative
	// number of seconds.
	PatchOpAdvanceTime PatchOpKind = "advance_time"
)

// IsValid reports whether the op kind is known.
func (k PatchOpKind) IsValid() bool {
	return k == PatchOpReplace || k == PatchOpAdvanceTime
}

// PatchOp is one primitive operation inside a state patch. Value holds the
// decoded JSON value for replace ops (string, float64, bool, or []any);
// Delta holds the advance_time seconds.
type PatchOp struct {
	Op    PatchOpKind `json:"op"`
	Path  string      `json:"path,omitempty"`
	Value any         `json:"value,omitempty"`
	Delta int64       `json:"delta,omitempty"`
}

// StatePatch is an ordered list of primitive operations describing a state
// transition. Operations are validated individually and as a set before any
// is applied; application is strictly in order and all-or-nothing.
type StatePatch []PatchOp
