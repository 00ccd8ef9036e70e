package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash computes the canonical digest of a campaign state: SHA-256 over the
// canonical JSON encoding, truncated to 128 bits and hex-encoded. Map keys
// serialize in sorted order, so equal states always hash equally.
func Hash(state any) (string, error) {
	encoded, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode state for hashing: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:16]), nil
}
