package health

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// enabledRunKey is the single-flight key for runs over the enabled set.
const enabledRunKey = "run:enabled"

// runKey generates the single-flight key for a run request.
// Format: run:<hash>
// where hash is the first 16 characters of SHA-256(JSON(sorted unique names)).
// A nil slice means the enabled set and maps to enabledRunKey.
func runKey(names []string) string {
	if names == nil {
		return enabledRunKey
	}

	canonical := slices.Clone(names)
	slices.Sort(canonical)
	canonical = slices.Compact(canonical)

	// Marshalling a []string cannot fail.
	b, _ := json.Marshal(canonical)
	hash := sha256.Sum256(b)
	return "run:" + hex.EncodeToString(hash[:8])
}
