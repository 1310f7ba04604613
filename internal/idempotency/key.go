// Package idempotency derives the fingerprint the process engine uses to
// detect duplicate task-initiation commands delivered more than once.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key returns a deterministic key for (eventInstanceID, taskID). Identical
// inputs always produce the identical key; any change to either input changes
// it. The inputs are length-prefix separated so no two distinct pairs can
// concatenate to the same digest input.
func Key(eventInstanceID, taskID string) string {
	h := sha256.New()
	h.Write([]byte{byte(len(eventInstanceID) >> 8), byte(len(eventInstanceID))})
	h.Write([]byte(eventInstanceID))
	h.Write([]byte(taskID))
	return hex.EncodeToString(h.Sum(nil))
}
