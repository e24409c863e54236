// Package ids provides identifier, timestamp, and input-hashing utilities
// shared by the span and decision-event layers.
package ids

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a freshly generated unique identifier.
func NewID() string {
	return uuid.New().String()
}

// NowUTC returns the current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// Timestamp formats t as an RFC 3339 UTC timestamp.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// HashInputs computes the canonical SHA-256 hex digest of an arbitrary input
// payload. The input is serialized to JSON first; encoding/json emits map keys
// in sorted order, which makes the digest stable for equivalent inputs. The
// digest is what DecisionEvents store instead of the raw input, so audits can
// verify reproducibility without retaining payloads.
func HashInputs(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash inputs: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// HashFields computes a SHA-256 hex digest over the given fields joined
// with "|". Used for idempotency keys; the separator keeps adjacent fields
// from colliding across boundaries.
func HashFields(fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(sum[:])
}
