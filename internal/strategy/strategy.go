// Package strategy implements pluggable cache admission and expiry
// policies. A strategy decides whether a computed value is worth caching,
// for how long, and under what key; the store itself never interprets
// content metadata.
package strategy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Strategy is the policy contract consulted around cache reads and writes.
// Implementations are pure decision functions over their arguments and
// read-only configuration; they hold no mutable state.
type Strategy interface {
	// ShouldCache decides whether the value should be admitted at all.
	ShouldCache(key string, value any, meta map[string]string) bool

	// TTL returns the expiry duration to store the value with.
	TTL(key string, value any, meta map[string]string) time.Duration

	// Key derives a deterministic cache key from call arguments.
	Key(parts ...string) string
}

// ForName returns the strategy registered under a configuration name.
func ForName(name string) (Strategy, error) {
	switch name {
	case "content-type", "":
		return NewContentType(), nil
	case "time-sensitive":
		return NewTimeSensitive(), nil
	case "user-segment":
		return NewUserSegment(), nil
	default:
		return nil, fmt.Errorf("unknown cache strategy %q", name)
	}
}

// hashKey folds key parts into a stable 128-bit hex digest.
func hashKey(parts []string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:16])
}

// metaInt reads an integer metadata value, falling back when absent or
// malformed.
func metaInt(meta map[string]string, key string, fallback int) int {
	raw, ok := meta[key]
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return n
}
