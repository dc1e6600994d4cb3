package strategy

import (
	"fmt"
	"time"
)

// minAnonymousPopularity gates anonymous-segment caching: only content
// popular enough to be re-requested is worth space for anonymous callers.
const minAnonymousPopularity = 70

// UserSegment keys TTL off a caller-supplied segment label. Privileged
// segments keep content longest; the anonymous segment caches only popular
// content, briefly.
type UserSegment struct {
	ttls       map[string]time.Duration
	defaultTTL time.Duration
}

// NewUserSegment returns the user-segment strategy with the standard
// segment TTL table.
func NewUserSegment() *UserSegment {
	return &UserSegment{
		ttls: map[string]time.Duration{
			"premium":   7 * 24 * time.Hour,
			"regular":   24 * time.Hour,
			"anonymous": 6 * time.Hour,
		},
		defaultTTL: time.Hour,
	}
}

func segmentOf(meta map[string]string) string {
	if segment, ok := meta["user_segment"]; ok {
		return segment
	}
	return "anonymous"
}

// ShouldCache admits everything for known segments; anonymous callers are
// gated by a popularity threshold.
func (s *UserSegment) ShouldCache(key string, value any, meta map[string]string) bool {
	if segmentOf(meta) == "anonymous" {
		return metaInt(meta, "popularity_score", 0) > minAnonymousPopularity
	}
	return true
}

// TTL returns the segment's configured TTL.
func (s *UserSegment) TTL(key string, value any, meta map[string]string) time.Duration {
	if ttl, ok := s.ttls[segmentOf(meta)]; ok {
		return ttl
	}
	return s.defaultTTL
}

// Key prefixes the derived key with the segment so segments never share
// entries. The segment is passed as the first part.
func (s *UserSegment) Key(parts ...string) string {
	if len(parts) == 0 {
		return hashKey(parts)
	}
	return fmt.Sprintf("%s_%s", parts[0], hashKey(parts[1:]))
}
