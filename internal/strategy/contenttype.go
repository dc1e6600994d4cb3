package strategy

import "time"

// Quality thresholds for admission and TTL scaling. Content without a
// quality score is admitted but gets the base TTL.
const (
	minCacheQuality = 60
	highQuality     = 90
	lowQuality      = 70
)

// ContentType caches by content type: each type carries its own TTL and a
// byte-size ceiling, low-quality content is rejected outright, and TTL is
// scaled by the quality score.
type ContentType struct {
	ttls       map[string]time.Duration
	sizeLimits map[string]int
}

// NewContentType returns the content-type strategy with the standard TTL
// table and size ceilings.
func NewContentType() *ContentType {
	return &ContentType{
		ttls: map[string]time.Duration{
			"shorts":        24 * time.Hour,
			"article":       3 * 24 * time.Hour,
			"report":        7 * 24 * time.Hour,
			"category":      12 * time.Hour,
			"paper_quality": 30 * 24 * time.Hour,
		},
		sizeLimits: map[string]int{
			"shorts":  100 * 1024,
			"article": 500 * 1024,
			"report":  2 * 1024 * 1024,
		},
	}
}

// ShouldCache admits values of a known content type that fit the type's
// size ceiling and meet the minimum quality score.
func (s *ContentType) ShouldCache(key string, value any, meta map[string]string) bool {
	contentType := meta["content_type"]

	if _, ok := s.ttls[contentType]; !ok {
		return false
	}

	if limit, ok := s.sizeLimits[contentType]; ok {
		if str, ok := value.(string); ok && len(str) > limit {
			return false
		}
	}

	return metaInt(meta, "quality_score", 100) >= minCacheQuality
}

// TTL returns the content type's base TTL scaled by quality: +50% at high
// quality, -50% below the low-quality line.
func (s *ContentType) TTL(key string, value any, meta map[string]string) time.Duration {
	base, ok := s.ttls[meta["content_type"]]
	if !ok {
		base = time.Hour
	}

	switch quality := metaInt(meta, "quality_score", lowQuality); {
	case quality >= highQuality:
		return base * 3 / 2
	case quality < lowQuality:
		return base / 2
	default:
		return base
	}
}

// Key derives a deterministic key from content type, topic, audience and
// any further identifying parts.
func (s *ContentType) Key(parts ...string) string {
	return hashKey(parts)
}
