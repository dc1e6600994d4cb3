package strategy

import (
	"fmt"
	"time"
)

// TTLs applied inside and outside peak windows.
const (
	peakTTL    = 30 * time.Minute
	offPeakTTL = 2 * time.Hour
)

// hourWindow is a half-open [Start, End) hour-of-day range.
type hourWindow struct {
	Start, End int
}

// TimeSensitive caches aggressively with a short TTL during peak hour
// windows; outside them only high-importance content is admitted, with a
// longer TTL. Keys carry a six-hour time slot so stale peak content does
// not shadow off-peak results.
type TimeSensitive struct {
	peaks []hourWindow

	// now is swappable for tests.
	now func() time.Time
}

// NewTimeSensitive returns the time-sensitive strategy with the standard
// morning and evening peak windows.
func NewTimeSensitive() *TimeSensitive {
	return &TimeSensitive{
		peaks: []hourWindow{{7, 10}, {18, 21}},
		now:   time.Now,
	}
}

func (s *TimeSensitive) inPeak() bool {
	hour := s.now().Hour()
	for _, w := range s.peaks {
		if hour >= w.Start && hour < w.End {
			return true
		}
	}
	return false
}

// ShouldCache admits everything during peak windows; off-peak, only
// high or critical importance content is worth the space.
func (s *TimeSensitive) ShouldCache(key string, value any, meta map[string]string) bool {
	if s.inPeak() {
		return true
	}

	importance := meta["importance"]
	return importance == "high" || importance == "critical"
}

// TTL is short during peak windows and longer off-peak.
func (s *TimeSensitive) TTL(key string, value any, meta map[string]string) time.Duration {
	if s.inPeak() {
		return peakTTL
	}
	return offPeakTTL
}

// Key appends the current six-hour slot to the derived key.
func (s *TimeSensitive) Key(parts ...string) string {
	slot := s.now().Hour() / 6
	return fmt.Sprintf("%s_%d", hashKey(parts), slot)
}
