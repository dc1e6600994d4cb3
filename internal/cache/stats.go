package cache

import (
	"encoding/json"
	"sort"
	"time"
)

// statsCollector tracks running totals for the store. All fields are
// guarded by the store lock.
type statsCollector struct {
	hits        int64
	misses      int64
	evictions   int64
	expirations int64

	accessCount  int64
	totalLatency time.Duration
}

func (c *statsCollector) recordHit(latency time.Duration) {
	c.hits++
	c.accessCount++
	c.totalLatency += latency
}

func (c *statsCollector) recordMiss(latency time.Duration) {
	c.misses++
	c.accessCount++
	c.totalLatency += latency
}

// Stats returns a consistent point-in-time snapshot of the store's
// counters, size and most-accessed keys.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Entries:     int64(s.index.Len()),
		TotalBytes:  s.index.Size(),
		Capacity:    s.budget,
		Hits:        s.stats.hits,
		Misses:      s.stats.misses,
		Evictions:   s.stats.evictions,
		Expirations: s.stats.expirations,
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	if s.stats.accessCount > 0 {
		stats.AvgLatency = s.stats.totalLatency / time.Duration(s.stats.accessCount)
	}

	stats.MostAccessed = s.topKeysLocked(s.cfg.TopKeys)

	return stats
}

// topKeysLocked returns the n keys with the highest access counts, highest
// first, ties broken by key. Must be called with the store lock held.
func (s *Store) topKeysLocked(n int) []KeyAccess {
	if n <= 0 {
		return nil
	}

	entries := s.index.Entries()
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AccessCount != b.AccessCount {
			return a.AccessCount > b.AccessCount
		}
		return a.Key < b.Key
	})

	if len(entries) < n {
		n = len(entries)
	}

	top := make([]KeyAccess, 0, n)
	for _, entry := range entries[:n] {
		top = append(top, KeyAccess{Key: entry.Key, Count: entry.AccessCount})
	}

	return top
}

// ExportStats writes a stats snapshot to a JSON file.
func (s *Store) ExportStats(path string) error {
	payload := struct {
		Stats
		ExportedAt time.Time `json:"exported_at"`
	}{s.Stats(), time.Now()}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	return writeFileAtomic(path, data)
}
