package cache

import "sort"

// evictTargetPct is the fill level eviction drives the store down to.
// Stopping below the budget avoids re-evicting on every subsequent write.
const evictTargetPct = 90

// EnsureCapacity enforces the byte budget, evicting least-recently-used
// entries until total size is at or below the eviction target. It returns
// the number of entries evicted and persists the snapshot when any were.
func (s *Store) EnsureCapacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := s.ensureCapacityLocked(0)
	if evicted > 0 {
		if err := s.index.Save(); err != nil {
			s.logger.Warn("eviction: index snapshot", "err", err)
		}
	}

	return evicted
}

// ensureCapacityLocked evicts LRU entries until the total size plus an
// incoming payload fits under the eviction target. Entries are ordered by
// LastAccessed ascending with ties broken by insertion order.
//
// A single remaining entry that alone exceeds the target is left in place;
// the store stays over target rather than emptying itself. Must be called
// with the store lock held.
func (s *Store) ensureCapacityLocked(incoming int64) int {
	if s.index.Size()+incoming <= s.budget {
		return 0
	}

	target := s.budget * evictTargetPct / 100

	entries := s.index.Entries()
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastAccessed.Equal(b.LastAccessed) {
			return a.LastAccessed.Before(b.LastAccessed)
		}
		return a.seq < b.seq
	})

	evicted := 0
	for _, entry := range entries {
		if s.index.Size()+incoming <= target {
			break
		}
		if incoming == 0 && s.index.Len() == 1 {
			break
		}

		s.removeEntryLocked(entry.Key)
		s.stats.evictions++
		evicted++

		s.logger.Debug("evicted", "key", entry.Key, "size", entry.SizeBytes)
	}

	return evicted
}
