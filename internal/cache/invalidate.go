package cache

import "strings"

// InvalidateByPattern removes every entry whose key contains the given
// substring and returns how many were removed.
func (s *Store) InvalidateByPattern(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.index.Keys() {
		if strings.Contains(key, pattern) && s.removeEntryLocked(key) {
			removed++
		}
	}

	if removed > 0 {
		if err := s.index.Save(); err != nil {
			s.logger.Warn("invalidate: index snapshot", "err", err)
		}
		s.logger.Debug("invalidated by pattern", "pattern", pattern, "count", removed)
	}

	return removed
}

// InvalidateByMetadata removes every entry whose metadata contains all of
// the given key/value pairs exactly, and returns how many were removed.
// Entries without metadata never match.
func (s *Store) InvalidateByMetadata(match map[string]string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, entry := range s.index.Entries() {
		if metadataMatches(entry.Metadata, match) && s.removeEntryLocked(entry.Key) {
			removed++
		}
	}

	if removed > 0 {
		if err := s.index.Save(); err != nil {
			s.logger.Warn("invalidate: index snapshot", "err", err)
		}
		s.logger.Debug("invalidated by metadata", "count", removed)
	}

	return removed
}

func metadataMatches(meta, match map[string]string) bool {
	if len(meta) == 0 {
		return false
	}

	for key, want := range match {
		if got, ok := meta[key]; !ok || got != want {
			return false
		}
	}

	return true
}
