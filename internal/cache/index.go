package cache

import (
	"encoding/json"
	"os"
	"sort"
)

// indexFileName is the snapshot file kept under the cache directory.
const indexFileName = "index.json"

// Index is the in-memory map from cache key to entry metadata, persisted as
// a JSON snapshot. It is not safe for concurrent use; the owning store's
// lock guards all access.
type Index struct {
	path    string
	entries map[string]*Entry
	size    int64
	nextSeq uint64
}

// NewIndex creates an empty index snapshotted at the given file path.
func NewIndex(path string) *Index {
	return &Index{
		path:    path,
		entries: make(map[string]*Entry),
	}
}

// Load replaces the index contents with the snapshot on disk. A missing
// snapshot leaves the index empty and is not an error.
func (ix *Index) Load() error {
	data, err := os.ReadFile(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if entries == nil {
		entries = make(map[string]*Entry)
	}

	// A damaged snapshot can carry JSON null values, which unmarshal to
	// nil entries. Drop them rather than failing the whole load.
	for key, entry := range entries {
		if entry == nil {
			delete(entries, key)
		}
	}

	ix.entries = entries
	ix.size = 0

	// Reassign insertion sequence deterministically, oldest first, so LRU
	// tie-breaking survives a restart.
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := entries[keys[i]], entries[keys[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return keys[i] < keys[j]
	})

	ix.nextSeq = 0
	for _, key := range keys {
		entry := entries[key]
		entry.seq = ix.nextSeq
		ix.nextSeq++
		ix.size += entry.SizeBytes
	}

	return nil
}

// Save rewrites the full snapshot atomically.
func (ix *Index) Save() error {
	data, err := json.Marshal(ix.entries)
	if err != nil {
		return err
	}

	return writeFileAtomic(ix.path, data)
}

// Get returns the entry for a key, if present.
func (ix *Index) Get(key string) (*Entry, bool) {
	entry, ok := ix.entries[key]
	return entry, ok
}

// Put inserts or replaces the entry for a key, assigning its insertion
// sequence and keeping the running size current.
func (ix *Index) Put(entry *Entry) {
	if old, ok := ix.entries[entry.Key]; ok {
		ix.size -= old.SizeBytes
	}

	entry.seq = ix.nextSeq
	ix.nextSeq++

	ix.entries[entry.Key] = entry
	ix.size += entry.SizeBytes
}

// Delete removes the entry for a key, reporting whether it was present.
func (ix *Index) Delete(key string) bool {
	entry, ok := ix.entries[key]
	if !ok {
		return false
	}

	delete(ix.entries, key)
	ix.size -= entry.SizeBytes
	return true
}

// Clear removes every entry and returns how many were removed.
func (ix *Index) Clear() int {
	count := len(ix.entries)
	ix.entries = make(map[string]*Entry)
	ix.size = 0
	return count
}

// Len returns the number of live entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Size returns the sum of SizeBytes over all entries.
func (ix *Index) Size() int64 {
	return ix.size
}

// Keys returns all keys in no particular order.
func (ix *Index) Keys() []string {
	keys := make([]string, 0, len(ix.entries))
	for key := range ix.entries {
		keys = append(keys, key)
	}
	return keys
}

// Entries returns the live entries in no particular order.
func (ix *Index) Entries() []*Entry {
	entries := make([]*Entry, 0, len(ix.entries))
	for _, entry := range ix.entries {
		entries = append(entries, entry)
	}
	return entries
}
