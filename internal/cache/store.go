package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
)

// Store is the cache façade combining the entry index, blob store,
// serializer and LRU eviction. All mutating operations and statistics reads
// execute under a single store-wide lock; the index, byte budget and
// counters form one unit of consistency.
type Store struct {
	cfg    *Config
	budget int64

	mu     sync.Mutex
	index  *Index
	blobs  *BlobStore
	ser    *Serializer
	stats  statsCollector
	closed bool

	// workers bounds CPU-heavy serialization in the context path.
	workers *semaphore.Weighted

	sweepTicker *time.Ticker
	sweepStop   chan struct{}
	sweepWg     sync.WaitGroup

	logger *log.Logger
}

// New creates a store from the given configuration and loads any existing
// index snapshot. A nil config uses defaults; an empty CacheDir resolves to
// the user cache directory.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		cfg.CacheDir = filepath.Join(base, "contentcache")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ser, err := NewSerializer(cfg.EnableCompression, cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	blobs, err := NewBlobStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	logger := log.WithPrefix("cache")

	index := NewIndex(filepath.Join(cfg.CacheDir, indexFileName))
	if err := index.Load(); err != nil {
		// Unreadable snapshot: start over instead of failing startup.
		logger.Warn("failed to load cache index, starting empty", "err", err)
		index = NewIndex(filepath.Join(cfg.CacheDir, indexFileName))
	}

	s := &Store{
		cfg:     cfg,
		budget:  cfg.maxSizeBytes(),
		index:   index,
		blobs:   blobs,
		ser:     ser,
		workers: semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		logger:  logger,
	}

	if cfg.SweepInterval > 0 {
		s.startSweep()
	}

	return s, nil
}

// Set serializes and stores a value under a key. The ttl controls expiry:
// DefaultTTL applies the store default, NoExpiry disables TTL expiry, and
// any positive duration sets an absolute expiry. Metadata is kept with the
// entry for policies and invalidation but never interpreted by the store.
//
// Set returns false on any I/O or serialization failure; the key is then
// absent from the index.
func (s *Store) Set(key string, value any, ttl time.Duration, metadata map[string]string) bool {
	data, compressed, err := s.ser.Encode(value)
	if err != nil {
		s.logger.Warn("set failed: serialize", "key", key, "err", err)
		return false
	}

	return s.setBytes(key, data, compressed, ttl, metadata)
}

// SetContext is Set with the CPU-heavy serialization stage gated by the
// store's worker pool. The context bounds only the wait for a pool slot; a
// mutation that has started always completes.
func (s *Store) SetContext(ctx context.Context, key string, value any, ttl time.Duration, metadata map[string]string) bool {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		s.logger.Warn("set abandoned waiting for worker", "key", key, "err", err)
		return false
	}

	data, compressed, err := s.ser.Encode(value)
	s.workers.Release(1)

	if err != nil {
		s.logger.Warn("set failed: serialize", "key", key, "err", err)
		return false
	}

	return s.setBytes(key, data, compressed, ttl, metadata)
}

func (s *Store) setBytes(key string, data []byte, compressed bool, ttl time.Duration, metadata map[string]string) bool {
	now := time.Now()

	var expiresAt time.Time
	switch {
	case ttl == DefaultTTL:
		if s.cfg.DefaultTTL > 0 {
			expiresAt = now.Add(s.cfg.DefaultTTL)
		}
	case ttl > 0:
		expiresAt = now.Add(ttl)
	}
	// Negative ttl (NoExpiry): no expiry time.

	size := int64(len(data))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	if size > s.budget {
		s.logger.Warn("set rejected: value exceeds cache budget",
			"key", key, "size", size, "budget", s.budget)
		return false
	}

	// Replace any previous entry first so capacity accounting sees only
	// the incoming size.
	replaced := s.index.Delete(key)

	s.ensureCapacityLocked(size)

	if err := s.blobs.Write(key, data); err != nil {
		s.logger.Warn("set failed: blob write", "key", key, "err", err)
		if replaced {
			_ = s.blobs.Remove(key)
		}
		return false
	}

	s.index.Put(&Entry{
		Key:          key,
		SizeBytes:    size,
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    expiresAt,
		Compressed:   compressed,
		Metadata:     metadata,
	})

	if err := s.index.Save(); err != nil {
		s.logger.Warn("set failed: index snapshot", "key", key, "err", err)
		s.index.Delete(key)
		_ = s.blobs.Remove(key)
		return false
	}

	return true
}

// Get returns the value stored under a key. A missing key, an expired
// entry, or an unreadable blob all count as a miss; corrupt entries are
// purged so the store self-heals on the next read.
func (s *Store) Get(key string) (any, bool) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getLocked(key, start)
}

// GetDefault returns the value stored under a key, or def on a miss.
func (s *Store) GetDefault(key string, def any) any {
	if value, ok := s.Get(key); ok {
		return value
	}
	return def
}

// GetContext is Get with deserialization gated by the store's worker pool.
// The context bounds only the wait for a pool slot.
func (s *Store) GetContext(ctx context.Context, key string) (any, bool) {
	if err := s.workers.Acquire(ctx, 1); err != nil {
		s.logger.Warn("get abandoned waiting for worker", "key", key, "err", err)
		return nil, false
	}
	defer s.workers.Release(1)

	return s.Get(key)
}

// GetWithEntry returns the value stored under a key along with a copy of
// its index entry, for caller introspection.
func (s *Store) GetWithEntry(key string) (any, Entry, bool) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.getLocked(key, start)
	if !ok {
		return nil, Entry{}, false
	}

	entry, _ := s.index.Get(key)
	return value, *entry, true
}

func (s *Store) getLocked(key string, start time.Time) (any, bool) {
	if s.closed {
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}

	entry, ok := s.index.Get(key)
	if !ok {
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}

	now := time.Now()
	if entry.Expired(now) {
		s.removeEntryLocked(key)
		s.stats.expirations++
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}

	data, err := s.blobs.Read(key)
	if err != nil {
		s.logger.Warn("purging entry with unreadable blob", "key", key, "err", err)
		s.removeEntryLocked(key)
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}

	value, err := s.ser.Decode(data, entry.Compressed)
	if err != nil {
		s.logger.Warn("purging corrupted entry", "key", key, "err", err)
		s.removeEntryLocked(key)
		s.stats.recordMiss(time.Since(start))
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccessed = now

	s.stats.recordHit(time.Since(start))
	return value, true
}

// Contains reports whether a live, unexpired entry exists for a key without
// bumping its access metadata.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index.Get(key)
	return ok && !entry.Expired(time.Now())
}

// Keys returns all keys currently in the index, in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Keys()
}

// Delete removes a key's entry and blob. It is idempotent and reports
// whether the key was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.removeEntryLocked(key) {
		return false
	}

	if err := s.index.Save(); err != nil {
		s.logger.Warn("delete: index snapshot", "key", key, "err", err)
	}

	return true
}

// Clear removes every entry and blob and returns how many entries were
// removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := s.index.Clear()

	if err := s.blobs.RemoveAll(); err != nil {
		s.logger.Warn("clear: blob removal", "err", err)
	}

	if err := s.index.Save(); err != nil {
		s.logger.Warn("clear: index snapshot", "err", err)
	}

	return count
}

// Sweep removes every TTL-expired entry and persists the snapshot when
// anything was removed. The background sweep calls this on a fixed
// interval; it is also safe to call directly.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0

	for _, entry := range s.index.Entries() {
		if entry.Expired(now) {
			s.removeEntryLocked(entry.Key)
			s.stats.expirations++
			removed++
		}
	}

	if removed > 0 {
		if err := s.index.Save(); err != nil {
			s.logger.Warn("sweep: index snapshot", "err", err)
		}
	}

	return removed
}

// Size returns the sum of serialized payload sizes over all entries.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Size()
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Len()
}

// Close stops the background sweep and persists a final index snapshot.
// Close is safe to call concurrently; every call after the first returns
// ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	ticker, stop := s.sweepTicker, s.sweepStop
	s.sweepTicker = nil
	s.mu.Unlock()

	// Join the sweeper before the final snapshot so it cannot mutate the
	// index afterwards. The wait must happen unlocked; Sweep takes the
	// store lock.
	if ticker != nil {
		close(stop)
		s.sweepWg.Wait()
		ticker.Stop()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index.Save()
}

// removeEntryLocked drops a key's entry and blob without persisting the
// snapshot. Must be called with the store lock held.
func (s *Store) removeEntryLocked(key string) bool {
	if !s.index.Delete(key) {
		return false
	}

	if err := s.blobs.Remove(key); err != nil {
		s.logger.Warn("failed to remove blob", "key", key, "err", err)
	}

	return true
}

func (s *Store) startSweep() {
	s.sweepTicker = time.NewTicker(s.cfg.SweepInterval)
	s.sweepStop = make(chan struct{})
	s.sweepWg.Add(1)

	ticker, stop := s.sweepTicker, s.sweepStop
	go func() {
		defer s.sweepWg.Done()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.Debug("sweep removed expired entries", "count", n)
				}
			case <-stop:
				return
			}
		}
	}()
}
