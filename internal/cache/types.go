package cache

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when a value exceeds the store's byte budget
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when cached data cannot be read back
	ErrCorrupted = errors.New("cache data corrupted")

	// ErrClosed is returned when operations are attempted on a closed store
	ErrClosed = errors.New("cache store closed")
)

// TTL sentinels for Set. Any positive duration sets an absolute expiry.
const (
	// DefaultTTL applies the store-wide default TTL.
	DefaultTTL time.Duration = 0

	// NoExpiry marks an entry as never expiring by TTL. It remains
	// subject to LRU eviction.
	NoExpiry time.Duration = -1
)

// Entry holds the index metadata for one cached value. The payload itself
// lives in the blob store; the index never contains values.
type Entry struct {
	Key          string            `json:"key"`
	SizeBytes    int64             `json:"size_bytes"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
	ExpiresAt    time.Time         `json:"expires_at,omitempty"`
	AccessCount  int64             `json:"access_count"`
	Compressed   bool              `json:"compressed"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	// Insertion sequence, used to break LRU ties. Not persisted;
	// reassigned in snapshot order on load.
	seq uint64
}

// Expired reports whether the entry's TTL has elapsed at the given time.
// A zero ExpiresAt means the entry never expires.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// KeyAccess pairs a key with its access count for stats reporting.
type KeyAccess struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Stats is a point-in-time snapshot of cache performance metrics.
type Stats struct {
	Entries    int64 `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
	Capacity   int64 `json:"capacity"`

	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`

	HitRate    float64       `json:"hit_rate"`
	AvgLatency time.Duration `json:"avg_latency"`

	// MostAccessed holds the top keys by access count, highest first.
	MostAccessed []KeyAccess `json:"most_accessed"`
}

// Config holds configuration for a cache store.
type Config struct {
	// CacheDir is the root directory for blobs and the index snapshot.
	CacheDir string `yaml:"cache_dir" env:"CONTENTCACHE_DIR"`

	// MaxSizeMB is the eviction budget for serialized payloads.
	MaxSizeMB int64 `yaml:"max_size_mb" env:"CONTENTCACHE_MAX_SIZE_MB" envDefault:"1024"`

	// DefaultTTL applies when a caller passes DefaultTTL to Set.
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CONTENTCACHE_DEFAULT_TTL" envDefault:"1h"`

	// EnableCompression turns zstd compression of large payloads on or off.
	EnableCompression bool `yaml:"enable_compression" env:"CONTENTCACHE_COMPRESSION" envDefault:"true"`

	// CompressionLevel is the zstd level (1-22) used when compression is on.
	CompressionLevel int `yaml:"compression_level" env:"CONTENTCACHE_COMPRESSION_LEVEL" envDefault:"3"`

	// SweepInterval is how often the background sweep removes expired
	// entries. Zero disables the sweep.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"CONTENTCACHE_SWEEP_INTERVAL" envDefault:"5m"`

	// MaxConcurrency bounds the worker pool used by the context variants
	// for serialization and compression.
	MaxConcurrency int `yaml:"max_concurrency" env:"CONTENTCACHE_MAX_CONCURRENCY" envDefault:"4"`

	// TopKeys is how many most-accessed keys a stats snapshot reports.
	TopKeys int `yaml:"top_keys" env:"CONTENTCACHE_TOP_KEYS" envDefault:"10"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSizeMB:         1024,
		DefaultTTL:        time.Hour,
		EnableCompression: true,
		CompressionLevel:  3,
		SweepInterval:     5 * time.Minute,
		MaxConcurrency:    4,
		TopKeys:           10,
	}
}

// Validate rejects configurations the store cannot run with.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir cannot be empty")
	}

	if c.MaxSizeMB <= 0 {
		return fmt.Errorf("max_size_mb must be positive, got %d", c.MaxSizeMB)
	}

	if c.DefaultTTL < 0 {
		return fmt.Errorf("default_ttl cannot be negative, got %v", c.DefaultTTL)
	}

	if c.EnableCompression && (c.CompressionLevel < 1 || c.CompressionLevel > 22) {
		return fmt.Errorf("compression_level must be between 1 and 22, got %d", c.CompressionLevel)
	}

	if c.SweepInterval < 0 {
		return fmt.Errorf("sweep_interval cannot be negative, got %v", c.SweepInterval)
	}

	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}

	if c.TopKeys < 0 {
		return fmt.Errorf("top_keys cannot be negative, got %d", c.TopKeys)
	}

	return nil
}

// maxSizeBytes converts the configured budget to bytes.
func (c *Config) maxSizeBytes() int64 {
	return c.MaxSizeMB * 1024 * 1024
}
