package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStats_MostAccessedOrdering(t *testing.T) {
	store := newTestStore(t, func(cfg *Config) {
		cfg.TopKeys = 2
	})

	store.Set("hot", "v", DefaultTTL, nil)
	store.Set("warm", "v", DefaultTTL, nil)
	store.Set("cold", "v", DefaultTTL, nil)

	for i := 0; i < 5; i++ {
		store.Get("hot")
	}
	for i := 0; i < 2; i++ {
		store.Get("warm")
	}

	top := store.Stats().MostAccessed
	if len(top) != 2 {
		t.Fatalf("Got %d top keys, want 2", len(top))
	}
	if top[0].Key != "hot" || top[0].Count != 5 {
		t.Errorf("Top key %+v, want hot/5", top[0])
	}
	if top[1].Key != "warm" || top[1].Count != 2 {
		t.Errorf("Second key %+v, want warm/2", top[1])
	}
}

func TestStats_SizeAndEntries(t *testing.T) {
	store := newTestStore(t, nil)

	store.Set("a", payload(300), NoExpiry, nil)
	store.Set("b", payload(200), NoExpiry, nil)

	stats := store.Stats()
	if stats.Entries != 2 {
		t.Errorf("Entries %d, want 2", stats.Entries)
	}
	if stats.TotalBytes != 500 {
		t.Errorf("TotalBytes %d, want 500", stats.TotalBytes)
	}
	if stats.Capacity != store.budget {
		t.Errorf("Capacity %d, want %d", stats.Capacity, store.budget)
	}
}

func TestStats_AvgLatencyTracked(t *testing.T) {
	store := newTestStore(t, nil)

	store.Set("k", "v", DefaultTTL, nil)
	store.Get("k")
	store.Get("absent")

	if store.Stats().AvgLatency <= 0 {
		t.Error("AvgLatency should be positive after reads")
	}
}

func TestStats_Export(t *testing.T) {
	store := newTestStore(t, nil)

	store.Set("k", "v", DefaultTTL, nil)
	store.Get("k")

	path := filepath.Join(t.TempDir(), "stats.json")
	if err := store.ExportStats(path); err != nil {
		t.Fatalf("ExportStats failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}

	var exported struct {
		Entries    int64     `json:"entries"`
		Hits       int64     `json:"hits"`
		ExportedAt time.Time `json:"exported_at"`
	}
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}

	if exported.Entries != 1 || exported.Hits != 1 {
		t.Errorf("Exported %+v, want 1 entry / 1 hit", exported)
	}
	if exported.ExportedAt.IsZero() {
		t.Error("Export timestamp missing")
	}
}
