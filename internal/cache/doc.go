// Package cache implements a persistent, size-bounded key/value store with
// TTL expiry and LRU eviction. Values are serialized to disk blobs, optionally
// zstd-compressed, and tracked by an in-memory index persisted as a JSON
// snapshot.
package cache
