package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBlobStore_WriteReadRemove(t *testing.T) {
	blobs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	key := "content:article:42"
	payload := []byte("serialized article body")

	if err := blobs.Write(key, payload); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := blobs.Read(key)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Read mismatch: got %q, want %q", got, payload)
	}

	if err := blobs.Remove(key); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := blobs.Read(key); err == nil {
		t.Error("Read succeeded after Remove")
	}

	// Removing an absent key is not an error.
	if err := blobs.Remove(key); err != nil {
		t.Errorf("Second Remove failed: %v", err)
	}
}

func TestBlobStore_PathSharding(t *testing.T) {
	root := t.TempDir()
	blobs, err := NewBlobStore(root)
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	path := blobs.Path("some-key")

	rel, err := filepath.Rel(root, path)
	if err != nil {
		t.Fatalf("Path not under root: %v", err)
	}

	shard, name := filepath.Split(rel)
	shard = strings.TrimSuffix(shard, string(filepath.Separator))

	if len(shard) != 2 {
		t.Errorf("Shard directory %q should be 2 hex chars", shard)
	}
	if !strings.HasSuffix(name, ".cache") {
		t.Errorf("Blob file %q should have .cache suffix", name)
	}
	if hexName := strings.TrimSuffix(name, ".cache"); len(hexName) != 32 {
		t.Errorf("Blob name %q should be a 128-bit hex hash", hexName)
	}
	if !strings.HasPrefix(name, shard) {
		t.Errorf("Shard %q should be the hash prefix of %q", shard, name)
	}

	// Same key, same path.
	if blobs.Path("some-key") != path {
		t.Error("Path is not deterministic")
	}
	if blobs.Path("other-key") == path {
		t.Error("Distinct keys mapped to the same path")
	}
}

func TestBlobStore_Overwrite(t *testing.T) {
	blobs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	if err := blobs.Write("k", []byte("first")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := blobs.Write("k", []byte("second")); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	got, err := blobs.Read("k")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Got %q after overwrite, want %q", got, "second")
	}
}

func TestBlobStore_RemoveAllKeepsRootFiles(t *testing.T) {
	root := t.TempDir()
	blobs, err := NewBlobStore(root)
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if err := blobs.Write(key, []byte(key)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// The index snapshot lives at the root and must survive blob removal.
	indexPath := filepath.Join(root, indexFileName)
	if err := os.WriteFile(indexPath, []byte("{}"), 0o644); err != nil {
		t.Fatalf("Failed to write index file: %v", err)
	}

	if err := blobs.RemoveAll(); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	for _, key := range []string{"a", "b", "c"} {
		if _, err := blobs.Read(key); err == nil {
			t.Errorf("Blob %q survived RemoveAll", key)
		}
	}

	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("Index snapshot should survive RemoveAll: %v", err)
	}
}
