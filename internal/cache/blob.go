package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore maps cache keys to on-disk payload files. Keys are hashed to a
// 128-bit hex name and sharded by the first two hex characters to bound
// directory fan-out.
type BlobStore struct {
	root string
}

// NewBlobStore creates a blob store rooted at the given directory.
func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &BlobStore{root: root}, nil
}

// Path returns the on-disk location for a key.
func (b *BlobStore) Path(key string) string {
	hash := sha256.Sum256([]byte(key))
	name := hex.EncodeToString(hash[:16])
	return filepath.Join(b.root, name[:2], name+".cache")
}

// Write stores a payload for a key, replacing any previous payload.
func (b *BlobStore) Write(key string, data []byte) error {
	path := b.Path(key)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}

	return writeFileAtomic(path, data)
}

// Read returns the payload stored for a key.
func (b *BlobStore) Read(key string) ([]byte, error) {
	return os.ReadFile(b.Path(key))
}

// Remove deletes the payload for a key. Removing an absent key is not an
// error.
func (b *BlobStore) Remove(key string) error {
	err := os.Remove(b.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveAll deletes every blob and shard directory, keeping the root.
func (b *BlobStore) RemoveAll() error {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := os.RemoveAll(filepath.Join(b.root, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}

// writeFileAtomic writes to a temp file first, then renames into place.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	return os.Rename(tempPath, path)
}
