package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File stores each key as a file under a directory. Writes go through a temp
// file and rename, so readers never observe a torn value.
type File struct {
	dir string
}

// NewFile returns a File store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Get returns the value for key; ok is false when no file exists for it.
func (f *File) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.pathFor(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: read %q: %w", key, err)
	}
	return string(b), true, nil
}

// Set writes value for key atomically.
func (f *File) Set(key, value string) error {
	path := f.pathFor(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.WriteString(value)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr == nil {
			writeErr = closeErr
		}
		return fmt.Errorf("storage: write %q: %w", key, writeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("storage: write %q: %w", key, err)
	}
	return nil
}

// pathFor maps a key to a filename. Keys are mostly tame ("reportgen.x"), but
// anything outside a conservative character set is hashed so a key can never
// escape the store directory.
func (f *File) pathFor(key string) string {
	safe := true
	for _, r := range key {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_') {
			safe = false
			break
		}
	}
	name := key
	if !safe || key == "" || strings.HasPrefix(key, ".") {
		sum := sha256.Sum256([]byte(key))
		name = "k-" + hex.EncodeToString(sum[:8])
	}
	return filepath.Join(f.dir, name+".json")
}
