package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Layout: <root>/<pathKey>/index.json, root defaulting to ".model-declarator".
const (
	defaultCacheRoot = ".model-declarator"
	indexFileName    = "index.json"
)

// PathKey returns a short, stable identifier for an absolute project path.
func PathKey(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:12]
}

// CacheDir resolves the cache directory for the given absolute project path.
// If root is empty, it falls back to ".model-declarator".
func CacheDir(root, projectAbs string) string {
	if root == "" {
		root = defaultCacheRoot
	}
	return filepath.Join(root, PathKey(projectAbs))
}

// Load reads the snapshot from <dir>/index.json.
// If the file does not exist, it returns (nil, nil).
func Load(dir string) (*Snapshot, error) {
	b, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the snapshot atomically to <dir>/index.json.
func Save(dir string, s *Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return WriteFileAtomic(filepath.Join(dir, indexFileName), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	})
}

// Clear deletes the snapshot in dir and then dir itself. A missing snapshot
// is not an error; a dir still holding other files is.
func Clear(dir string) error {
	if err := os.Remove(filepath.Join(dir, indexFileName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("snapshot removed but %s remains: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes into a temporary file next to path and renames it
// into place, so readers never observe a partially written file. The parent
// directory must exist. The result has mode 0644.
func WriteFileAtomic(path string, write func(io.Writer) error) error {
	tmp, f, err := createTempFile(filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return err
	}
	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := write(f); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// createTempFile creates ".tmp-<base>-<rand>" in dir, returning its path and
// the open file. Caller is responsible for closing it.
func createTempFile(dir, base string) (string, *os.File, error) {
	f, err := os.CreateTemp(dir, ".tmp-"+base+"-")
	if err != nil {
		return "", nil, err
	}
	return f.Name(), f, nil
}
