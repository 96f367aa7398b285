// Package walkwalk provides the deterministic candidate scanner: it walks the
// compiled-output directories of an artifact and maps every class file to its
// fully-qualified type name.
package walkwalk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClassExt is the extension of compiled type units.
const ClassExt = ".class"

// ErrNotDir is returned when a scan root exists but is not a directory.
var ErrNotDir = errors.New("scan root is not a directory")

// Candidate is one compiled type unit found by the scanner.
type Candidate struct {
	Name    string    // qualified name, segments joined with '.'
	Path    string    // absolute filesystem path of the unit
	ModTime time.Time // last modification time at scan time
}

// Options controls the scan.
type Options struct {
	// Ext overrides the unit extension (default ".class").
	Ext string
	// FollowSymlinks accepts symlinked unit files. Symlinked directories
	// are never descended into.
	FollowSymlinks bool
}

// Result is the outcome of one scan over a set of roots.
type Result struct {
	Candidates []Candidate // sorted by Name, names unique
	Duplicates []string    // names seen again under a later root (last root wins)
}

type walkState struct {
	opts  Options
	root  string
	seen  map[string]int // name -> index into files
	files []Candidate
	dups  []string
}

// Scan walks every root and returns all compiled units found. Any unreadable
// directory aborts the scan: a partial enumeration would yield an incorrect
// descriptor.
func Scan(roots []string, opts Options) (Result, error) {
	if opts.Ext == "" {
		opts.Ext = ClassExt
	}
	state := &walkState{opts: opts, seen: make(map[string]int)}
	for _, root := range roots {
		abs, err := resolveRoot(root)
		if err != nil {
			return Result{}, err
		}
		state.root = abs
		if err := filepath.WalkDir(abs, state.visit); err != nil {
			return Result{}, err
		}
	}
	sort.Slice(state.files, func(i, j int) bool { return state.files[i].Name < state.files[j].Name })
	sort.Strings(state.dups)
	return Result{Candidates: state.files, Duplicates: state.dups}, nil
}

func resolveRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("scan %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("scan %s: %w", abs, ErrNotDir)
	}
	return abs, nil
}

func (ws *walkState) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	if d.IsDir() {
		return nil
	}
	return ws.handleFile(path, d)
}

func (ws *walkState) handleFile(path string, d fs.DirEntry) error {
	if !strings.HasSuffix(d.Name(), ws.opts.Ext) {
		return nil
	}
	if !ws.opts.FollowSymlinks && isSymlink(d) {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	name, ok := ws.qualifiedName(path)
	if !ok {
		return nil
	}
	c := Candidate{Name: name, Path: path, ModTime: info.ModTime()}
	if i, dup := ws.seen[name]; dup {
		ws.dups = append(ws.dups, name)
		ws.files[i] = c
		return nil
	}
	ws.seen[name] = len(ws.files)
	ws.files = append(ws.files, c)
	return nil
}

// qualifiedName maps <root>/a/b/C.class to "a.b.C".
func (ws *walkState) qualifiedName(path string) (string, bool) {
	rel, err := filepath.Rel(ws.root, path)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	rel = strings.TrimSuffix(rel, ws.opts.Ext)
	if rel == "" {
		return "", false
	}
	return strings.ReplaceAll(rel, "/", "."), true
}

// isSymlink reports whether the DirEntry is a symlink (file or directory).
func isSymlink(d fs.DirEntry) bool {
	return d.Type()&fs.ModeSymlink != 0
}
