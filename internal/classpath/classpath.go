// Package classpath implements the binary search path used to resolve class
// files and resources: an ordered list of directories and jar/zip archives.
// The artifact's own output directories come first, then every dependency.
//
// Archives are opened lazily and their handles are kept in a bounded LRU so
// that long dependency lists do not exhaust file descriptors.
package classpath

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"model-declarator/internal/logging"
)

// DefaultArchiveCacheSize bounds the number of simultaneously open archives.
const DefaultArchiveCacheSize = 64

// ErrNotFound is returned when no entry of the path holds a resource.
var ErrNotFound = errors.New("resource not found on search path")

// Options configures a Path.
type Options struct {
	ArchiveCacheSize int
	Logger           *log.Logger
}

type entry struct {
	location string
	archive  bool
}

type archive struct {
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

// Path is an ordered, read-only search path.
type Path struct {
	entries  []entry
	archives *lru.Cache[string, *archive]
	logger   *log.Logger
}

// New builds a search path from directories and archive files. Entries that
// do not exist are dropped with a debug diagnostic, the same way a JVM class
// loader ignores them.
func New(locations []string, opts Options) (*Path, error) {
	size := opts.ArchiveCacheSize
	if size <= 0 {
		size = DefaultArchiveCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	cache, err := lru.NewWithEvict[string, *archive](size, func(_ string, a *archive) {
		_ = a.rc.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("classpath: archive cache: %w", err)
	}
	p := &Path{archives: cache, logger: logger}
	seen := make(map[string]struct{}, len(locations))
	for _, loc := range locations {
		abs, err := filepath.Abs(loc)
		if err != nil {
			return nil, fmt.Errorf("classpath: %s: %w", loc, err)
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("skipping missing search path entry", "path", abs)
				continue
			}
			return nil, fmt.Errorf("classpath: %s: %w", abs, err)
		}
		p.entries = append(p.entries, entry{location: abs, archive: !info.IsDir()})
	}
	return p, nil
}

// Entries returns the resolved locations in search order.
func (p *Path) Entries() []string {
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.location
	}
	return out
}

// Read returns the content of the first resource named name (slash-separated,
// relative to every entry root) together with the entry it came from.
func (p *Path) Read(name string) ([]byte, string, error) {
	name = cleanName(name)
	for _, e := range p.entries {
		data, ok, err := p.readFrom(e, name)
		if err != nil {
			return nil, e.location, err
		}
		if ok {
			return data, e.location, nil
		}
	}
	return nil, "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Resource is one match of FindAll.
type Resource struct {
	Origin string // search path entry the resource was found in
	Data   []byte
}

// FindAll returns every resource named name across all entries, in search
// order. Entries that cannot be read are logged and skipped.
func (p *Path) FindAll(name string) []Resource {
	name = cleanName(name)
	var out []Resource
	for _, e := range p.entries {
		data, ok, err := p.readFrom(e, name)
		if err != nil {
			p.logger.Warn("skipping unreadable search path entry", "path", e.location, "resource", name, "err", err)
			continue
		}
		if ok {
			out = append(out, Resource{Origin: e.location, Data: data})
		}
	}
	return out
}

// Close releases every open archive handle.
func (p *Path) Close() error {
	p.archives.Purge()
	return nil
}

func (p *Path) readFrom(e entry, name string) ([]byte, bool, error) {
	if !e.archive {
		full := filepath.Join(e.location, filepath.FromSlash(name))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			return nil, false, nil
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	}
	a, err := p.openArchive(e.location)
	if err != nil {
		return nil, false, err
	}
	f, ok := a.files[name]
	if !ok {
		return nil, false, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, false, fmt.Errorf("%s!/%s: %w", e.location, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("%s!/%s: %w", e.location, name, err)
	}
	return data, true, nil
}

func (p *Path) openArchive(location string) (*archive, error) {
	if a, ok := p.archives.Get(location); ok {
		return a, nil
	}
	rc, err := zip.OpenReader(location)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", location, err)
	}
	a := &archive{rc: rc, files: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		a.files[cleanName(f.Name)] = f
	}
	p.archives.Add(location, a)
	return a, nil
}

func cleanName(name string) string {
	name = path.Clean("/" + filepath.ToSlash(name))
	return name[1:]
}
