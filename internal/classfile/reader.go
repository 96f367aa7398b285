package classfile

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Reader.Load when a type cannot be resolved:
// the resource is missing, unreadable or does not parse.
var ErrNotFound = errors.New("type not found")

// Source locates class resources by slash-separated name.
// *classpath.Path satisfies it.
type Source interface {
	Read(name string) ([]byte, string, error)
}

type loadResult struct {
	md  *Metadata
	err error
}

// Reader resolves type names to Metadata on a Source. Results (including
// misses) are cached for the lifetime of the Reader, which is one run.
type Reader struct {
	src     Source
	forward string
	cache   map[string]loadResult
	loads   int
}

// NewReader returns a Reader that extracts the forward annotation named
// forwardAnnotation (dotted) from every class it loads.
func NewReader(src Source, forwardAnnotation string) *Reader {
	return &Reader{src: src, forward: forwardAnnotation, cache: make(map[string]loadResult)}
}

// Load returns the metadata of the dotted type name. Any failure is reported
// as ErrNotFound wrapping the cause; the caller decides whether that is fatal.
func (r *Reader) Load(name string) (*Metadata, error) {
	if res, ok := r.cache[name]; ok {
		return res.md, res.err
	}
	md, err := r.load(name)
	r.cache[name] = loadResult{md: md, err: err}
	return md, err
}

// Loads reports how many distinct names were read from the source.
func (r *Reader) Loads() int { return r.loads }

func (r *Reader) load(name string) (*Metadata, error) {
	r.loads++
	data, origin, err := r.src.Read(ResourceName(name))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrNotFound, err)
	}
	md, err := Parse(bytes.NewReader(data), r.forward)
	if err != nil {
		return nil, fmt.Errorf("%s (%s): %w: %w", name, origin, ErrNotFound, err)
	}
	if md.Name != name {
		return nil, fmt.Errorf("%s (%s): %w: declares %s", name, origin, ErrNotFound, md.Name)
	}
	return md, nil
}
