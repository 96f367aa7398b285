// Package classify decides, from structural metadata alone, whether a type
// is a model Entity (transitively implements the entity marker interface),
// an Enum (transitively extends the enumeration root) or Plain.
//
// Resolution is a memoized walk over type names. Every name is resolved at
// most once per Resolver; a name that is re-entered while still being
// resolved (a cyclic reference) yields Plain for that branch.
package classify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"model-declarator/internal/classfile"
	"model-declarator/internal/logging"
)

// Well-known names of the generic model.
const (
	DefaultEnumRoot          = "java.lang.Enum"
	DefaultEntityMarker      = "com.braintribe.model.generic.GenericEntity"
	DefaultForwardAnnotation = "com.braintribe.model.generic.annotation.ForwardDeclaration"
)

// DefaultPlatformPrefixes name packages that never live on the search path
// and can never reach the entity marker or (other than the root itself) the
// enumeration root.
var DefaultPlatformPrefixes = []string{"java.", "javax.", "jdk.", "sun."}

// ErrUnresolved is returned in strict mode for a reference that cannot be
// loaded.
var ErrUnresolved = errors.New("unresolved type reference")

// Kind is the structural kind of a type.
type Kind int

const (
	Plain Kind = iota
	Entity
	Enum
)

func (k Kind) String() string {
	switch k {
	case Entity:
		return "entity"
	case Enum:
		return "enum"
	default:
		return "plain"
	}
}

// Classification is the resolved kind of one type plus the model its
// ownership is redirected to, if any. ForwardTarget is only meaningful when
// IsModelType is true.
type Classification struct {
	Kind          Kind
	ForwardTarget string
}

// IsModelType reports whether the type takes part in the model.
func (c Classification) IsModelType() bool { return c.Kind == Entity || c.Kind == Enum }

// Forwarded reports whether a model type is owned by another model.
func (c Classification) Forwarded() bool { return c.IsModelType() && c.ForwardTarget != "" }

// Loader yields type metadata; *classfile.Reader satisfies it.
type Loader interface {
	Load(name string) (*classfile.Metadata, error)
}

// Options configures a Resolver. Zero values fall back to the defaults.
type Options struct {
	EnumRoot         string
	EntityMarker     string
	PlatformPrefixes []string
	// Strict turns unresolved references into errors instead of
	// negative results.
	Strict bool
	Logger *log.Logger
}

type state uint8

const (
	inProgress state = iota + 1
	done
)

type node struct {
	state state
	class Classification
}

// Resolver classifies type names. It is not safe for concurrent use and is
// meant to live for exactly one run.
type Resolver struct {
	loader     Loader
	opts       Options
	logger     *log.Logger
	nodes      map[string]*node
	unresolved map[string]struct{}
}

// NewResolver returns a Resolver backed by loader.
func NewResolver(loader Loader, opts Options) *Resolver {
	if opts.EnumRoot == "" {
		opts.EnumRoot = DefaultEnumRoot
	}
	if opts.EntityMarker == "" {
		opts.EntityMarker = DefaultEntityMarker
	}
	if opts.PlatformPrefixes == nil {
		opts.PlatformPrefixes = DefaultPlatformPrefixes
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{
		loader:     loader,
		opts:       opts,
		logger:     logger,
		nodes:      make(map[string]*node),
		unresolved: make(map[string]struct{}),
	}
}

// Classify returns the classification of name. In lenient mode the error is
// always nil; in strict mode it wraps ErrUnresolved for the first reference
// in the inheritance chain that could not be loaded.
func (r *Resolver) Classify(name string) (Classification, error) {
	if n, ok := r.nodes[name]; ok {
		if n.state == inProgress {
			r.logger.Debug("cyclic type reference", "type", name)
			return Classification{}, nil
		}
		return n.class, nil
	}
	if r.isPlatform(name) {
		r.nodes[name] = &node{state: done}
		return Classification{}, nil
	}

	n := &node{state: inProgress}
	r.nodes[name] = n
	c, err := r.resolve(name)
	if err != nil {
		delete(r.nodes, name)
		return Classification{}, err
	}
	n.class, n.state = c, done
	return c, nil
}

func (r *Resolver) resolve(name string) (Classification, error) {
	md, err := r.loader.Load(name)
	if err != nil {
		r.unresolved[name] = struct{}{}
		if r.opts.Strict {
			return Classification{}, fmt.Errorf("%w: %w", ErrUnresolved, err)
		}
		r.logger.Warn("cannot resolve type, treating as non-model", "type", name, "err", err)
		return Classification{}, nil
	}

	c := Classification{ForwardTarget: md.ForwardTarget}
	switch {
	case md.SuperName == r.opts.EnumRoot:
		c.Kind = Enum
	case contains(md.Interfaces, r.opts.EntityMarker):
		c.Kind = Entity
	default:
		c.Kind, err = r.inherited(md)
		if err != nil {
			return Classification{}, err
		}
	}
	return c, nil
}

// inherited propagates a positive result from the supertype (enum) or any
// interface (entity). The supertype is consulted first so that enum wins.
func (r *Resolver) inherited(md *classfile.Metadata) (Kind, error) {
	if md.HasSuper() {
		sc, err := r.Classify(md.SuperName)
		if err != nil {
			return Plain, err
		}
		if sc.Kind == Enum {
			return Enum, nil
		}
	}
	for _, iface := range md.Interfaces {
		ic, err := r.Classify(iface)
		if err != nil {
			return Plain, err
		}
		if ic.Kind == Entity {
			return Entity, nil
		}
	}
	return Plain, nil
}

func (r *Resolver) isPlatform(name string) bool {
	for _, p := range r.opts.PlatformPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Unresolved returns the sorted names that could not be loaded so far.
func (r *Resolver) Unresolved() []string {
	out := make([]string, 0, len(r.unresolved))
	for n := range r.unresolved {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolved reports how many names have a final classification.
func (r *Resolver) Resolved() int {
	n := 0
	for _, nd := range r.nodes {
		if nd.state == done {
			n++
		}
	}
	return n
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
