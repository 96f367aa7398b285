// Package engine runs one model-declaration pass: it scans the classes
// directories, classifies every candidate against the search path, merges the
// forward manifests found there and assembles the fingerprinted descriptor.
//
// All caches (class metadata, classifications, archive handles, forward
// index) belong to a single Run call; nothing is shared between runs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"model-declarator/internal/classfile"
	"model-declarator/internal/classify"
	"model-declarator/internal/classpath"
	"model-declarator/internal/descriptor"
	"model-declarator/internal/forward"
	"model-declarator/internal/logging"
	"model-declarator/internal/walkwalk"
)

// ErrIdentity is returned when the artifact coordinate is incomplete.
var ErrIdentity = errors.New("engine: group id and artifact id are required")

// Options describes one artifact and how to resolve it.
type Options struct {
	Identity     descriptor.Identity
	Dependencies []string

	// ClassesDirs are scanned for candidates and lead the search path.
	ClassesDirs []string
	// Classpath follows ClassesDirs on the search path, in order.
	Classpath []string
	// BuildDescriptor takes part in the fingerprint; it may not exist.
	BuildDescriptor string

	EnumRoot          string
	EntityMarker      string
	ForwardAnnotation string
	PlatformPrefixes  []string
	Strict            bool
	ArchiveCacheSize  int
	FollowSymlinks    bool

	Logger *log.Logger
}

// Stats summarizes a run.
type Stats struct {
	Candidates      int
	ClassesRead     int
	Resolved        int
	Manifests       int
	SkippedManifest int
	RejectedForward int
	Elapsed         time.Duration
}

// Result is the outcome of Run.
type Result struct {
	Model *descriptor.Model
	// Classified holds the classification of every candidate.
	Classified map[string]classify.Classification
	Candidates []walkwalk.Candidate
	Unresolved []string
	Duplicates []string
	Forward    forward.Index
	Stats      Stats
}

type session struct {
	opts     Options
	logger   *log.Logger
	path     *classpath.Path
	reader   *classfile.Reader
	resolver *classify.Resolver
}

func newSession(opts Options) (*session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.ForwardAnnotation == "" {
		opts.ForwardAnnotation = classify.DefaultForwardAnnotation
	}
	locations := make([]string, 0, len(opts.ClassesDirs)+len(opts.Classpath))
	locations = append(locations, opts.ClassesDirs...)
	locations = append(locations, opts.Classpath...)
	path, err := classpath.New(locations, classpath.Options{
		ArchiveCacheSize: opts.ArchiveCacheSize,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	reader := classfile.NewReader(path, opts.ForwardAnnotation)
	resolver := classify.NewResolver(reader, classify.Options{
		EnumRoot:         opts.EnumRoot,
		EntityMarker:     opts.EntityMarker,
		PlatformPrefixes: opts.PlatformPrefixes,
		Strict:           opts.Strict,
		Logger:           logger,
	})
	return &session{opts: opts, logger: logger, path: path, reader: reader, resolver: resolver}, nil
}

func (s *session) close() { _ = s.path.Close() }

// Run performs one pass. Scanning, hashing and strict-mode resolution
// failures abort it; unresolved references in lenient mode and malformed
// forward manifests are logged and skipped.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Identity.GroupID == "" || opts.Identity.ArtifactID == "" {
		return nil, ErrIdentity
	}
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	defer s.close()

	scan, err := walkwalk.Scan(opts.ClassesDirs, walkwalk.Options{
		Ext:            walkwalk.ClassExt,
		FollowSymlinks: opts.FollowSymlinks,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range scan.Duplicates {
		s.logger.Warn("type found in more than one classes dir, keeping the last", "type", d)
	}
	s.logger.Debug("scanned classes dirs", "dirs", len(opts.ClassesDirs), "candidates", len(scan.Candidates))

	classified := make(map[string]classify.Classification, len(scan.Candidates))
	for _, c := range scan.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cl, err := s.resolver.Classify(c.Name)
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", c.Name, err)
		}
		classified[c.Name] = cl
		if cl.IsModelType() {
			s.logger.Debug("model type", "type", c.Name, "kind", cl.Kind, "forward", cl.ForwardTarget)
		}
	}

	fwd, fst := forward.Resolve(s.path, s.logger)

	model := descriptor.Assemble(opts.Identity, opts.Dependencies, classified, fwd)
	model.Hash, err = descriptor.Fingerprint(opts.BuildDescriptor, scan.Candidates)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Model:      model,
		Classified: classified,
		Candidates: scan.Candidates,
		Unresolved: s.resolver.Unresolved(),
		Duplicates: scan.Duplicates,
		Forward:    fwd,
		Stats: Stats{
			Candidates:      len(scan.Candidates),
			ClassesRead:     s.reader.Loads(),
			Resolved:        s.resolver.Resolved(),
			Manifests:       fst.Manifests,
			SkippedManifest: fst.Skipped,
			RejectedForward: fst.Rejected,
			Elapsed:         time.Since(start),
		},
	}
	return res, nil
}
