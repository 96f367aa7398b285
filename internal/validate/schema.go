// Package validate checks an assembled model descriptor before it is
// written. All issues are collected and reported as one error.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"model-declarator/internal/classfile"
	"model-declarator/internal/descriptor"
	"model-declarator/internal/sortutil"
)

// Model validates:
//
//   - groupId and artifactId are non-empty; name is groupId:artifactId.
//   - hash is 32 lowercase hex chars (md5).
//   - every dependency has the form group:artifact.
//   - declared types are sorted, unique and well-formed binary names.
//   - each forward bucket is sorted and unique, and no type is both declared
//     and forwarded.
func Model(m *descriptor.Model) error {
	var errs errlist
	if m == nil {
		errs.add("descriptor is nil")
		return errs.err()
	}

	for _, f := range []struct{ name, val string }{
		{"groupId", m.GroupID}, {"artifactId", m.ArtifactID},
	} {
		if strings.TrimSpace(f.val) == "" {
			errs.add("descriptor.%s must be non-empty", f.name)
		}
	}
	if want := m.GroupID + ":" + m.ArtifactID; m.Name != want {
		errs.add("descriptor.name must be %q, got %q", want, m.Name)
	}
	if !reHex32.MatchString(m.Hash) {
		errs.add("descriptor.hash must be 32 lowercase hex chars (md5), got %q", m.Hash)
	}

	for i, d := range m.Dependencies {
		if !reCoordinate.MatchString(d) {
			errs.add("dependencies[%d]: %q is not group:artifact", i, d)
		}
	}

	if !sortutil.StrictlySorted(m.DeclaredTypes) {
		errs.add("types must be sorted and unique")
	}
	declared := make(map[string]struct{}, len(m.DeclaredTypes))
	for i, t := range m.DeclaredTypes {
		if !classfile.IsBinaryName(t) {
			errs.add("types[%d]: %q is not a binary type name", i, t)
		}
		declared[t] = struct{}{}
	}

	for _, target := range m.ForwardTargets() {
		types := m.ForwardTypes[target]
		prefix := fmt.Sprintf("forward[%s]", target)
		if strings.TrimSpace(target) == "" {
			errs.add("%s: target model must be non-empty", prefix)
		}
		if target == m.Name {
			errs.add("%s: types cannot be forwarded to their own model", prefix)
		}
		if !sortutil.StrictlySorted(types) {
			errs.add("%s: types must be sorted and unique", prefix)
		}
		for _, t := range types {
			if _, dup := declared[t]; dup {
				errs.add("%s: %s is also declared locally", prefix, t)
			}
		}
	}

	return errs.err()
}

// --- helpers -----------------------------------------------------------------

var (
	reHex32      = regexp.MustCompile(`^[0-9a-f]{32}$`)
	reCoordinate = regexp.MustCompile(`^[^:\s]+:[^:\s]+$`)
)

// errlist aggregates multiple validation issues into a single error.
type errlist struct {
	msgs []string
}

func (e *errlist) add(format string, args ...any) {
	if e == nil {
		return
	}
	e.msgs = append(e.msgs, fmt.Sprintf(format, args...))
}

func (e *errlist) err() error {
	if e == nil || len(e.msgs) == 0 {
		return nil
	}
	return errors.New(strings.Join(e.msgs, "\n"))
}
