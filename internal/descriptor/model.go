// Package descriptor assembles the model descriptor of one artifact from the
// classified candidates and the forward index, fingerprints its inputs and
// persists it.
package descriptor

import (
	"sort"

	"model-declarator/internal/classify"
	"model-declarator/internal/forward"
)

// Identity is the coordinate of the artifact being described.
type Identity struct {
	GroupID    string
	ArtifactID string
	Version    string
	GlobalID   string
}

// Name is the model name, "groupId:artifactId".
func (id Identity) Name() string { return id.GroupID + ":" + id.ArtifactID }

// Model is the descriptor of one artifact. It is built once per run and not
// modified afterwards.
type Model struct {
	GroupID      string
	ArtifactID   string
	Version      string
	GlobalID     string
	Name         string
	Hash         string
	Dependencies []string
	// DeclaredTypes is sorted and free of duplicates.
	DeclaredTypes []string
	// ForwardTypes maps a target model to the sorted local types it owns.
	ForwardTypes map[string][]string
}

// Assemble builds the descriptor. Local model types without a forward target
// are declared here; those with one go to the bucket of their own target.
// Types that other artifacts forward to this model are declared as well.
// Dependencies keep the order they were supplied in. Hash is left empty.
func Assemble(id Identity, deps []string, classified map[string]classify.Classification, fwd forward.Index) *Model {
	m := &Model{
		GroupID:      id.GroupID,
		ArtifactID:   id.ArtifactID,
		Version:      id.Version,
		GlobalID:     id.GlobalID,
		Name:         id.Name(),
		Dependencies: append([]string(nil), deps...),
		ForwardTypes: map[string][]string{},
	}

	declared := map[string]struct{}{}
	buckets := forward.Index{}
	for name, c := range classified {
		if !c.IsModelType() {
			continue
		}
		if forwardedAway(c, m.Name) {
			buckets.Add(c.ForwardTarget, name)
			continue
		}
		declared[name] = struct{}{}
	}
	for _, t := range fwd.Types(m.Name) {
		// A local type forwarded elsewhere stays out of declared even if a
		// manifest claims it for this model.
		if c, ok := classified[t]; ok && forwardedAway(c, m.Name) {
			continue
		}
		declared[t] = struct{}{}
	}

	m.DeclaredTypes = sortedKeys(declared)
	for _, target := range buckets.Models() {
		m.ForwardTypes[target] = buckets.Types(target)
	}
	return m
}

// forwardedAway reports whether c is owned by a model other than self. A
// type forwarded to its own model is simply declared.
func forwardedAway(c classify.Classification, self string) bool {
	return c.Forwarded() && c.ForwardTarget != self
}

// ForwardTargets returns the sorted target models of m.ForwardTypes.
func (m *Model) ForwardTargets() []string {
	out := make([]string, 0, len(m.ForwardTypes))
	for k := range m.ForwardTypes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
