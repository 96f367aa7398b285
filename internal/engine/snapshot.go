package engine

import (
	"sort"
	"time"

	"model-declarator/internal/cache"
)

// Snapshot condenses the result into the run snapshot kept between
// generations. Only model types are recorded.
func (r *Result) Snapshot(descriptorPath string, now time.Time) *cache.Snapshot {
	s := &cache.Snapshot{
		Model:         r.Model.Name,
		Hash:          r.Model.Hash,
		Created:       now.UTC().Format(time.RFC3339),
		Descriptor:    descriptorPath,
		FormatVersion: cache.FormatVersion,
		Types:         make([]cache.SnapType, 0, len(r.Classified)),
	}
	for name, c := range r.Classified {
		if !c.IsModelType() {
			continue
		}
		st := cache.SnapType{Name: name, Kind: c.Kind.String()}
		if c.Forwarded() && c.ForwardTarget != r.Model.Name {
			st.Target = c.ForwardTarget
		}
		s.Types = append(s.Types, st)
	}
	sort.Slice(s.Types, func(i, j int) bool { return s.Types[i].Name < s.Types[j].Name })
	return s
}
