package cache

import "sort"

// BuildDelta computes the type changes from prev to curr. A nil prev means
// every current type is added.
func BuildDelta(prev *Snapshot, curr *Snapshot) Delta {
	if delta, ok := handleTrivialDelta(prev, curr); ok {
		return delta
	}

	prevMap := indexByName(prev.Types)
	currMap := indexByName(curr.Types)

	removed, changed := classifyRemovedAndChanged(prevMap, currMap)
	delta := Delta{
		Added:       classifyAdded(prevMap, currMap),
		Removed:     removed,
		Changed:     changed,
		HashChanged: prev.Hash != curr.Hash,
	}
	sortDelta(&delta)
	return delta
}

func handleTrivialDelta(prev, curr *Snapshot) (Delta, bool) {
	var d Delta
	switch {
	case curr == nil:
		if prev != nil {
			d.Removed = append(d.Removed, prev.Types...)
			d.HashChanged = true
		}
	case prev == nil:
		d.Added = append(d.Added, curr.Types...)
		d.HashChanged = true
	default:
		return Delta{}, false
	}
	sortDelta(&d)
	return d, true
}

func indexByName(types []SnapType) map[string]SnapType {
	m := make(map[string]SnapType, len(types))
	for _, t := range types {
		m[t.Name] = t
	}
	return m
}

func classifyRemovedAndChanged(prev, curr map[string]SnapType) ([]SnapType, []TypeChange) {
	removed := make([]SnapType, 0)
	changed := make([]TypeChange, 0)
	for name, pt := range prev {
		if ct, ok := curr[name]; ok {
			if pt != ct {
				changed = append(changed, TypeChange{Name: name, Before: pt, After: ct})
			}
			continue
		}
		removed = append(removed, pt)
	}
	return removed, changed
}

func classifyAdded(prev, curr map[string]SnapType) []SnapType {
	added := make([]SnapType, 0)
	for name, ct := range curr {
		if _, ok := prev[name]; !ok {
			added = append(added, ct)
		}
	}
	return added
}

func sortDelta(d *Delta) {
	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Name < d.Added[j].Name })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].Name < d.Removed[j].Name })
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Name < d.Changed[j].Name })
}
