package sortutil

import "sort"

// SortedUnique returns a new slice with the input names sorted and
// duplicates removed. The original slice is not modified.
func SortedUnique(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	w := 0
	for i, s := range out {
		if i > 0 && s == out[w-1] {
			continue
		}
		out[w] = s
		w++
	}
	return out[:w]
}

// StrictlySorted reports whether names is sorted with no repeats.
func StrictlySorted(names []string) bool {
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			return false
		}
	}
	return true
}
