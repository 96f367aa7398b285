// Package cache defines the run snapshot saved after each generation and the
// type delta between two snapshots.
package cache

// FormatVersion is written into every snapshot.
const FormatVersion = "1"

// SnapType is one model type of a run. Target is the model it is forwarded
// to, or empty when it is declared by the model itself.
type SnapType struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Target string `json:"target,omitempty"`
}

// Snapshot captures the outcome of one generation.
// Created is an RFC 3339 timestamp (UTC).
type Snapshot struct {
	Model         string     `json:"model"`
	Hash          string     `json:"hash"`
	Created       string     `json:"created"`
	Descriptor    string     `json:"descriptor,omitempty"`
	FormatVersion string     `json:"formatVersion,omitempty"`
	Types         []SnapType `json:"types"`
}

// Delta describes how the model types changed between two snapshots:
//
//   - Added: types present now that were not before
//   - Removed: types no longer present
//   - Changed: types whose kind or forward target differs
type Delta struct {
	Added   []SnapType   `json:"added"`
	Removed []SnapType   `json:"removed"`
	Changed []TypeChange `json:"changed"`
	// HashChanged is set when the fingerprint differs.
	HashChanged bool `json:"hashChanged"`
}

// TypeChange pairs the previous and current entry of one type.
type TypeChange struct {
	Name   string   `json:"name"`
	Before SnapType `json:"before"`
	After  SnapType `json:"after"`
}

// Empty reports whether no type changed.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}
