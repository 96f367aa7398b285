package engine

import (
	"model-declarator/internal/classfile"
	"model-declarator/internal/classify"
)

// Inspection is what the search path knows about one type.
type Inspection struct {
	Name           string
	Metadata       *classfile.Metadata
	Classification classify.Classification
	Err            error
}

// Inspect loads and classifies names against the search path described by
// opts without scanning or assembling anything. Errors are reported per name.
func Inspect(opts Options, names []string) ([]Inspection, error) {
	s, err := newSession(opts)
	if err != nil {
		return nil, err
	}
	defer s.close()

	out := make([]Inspection, 0, len(names))
	for _, n := range names {
		in := Inspection{Name: n}
		in.Metadata, in.Err = s.reader.Load(n)
		if in.Err == nil {
			in.Classification, in.Err = s.resolver.Classify(n)
		}
		out = append(out, in)
	}
	return out, nil
}
