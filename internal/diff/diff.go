// Package diff renders unified diffs between the descriptor on disk and the
// one a run would write. It uses github.com/pmezard/go-difflib/difflib to
// produce classic unified patches (---/+++ headers, @@ hunks, lines prefixed
// with ' ', '-', '+').
package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Options controls patch generation behavior.
type Options struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded,
	// a minimal placeholder patch is returned and oversize=true.
	// 0 means "no limit".
	MaxBytes int

	// Context controls the number of context lines in unified hunks.
	// If 0, default to 3.
	Context int
}

// Unified produces a unified patch for a↦b. Identical inputs yield "".
func Unified(aName, bName string, a, b []byte, opt Options) (body string, oversize bool) {
	if opt.MaxBytes > 0 && (len(a)+len(b)) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: aName,
		ToFile:   bName,
		Context:  contextLines(opt),
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// Added produces a patch that adds the entire content b (no old version).
func Added(bName string, b []byte, opt Options) (string, bool) {
	if opt.MaxBytes > 0 && len(b) > opt.MaxBytes {
		return omitted("/dev/null", bName), true
	}
	u := difflib.UnifiedDiff{
		A:        []string{},
		B:        splitLinesKeepNL(string(b)),
		FromFile: "/dev/null",
		ToFile:   bName,
		Context:  contextLines(opt),
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil || s == "" {
		return omitted("/dev/null", bName), false
	}
	return s, false
}

func contextLines(opt Options) int {
	if opt.Context <= 0 {
		return 3
	}
	return opt.Context
}

// splitLinesKeepNL splits into lines and keeps newline characters. The
// descriptor has no trailing newline, so its last line is terminated here
// to keep difflib from gluing it to the next hunk line.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	if last := lines[len(lines)-1]; last == "" {
		lines = lines[:len(lines)-1]
	} else if !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}

// omitted returns a compact placeholder when size limits are exceeded.
func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
