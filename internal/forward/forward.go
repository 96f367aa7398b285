// Package forward reads and writes forward-declaration manifests: resources
// in which an artifact declares that some of its types belong to another
// model. Every manifest on the search path is merged into one Index keyed by
// target model name.
//
// Manifest layout:
//
//	<model-forward-declaration>
//	  <for-model name="group:artifact">
//	    <type>a.b.C</type>
//	  </for-model>
//	</model-forward-declaration>
package forward

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"model-declarator/internal/classfile"
	"model-declarator/internal/classpath"
	"model-declarator/internal/logging"
)

// ManifestName is the fixed resource name looked up on the search path.
const ManifestName = "model-forward-declaration.xml"

// Entry is one for-model block.
type Entry struct {
	Model string
	Types []string
}

type xmlManifest struct {
	XMLName xml.Name
	Models  []xmlForModel `xml:"for-model"`
}

type xmlForModel struct {
	Name  string   `xml:"name,attr"`
	Types []string `xml:"type"`
}

// ParseManifest decodes one manifest. Only for-model children of the
// document element and their type children are considered; surrounding
// whitespace in type names is ignored.
func ParseManifest(r io.Reader) ([]Entry, error) {
	var m xmlManifest
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parse forward manifest: %w", err)
	}
	out := make([]Entry, 0, len(m.Models))
	for _, fm := range m.Models {
		e := Entry{Model: strings.TrimSpace(fm.Name)}
		for _, t := range fm.Types {
			if t = strings.TrimSpace(t); t != "" {
				e.Types = append(e.Types, t)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Index maps a target model name to the set of types claimed for it.
type Index map[string]map[string]struct{}

// Add unions types into the bucket of model. A model with no types still
// gets an (empty) bucket.
func (ix Index) Add(model string, types ...string) {
	set, ok := ix[model]
	if !ok {
		set = make(map[string]struct{}, len(types))
		ix[model] = set
	}
	for _, t := range types {
		set[t] = struct{}{}
	}
}

// Types returns the sorted types claimed for model.
func (ix Index) Types(model string) []string {
	set := ix[model]
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Models returns the sorted model names.
func (ix Index) Models() []string {
	out := make([]string, 0, len(ix))
	for m := range ix {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Finder enumerates resources by name; *classpath.Path satisfies it.
type Finder interface {
	FindAll(name string) []classpath.Resource
}

// Stats summarizes one Resolve pass.
type Stats struct {
	Manifests int
	Skipped   int // unreadable manifests
	Rejected  int // entries dropped for a bad model or type name
}

// Resolve reads every manifest named ManifestName reachable through f and
// merges them. A malformed manifest is logged and skipped; it never aborts
// resolution of the others. Within a readable manifest, a for-model block
// without a name and a type that is not a binary type name are dropped the
// same way.
func Resolve(f Finder, logger *log.Logger) (Index, Stats) {
	if logger == nil {
		logger = logging.Discard()
	}
	ix := Index{}
	var st Stats
	for _, res := range f.FindAll(ManifestName) {
		entries, err := ParseManifest(bytes.NewReader(res.Data))
		if err != nil {
			st.Skipped++
			logger.Warn("skipping malformed forward manifest", "origin", res.Origin, "err", err)
			continue
		}
		st.Manifests++
		for _, e := range entries {
			if e.Model == "" {
				st.Rejected++
				logger.Warn("skipping forward declaration without model name", "origin", res.Origin)
				continue
			}
			types := make([]string, 0, len(e.Types))
			for _, t := range e.Types {
				if !classfile.IsBinaryName(t) {
					st.Rejected++
					logger.Warn("skipping invalid forward type", "origin", res.Origin, "model", e.Model, "type", t)
					continue
				}
				types = append(types, t)
			}
			ix.Add(e.Model, types...)
		}
		logger.Debug("read forward manifest", "origin", res.Origin, "models", len(entries))
	}
	return ix, st
}

// WriteManifest renders forward types (target model -> types) in the
// manifest layout, models and types sorted.
func WriteManifest(w io.Writer, forwardTypes map[string][]string) error {
	ix := Index{}
	for m, ts := range forwardTypes {
		ix.Add(m, ts...)
	}
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n")
	sb.WriteString("<model-forward-declaration>\n")
	for _, m := range ix.Models() {
		sb.WriteString("  <for-model name=\"")
		sb.WriteString(escape(m))
		sb.WriteString("\">\n")
		for _, t := range ix.Types(m) {
			sb.WriteString("    <type>")
			sb.WriteString(escape(t))
			sb.WriteString("</type>\n")
		}
		sb.WriteString("  </for-model>\n")
	}
	sb.WriteString("</model-forward-declaration>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
