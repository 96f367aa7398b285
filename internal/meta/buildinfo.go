// Package meta detects the coordinate of a JVM project (Maven or Gradle) and
// the build descriptor that takes part in the change fingerprint.
//
// Parsing is best-effort: absent or partial files yield empty fields, never
// errors. Explicit configuration always wins over what is detected here.
package meta

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// UnspecifiedVersion is what Gradle reports for a project that never sets
// a version.
const UnspecifiedVersion = "unspecified"

// Info is what could be learned from the project's build files.
type Info struct {
	Build           string // "maven"|"gradle"|"" (unknown)
	GroupID         string
	ArtifactID      string
	Version         string
	BuildDescriptor string // absolute path of pom.xml/build.gradle(.kts)
	// Dependencies are "group:artifact" of compile-scope dependencies, in
	// declaration order.
	Dependencies []string
}

// Detect inspects root. Maven wins over Gradle when both are present.
func Detect(root string) Info {
	absRoot, _ := filepath.Abs(root)

	if p := firstExisting(absRoot, "pom.xml"); p != "" {
		if inf, ok := detectMaven(absRoot, p); ok {
			return inf
		}
	}
	if p := firstExisting(absRoot, "build.gradle", "build.gradle.kts"); p != "" {
		if inf, ok := detectGradle(absRoot, p); ok {
			return inf
		}
	}
	// Without any build file the fingerprint still refers to build.gradle,
	// which then counts as absent.
	return Info{
		ArtifactID:      filepath.Base(absRoot),
		Version:         UnspecifiedVersion,
		BuildDescriptor: filepath.Join(absRoot, "build.gradle"),
	}
}

// ------------------------------ Maven ----------------------------------------

type pomXML struct {
	XMLName      xml.Name        `xml:"project"`
	GroupID      string          `xml:"groupId"`
	ArtifactID   string          `xml:"artifactId"`
	Version      string          `xml:"version"`
	Parent       pomParent       `xml:"parent"`
	Dependencies []pomDependency `xml:"dependencies>dependency"`
}

type pomParent struct {
	GroupID string `xml:"groupId"`
	Version string `xml:"version"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Scope      string `xml:"scope"`
}

func detectMaven(root, pomPath string) (Info, bool) {
	b, err := os.ReadFile(pomPath)
	if err != nil {
		return Info{}, false
	}
	var p pomXML
	if err := xml.Unmarshal(b, &p); err != nil {
		return Info{}, false
	}

	var deps []string
	for _, d := range p.Dependencies {
		switch strings.TrimSpace(d.Scope) {
		case "", "compile":
		default:
			continue
		}
		g, a := strings.TrimSpace(d.GroupID), strings.TrimSpace(d.ArtifactID)
		if g != "" && a != "" {
			deps = append(deps, g+":"+a)
		}
	}

	return Info{
		Build:           "maven",
		GroupID:         firstNonEmpty(p.GroupID, p.Parent.GroupID),
		ArtifactID:      firstNonEmpty(p.ArtifactID, filepath.Base(root)),
		Version:         firstNonEmpty(p.Version, p.Parent.Version),
		BuildDescriptor: pomPath,
		Dependencies:    deps,
	}, true
}

// ------------------------------ Gradle ---------------------------------------

var (
	reGradleGroup    = regexp.MustCompile(`(?m)^\s*group\s*=\s*["']([^"']+)["']`)
	reGradleVersion  = regexp.MustCompile(`(?m)^\s*version\s*=\s*["']([^"']+)["']`)
	reGradleRootName = regexp.MustCompile(`(?m)^\s*rootProject\.name\s*=\s*["']([^"']+)["']`)
	reGradleImpl     = regexp.MustCompile(`(?m)^\s*(?:implementation|api)\s*\(?\s*["']([^:"'\s]+):([^:"'\s]+)(?::[^"']*)?["']`)
)

func detectGradle(root, buildPath string) (Info, bool) {
	b, err := os.ReadFile(buildPath)
	if err != nil {
		return Info{}, false
	}
	text := string(b)

	inf := Info{Build: "gradle", BuildDescriptor: buildPath}
	if m := reGradleGroup.FindStringSubmatch(text); m != nil {
		inf.GroupID = m[1]
	}
	if m := reGradleVersion.FindStringSubmatch(text); m != nil {
		inf.Version = m[1]
	}
	if p := firstExisting(root, "gradle.properties"); p != "" {
		props := scanProperties(p)
		inf.GroupID = firstNonEmpty(inf.GroupID, props["group"])
		inf.Version = firstNonEmpty(inf.Version, props["version"])
	}
	inf.Version = firstNonEmpty(inf.Version, UnspecifiedVersion)

	if p := firstExisting(root, "settings.gradle", "settings.gradle.kts"); p != "" {
		inf.ArtifactID = scanSettingsGradleForRootName(p)
	}
	if inf.ArtifactID == "" {
		inf.ArtifactID = filepath.Base(root)
	}

	seen := map[string]struct{}{}
	for _, m := range reGradleImpl.FindAllStringSubmatch(text, -1) {
		dep := m[1] + ":" + m[2]
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		inf.Dependencies = append(inf.Dependencies, dep)
	}
	return inf, true
}

func scanSettingsGradleForRootName(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if m := reGradleRootName.FindStringSubmatch(string(b)); m != nil {
		return m[1]
	}
	return ""
}

func scanProperties(path string) map[string]string {
	out := map[string]string{}
	b, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	for _, ln := range strings.Split(string(b), "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		kv := strings.SplitN(ln, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return out
}

// ---------------------------- helpers ---------------------------------------

func firstExisting(root string, names ...string) string {
	for _, n := range names {
		p := filepath.Join(root, n)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
