package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-declarator/internal/descriptor"
)

func good() *descriptor.Model {
	return &descriptor.Model{
		GroupID: "g", ArtifactID: "m", Version: "1", Name: "g:m",
		Hash:          "0123456789abcdef0123456789abcdef",
		Dependencies:  []string{"com.braintribe.gm:root-model"},
		DeclaredTypes: []string{"pkg.A", "pkg.B$Inner"},
		ForwardTypes:  map[string][]string{"o:m": {"pkg.Q"}},
	}
}

func TestModelAcceptsWellFormed(t *testing.T) {
	require.NoError(t, Model(good()))
}

func TestModelCollectsAllIssues(t *testing.T) {
	m := good()
	m.GroupID = ""
	m.Name = "wrong"
	m.Hash = "ABC"
	m.Dependencies = append(m.Dependencies, "no-colon")
	m.DeclaredTypes = []string{"pkg.B", "pkg.A", "pkg.A", "9bad"}
	m.ForwardTypes["o:m"] = []string{"pkg.Z", "pkg.B"}

	err := Model(m)
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"descriptor.groupId must be non-empty",
		`descriptor.name must be ":m"`,
		"descriptor.hash",
		`dependencies[1]: "no-colon"`,
		"types must be sorted and unique",
		`"9bad" is not a binary type name`,
		"forward[o:m]: types must be sorted and unique",
		"forward[o:m]: pkg.B is also declared locally",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestModelAllowsEmptyVersion(t *testing.T) {
	m := good()
	m.Version = ""
	require.NoError(t, Model(m))
}

func TestModelRejectsSelfForward(t *testing.T) {
	m := good()
	m.ForwardTypes = map[string][]string{"g:m": {"pkg.Z"}}
	assert.ErrorContains(t, Model(m), "own model")
}

func TestModelNil(t *testing.T) {
	assert.Error(t, Model(nil))
}
