package forward

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-declarator/internal/classpath"
	"model-declarator/internal/testutil/classgen"
)

const manifestA = `<?xml version="1.0"?>
<model-forward-declaration>
  <for-model name="g:m">
    <type> pkg.X </type>
    <type></type>
    <type>pkg.Y</type>
  </for-model>
  <for-model name="other:model"/>
</model-forward-declaration>`

const manifestB = `<model-forward-declaration>
  <for-model name="g:m"><type>pkg.Z</type><type>pkg.X</type></for-model>
</model-forward-declaration>`

func TestParseManifest(t *testing.T) {
	entries, err := ParseManifest(strings.NewReader(manifestA))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Model: "g:m", Types: []string{"pkg.X", "pkg.Y"}}, entries[0])
	assert.Equal(t, "other:model", entries[1].Model)
	assert.Empty(t, entries[1].Types)
}

func TestParseManifestMalformed(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("<model-forward-declaration><for-model"))
	assert.Error(t, err)
}

type fakeFinder []classpath.Resource

func (f fakeFinder) FindAll(string) []classpath.Resource { return f }

func TestResolveMergesByUnionAndSkipsMalformed(t *testing.T) {
	f := fakeFinder{
		{Origin: "a.jar", Data: []byte(manifestA)},
		{Origin: "broken.jar", Data: []byte("<not-closed")},
		{Origin: "b.jar", Data: []byte(manifestB)},
	}
	ix, st := Resolve(f, nil)
	assert.Equal(t, Stats{Manifests: 2, Skipped: 1}, st)
	assert.Equal(t, []string{"pkg.X", "pkg.Y", "pkg.Z"}, ix.Types("g:m"))
	assert.Empty(t, ix.Types("other:model"))
	assert.Empty(t, ix.Types("absent:model"))
	assert.Equal(t, []string{"g:m", "other:model"}, ix.Models())
}

func TestResolveOverClasspath(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "dep.jar")
	require.NoError(t, classgen.WriteJar(jar, nil, map[string]string{ManifestName: manifestB}))
	p, err := classpath.New([]string{jar}, classpath.Options{})
	require.NoError(t, err)
	defer p.Close()

	ix, st := Resolve(p, nil)
	assert.Equal(t, 1, st.Manifests)
	assert.Equal(t, []string{"pkg.X", "pkg.Z"}, ix.Types("g:m"))
}

func TestResolveDropsInvalidEntries(t *testing.T) {
	const odd = `<model-forward-declaration>
  <for-model name="com.acme:shop-model">
    <type>com.acme.Good</type>
    <type>com.acme.my-type</type>
  </for-model>
  <for-model name=" "><type>com.acme.Orphan</type></for-model>
</model-forward-declaration>`
	f := fakeFinder{
		{Origin: "odd", Data: []byte(odd)},
		{Origin: "b.jar", Data: []byte(manifestB)},
	}
	ix, st := Resolve(f, nil)
	assert.Equal(t, Stats{Manifests: 2, Rejected: 2}, st)
	assert.Equal(t, []string{"com.acme.Good"}, ix.Types("com.acme:shop-model"))
	assert.Equal(t, []string{"com.acme:shop-model", "g:m"}, ix.Models())
}

func TestWriteManifestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteManifest(&buf, map[string][]string{
		"z:model": {"pkg.B", "pkg.A"},
		"a:model": {"pkg.C"},
	}))
	out := buf.String()
	assert.Less(t, strings.Index(out, `name="a:model"`), strings.Index(out, `name="z:model"`))

	entries, err := ParseManifest(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Model: "a:model", Types: []string{"pkg.C"}},
		{Model: "z:model", Types: []string{"pkg.A", "pkg.B"}},
	}, entries)
}
