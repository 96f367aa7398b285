package classpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-declarator/internal/testutil/classgen"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestReadPrefersEarlierEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg/Foo.class", "dir")
	jar := filepath.Join(t.TempDir(), "dep.jar")
	require.NoError(t, classgen.WriteJar(jar, nil, map[string]string{
		"pkg/Foo.class": "jar",
		"pkg/Bar.class": "jar-bar",
	}))

	p, err := New([]string{dir, jar}, Options{})
	require.NoError(t, err)
	defer p.Close()

	data, origin, err := p.Read("pkg/Foo.class")
	require.NoError(t, err)
	assert.Equal(t, "dir", string(data))
	assert.Equal(t, dir, origin)

	data, origin, err = p.Read("/pkg/./Bar.class")
	require.NoError(t, err)
	assert.Equal(t, "jar-bar", string(data))
	assert.Equal(t, jar, origin)

	_, _, err = p.Read("pkg/Nope.class")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFindAllCollectsEveryMatch(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, a, "res.xml", "one")
	jar := filepath.Join(b, "dep.jar")
	require.NoError(t, classgen.WriteJar(jar, nil, map[string]string{"res.xml": "two"}))
	broken := filepath.Join(b, "broken.jar")
	writeFile(t, b, "broken.jar", "not a zip")

	p, err := New([]string{a, broken, jar, filepath.Join(b, "missing.jar")}, Options{})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, []string{a, broken, jar}, p.Entries())
	res := p.FindAll("res.xml")
	require.Len(t, res, 2)
	assert.Equal(t, "one", string(res[0].Data))
	assert.Equal(t, "two", string(res[1].Data))
	assert.Equal(t, jar, res[1].Origin)
}

func TestArchiveCacheEvicts(t *testing.T) {
	var jars []string
	for _, n := range []string{"a", "b", "c"} {
		jar := filepath.Join(t.TempDir(), n+".jar")
		require.NoError(t, classgen.WriteJar(jar, nil, map[string]string{n + ".txt": n}))
		jars = append(jars, jar)
	}
	p, err := New(jars, Options{ArchiveCacheSize: 1})
	require.NoError(t, err)
	defer p.Close()

	for _, n := range []string{"a", "b", "c", "a"} {
		data, _, err := p.Read(n + ".txt")
		require.NoError(t, err)
		assert.Equal(t, n, string(data))
	}
	assert.Equal(t, 1, p.archives.Len())
}

func TestDuplicateEntriesCollapse(t *testing.T) {
	dir := t.TempDir()
	p, err := New([]string{dir, dir + "/."}, Options{})
	require.NoError(t, err)
	assert.Len(t, p.Entries(), 1)
}
