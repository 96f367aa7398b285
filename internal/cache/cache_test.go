package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheDir(t *testing.T) {
	d := CacheDir("", "/work/project")
	assert.True(t, strings.HasPrefix(d, defaultCacheRoot+string(filepath.Separator)))
	assert.Len(t, filepath.Base(d), 12)
	assert.Equal(t, d, CacheDir("", "/work/project"))
	assert.NotEqual(t, PathKey("/work/a"), PathKey("/work/b"))
}

func TestSaveLoadClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "k")
	s, err := Load(dir)
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &Snapshot{
		Model: "g:m", Hash: "abc", Created: "2024-01-01T00:00:00Z", FormatVersion: FormatVersion,
		Types: []SnapType{{Name: "pkg.A", Kind: "entity"}, {Name: "pkg.Q", Kind: "enum", Target: "o:m"}},
	}
	require.NoError(t, Save(dir, want))
	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, Clear(dir))
	_, err = os.Stat(dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, Clear(dir))
}

func TestClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, &Snapshot{Model: "g:m", FormatVersion: FormatVersion}))
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, nil, 0o644))

	require.Error(t, Clear(dir))
	assert.FileExists(t, other)
	_, err := os.Stat(filepath.Join(dir, indexFileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFileName), []byte("{"), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}

func TestBuildDelta(t *testing.T) {
	prev := &Snapshot{Hash: "h1", Types: []SnapType{
		{Name: "pkg.A", Kind: "entity"},
		{Name: "pkg.B", Kind: "entity"},
		{Name: "pkg.C", Kind: "enum"},
	}}
	curr := &Snapshot{Hash: "h2", Types: []SnapType{
		{Name: "pkg.A", Kind: "entity"},
		{Name: "pkg.B", Kind: "entity", Target: "o:m"},
		{Name: "pkg.D", Kind: "entity"},
	}}
	d := BuildDelta(prev, curr)
	assert.True(t, d.HashChanged)
	assert.Equal(t, []SnapType{{Name: "pkg.D", Kind: "entity"}}, d.Added)
	assert.Equal(t, []SnapType{{Name: "pkg.C", Kind: "enum"}}, d.Removed)
	require.Len(t, d.Changed, 1)
	assert.Equal(t, "pkg.B", d.Changed[0].Name)
	assert.Equal(t, "o:m", d.Changed[0].After.Target)
	assert.False(t, d.Empty())

	same := BuildDelta(curr, curr)
	assert.True(t, same.Empty())
	assert.False(t, same.HashChanged)
}

func TestBuildDeltaTrivial(t *testing.T) {
	curr := &Snapshot{Hash: "h", Types: []SnapType{{Name: "pkg.B"}, {Name: "pkg.A"}}}
	d := BuildDelta(nil, curr)
	assert.Equal(t, []SnapType{{Name: "pkg.A"}, {Name: "pkg.B"}}, d.Added)
	assert.True(t, d.HashChanged)

	d = BuildDelta(curr, nil)
	assert.Len(t, d.Removed, 2)
	assert.True(t, BuildDelta(nil, nil).Empty())
}
