package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, cfg Config) <-chan []string {
	t.Helper()
	calls := make(chan []string, 8)
	cfg.Debounce = 50 * time.Millisecond
	cfg.OnChange = func(_ context.Context, changed []string) error {
		calls <- changed
		return nil
	}
	w, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return calls
}

func TestWatcherDebouncesClassChanges(t *testing.T) {
	dir := t.TempDir()
	calls := startWatcher(t, Config{Dirs: []string{dir}, Ext: ".class"})

	a := filepath.Join(dir, "A.class")
	b := filepath.Join(dir, "B.class")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case changed := <-calls:
		assert.Contains(t, changed, a)
		assert.Contains(t, changed, b)
		for _, c := range changed {
			assert.Equal(t, ".class", filepath.Ext(c))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	calls := startWatcher(t, Config{Dirs: []string{dir}, Ext: ".class"})

	pkg := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(pkg, 0o755))
	// Give the watcher time to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "C.class"), []byte("c"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-calls:
			if len(changed) > 0 && changed[len(changed)-1] == filepath.Join(pkg, "C.class") {
				return
			}
		case <-deadline:
			t.Fatal("change in new directory not reported")
		}
	}
}

func TestWatcherWatchesNamedFiles(t *testing.T) {
	dir := t.TempDir()
	build := filepath.Join(dir, "build.gradle")
	require.NoError(t, os.WriteFile(build, []byte("a"), 0o644))
	calls := startWatcher(t, Config{Files: []string{build}, Dirs: []string{filepath.Join(dir, "missing")}, Ext: ".class"})

	require.NoError(t, os.WriteFile(build, []byte("b"), 0o644))
	select {
	case changed := <-calls:
		assert.Equal(t, []string{build}, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("build file change not reported")
	}
}

func TestRunTwice(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.Error(t, w.Run(ctx))
}

func waitFor(t *testing.T, calls <-chan []string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-calls:
			for _, c := range changed {
				if c == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("%s not reported", want)
		}
	}
}

func TestWatcherSurvivesRecreatedRoot(t *testing.T) {
	base := t.TempDir()
	classes := filepath.Join(base, "build", "classes")
	require.NoError(t, os.MkdirAll(classes, 0o755))
	calls := startWatcher(t, Config{Dirs: []string{classes}, Base: base, Ext: ".class"})

	require.NoError(t, os.RemoveAll(filepath.Join(base, "build")))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.MkdirAll(classes, 0o755))
	waitFor(t, calls, classes)

	a := filepath.Join(classes, "A.class")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o644))
	waitFor(t, calls, a)
}

func TestWatcherWaitsForMissingRoot(t *testing.T) {
	base := t.TempDir()
	classes := filepath.Join(base, "out")
	calls := startWatcher(t, Config{Dirs: []string{classes}, Base: base, Ext: ".class"})

	require.NoError(t, os.Mkdir(classes, 0o755))
	waitFor(t, calls, classes)
	b := filepath.Join(classes, "B.class")
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o644))
	waitFor(t, calls, b)
}

func TestWatcherSeesFileReplacedByRename(t *testing.T) {
	dir := t.TempDir()
	build := filepath.Join(dir, "build.gradle")
	require.NoError(t, os.WriteFile(build, []byte("a"), 0o644))
	calls := startWatcher(t, Config{Files: []string{build}})

	tmp := filepath.Join(dir, ".build.gradle.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("b"), 0o644))
	require.NoError(t, os.Rename(tmp, build))
	waitFor(t, calls, build)

	require.NoError(t, os.WriteFile(build, []byte("c"), 0o644))
	waitFor(t, calls, build)
}
