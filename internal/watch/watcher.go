// Package watch re-runs generation when compiled classes or the build
// descriptor change. Events are debounced so a compiler writing hundreds of
// class files triggers a single callback.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"model-declarator/internal/logging"
)

const defaultDebounce = 300 * time.Millisecond

// Config controls a Watcher.
type Config struct {
	// Dirs are watched recursively. A dir that is missing, or is deleted
	// later, is picked up again once it (re)appears.
	Dirs []string
	// Base bounds the ancestors of Dirs that are watched to notice a dir
	// being recreated; usually the project dir. Without it only the
	// immediate parent is watched.
	Base string
	// Files are watched through their parent directory so that editors
	// replacing a file by rename are still noticed.
	Files []string
	// Ext selects which files under Dirs count as changes (".class").
	Ext string
	// Debounce is the quiet period before OnChange fires.
	Debounce time.Duration
	// OnChange receives the sorted changed paths. Errors are logged; they
	// do not stop the watcher.
	OnChange func(ctx context.Context, changed []string) error
	Logger   *log.Logger
}

// Watcher monitors the configured paths.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	roots    []string
	base     string
	files    map[string]struct{}
	logger   *log.Logger
	debounce time.Duration
	started  atomic.Bool
}

// New creates a watcher and registers every existing directory below
// cfg.Dirs.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		files:    make(map[string]struct{}, len(cfg.Files)),
		logger:   logger,
		debounce: debounce,
	}
	if cfg.Base != "" {
		if w.base, err = filepath.Abs(cfg.Base); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch: %s: %w", cfg.Base, err)
		}
	}

	for _, dir := range cfg.Dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch: %s: %w", dir, err)
		}
		w.roots = append(w.roots, abs)
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("directory does not exist yet, waiting for it", "path", abs)
		}
		if err := w.anchor(abs); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	for _, f := range cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch: %s: %w", f, err)
		}
		w.files[abs] = struct{}{}
		w.addDir(filepath.Dir(abs))
	}
	return w, nil
}

// Run blocks until ctx is cancelled. It may only be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous run still in progress, postponing")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Collect(maps.Keys(pending))
		clear(pending)
		mu.Unlock()
		sort.Strings(changed)

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("regeneration failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("close fsnotify", "err", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			keys := w.reanchor(evt)
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if w.relevant(evt) {
				keys = append(keys, evt.Name)
			}
			if len(keys) == 0 {
				continue
			}
			mu.Lock()
			for _, k := range keys {
				pending[k] = struct{}{}
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Has(fsnotify.Chmod) && !evt.Has(fsnotify.Write) {
		return false
	}
	if _, ok := w.files[evt.Name]; ok {
		return true
	}
	if w.cfg.Ext == "" {
		return true
	}
	return strings.HasSuffix(evt.Name, w.cfg.Ext)
}

func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

// anchor watches root recursively when it exists, and the existing
// directories above it up to the base, so a root removed by a clean build
// is noticed when it is created again.
func (w *Watcher) anchor(root string) error {
	for _, dir := range w.ancestors(root) {
		w.addDir(dir)
	}
	return w.addTree(root)
}

func (w *Watcher) ancestors(root string) []string {
	parent := filepath.Dir(root)
	if w.base == "" || !within(parent, w.base) {
		return []string{parent}
	}
	var out []string
	for dir := parent; within(dir, w.base); dir = filepath.Dir(dir) {
		out = append(out, dir)
		if dir == w.base {
			break
		}
	}
	return out
}

// reanchor re-registers every root at or below a created or removed path.
// It returns the roots that exist again after a create, so their contents
// count as changed even if files landed before the watch did.
func (w *Watcher) reanchor(evt fsnotify.Event) []string {
	if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
		return nil
	}
	var back []string
	for _, root := range w.roots {
		if !within(root, evt.Name) {
			continue
		}
		if err := w.anchor(root); err != nil {
			w.logger.Warn("cannot watch directory", "path", root, "err", err)
			continue
		}
		if _, err := os.Stat(root); err == nil && evt.Has(fsnotify.Create) {
			back = append(back, root)
		}
	}
	return back
}

func (w *Watcher) addDir(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("not watching directory", "path", dir, "err", err)
	}
}

// maybeAddDir registers directories created after startup below a root,
// such as a new package directory emitted by the compiler.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for _, root := range w.roots {
		if within(path, root) {
			if err := w.addTree(path); err != nil {
				w.logger.Warn("cannot watch new directory", "path", path, "err", err)
			}
			return
		}
	}
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
