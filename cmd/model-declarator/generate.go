package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"model-declarator/internal/cache"
	"model-declarator/internal/descriptor"
	"model-declarator/internal/engine"
	"model-declarator/internal/forward"
	"model-declarator/internal/validate"
)

func newGenerateCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write model-declaration.xml (default command)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !dryRun {
				return a.runGenerate(cmd)
			}
			if err := a.setup(cmd); err != nil {
				return err
			}
			res, err := a.build(cmd.Context())
			if err != nil {
				return err
			}
			return descriptor.Write(a.stdout, res.Model)
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the descriptor instead of writing any file")
	return cmd
}

func (a *app) runGenerate(cmd *cobra.Command) error {
	if err := a.setup(cmd); err != nil {
		return err
	}
	_, err := a.generate(cmd.Context())
	return err
}

// outcome is what one generation produced on disk.
type outcome struct {
	result  *engine.Result
	path    string
	written bool
	delta   *cache.Delta
}

// generate runs the engine and persists the descriptor, the forward
// manifest and the run snapshot.
func (a *app) generate(ctx context.Context) (*outcome, error) {
	res, err := a.build(ctx)
	if err != nil {
		return nil, err
	}
	cfg := a.cfg
	out := &outcome{result: res, path: filepath.Join(cfg.Output.Dir, descriptor.FileName)}

	out.written, err = descriptor.WriteFile(out.path, descriptor.Render(res.Model))
	if err != nil {
		return nil, err
	}
	if cfg.Output.ForwardManifest {
		if err := a.writeForwardManifest(res.Model); err != nil {
			return nil, err
		}
	}
	if !cfg.Cache.Disabled {
		out.delta = a.updateSnapshot(res, out.path)
	}

	m := res.Model
	a.logger.Info("model declaration",
		"model", m.Name,
		"types", len(m.DeclaredTypes),
		"forwarded", countForwarded(m),
		"unresolved", len(res.Unresolved),
		"written", out.written,
		"elapsed", res.Stats.Elapsed.Round(time.Millisecond),
	)
	state := "unchanged"
	if out.written {
		state = "written"
	}
	fmt.Fprintf(a.stdout, "%s: %s (%d types, hash %s)\n", out.path, state, len(m.DeclaredTypes), m.Hash)
	return out, nil
}

// build runs the engine and validates its descriptor without writing.
func (a *app) build(ctx context.Context) (*engine.Result, error) {
	res, err := engine.Run(ctx, a.engineOptions())
	if err != nil {
		return nil, err
	}
	if len(res.Unresolved) > 0 {
		a.logger.Warn("unresolved type references treated as non-model", "count", len(res.Unresolved))
	}
	if err := validate.Model(res.Model); err != nil {
		return nil, fmt.Errorf("invalid model declaration:\n%w", err)
	}
	return res, nil
}

func (a *app) writeForwardManifest(m *descriptor.Model) error {
	path := filepath.Join(a.cfg.Output.Dir, forward.ManifestName)
	if len(m.ForwardTypes) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", path, err)
		}
		return nil
	}
	var buf bytes.Buffer
	if err := forward.WriteManifest(&buf, m.ForwardTypes); err != nil {
		return err
	}
	_, err := descriptor.WriteFile(path, buf.Bytes())
	return err
}

// updateSnapshot records the run and logs the type delta against the
// previous one. Snapshot problems never fail a generation.
func (a *app) updateSnapshot(res *engine.Result, path string) *cache.Delta {
	dir := cache.CacheDir(a.cfg.Cache.Dir, a.cfg.Project.Dir)
	prev, err := cache.Load(dir)
	if err != nil {
		a.logger.Warn("ignoring unreadable snapshot", "dir", dir, "err", err)
		prev = nil
	}
	curr := res.Snapshot(path, time.Now())
	delta := cache.BuildDelta(prev, curr)
	if prev != nil && !delta.Empty() {
		a.logger.Info("model types changed",
			"added", names(delta.Added),
			"removed", names(delta.Removed),
			"changed", len(delta.Changed),
		)
	}
	if err := cache.Save(dir, curr); err != nil {
		a.logger.Warn("cannot save snapshot", "dir", dir, "err", err)
	}
	return &delta
}

func countForwarded(m *descriptor.Model) int {
	n := 0
	for _, ts := range m.ForwardTypes {
		n += len(ts)
	}
	return n
}

func names(types []cache.SnapType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.Name
	}
	return out
}
