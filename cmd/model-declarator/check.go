package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"model-declarator/internal/cache"
	"model-declarator/internal/descriptor"
	"model-declarator/internal/diff"
)

var errStale = errors.New("model declaration is out of date")

func newCheckCmd(a *app) *cobra.Command {
	var opt diff.Options
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the descriptor on disk with a fresh run (exit 3 if stale)",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.check(cmd, opt)
		},
	}
	cmd.Flags().IntVar(&opt.Context, "diff-context", 3, "context lines in the unified diff")
	cmd.Flags().IntVar(&opt.MaxBytes, "diff-max-bytes", 1<<20, "print no diff body when old+new exceed this size (0: no limit)")
	return cmd
}

func (a *app) check(cmd *cobra.Command, opt diff.Options) error {
	res, err := a.build(cmd.Context())
	if err != nil {
		return err
	}
	path := filepath.Join(a.cfg.Output.Dir, descriptor.FileName)
	want := descriptor.Render(res.Model)
	rel := descriptor.FileName
	if r, err := filepath.Rel(a.cfg.Project.Dir, path); err == nil {
		rel = filepath.ToSlash(r)
	}

	have, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		body, oversize := diff.Added(rel, want, opt)
		a.printDiff(body, oversize, opt)
		return &ExitError{Code: exitStale, Err: fmt.Errorf("%w: %s does not exist", errStale, rel)}
	case err != nil:
		return err
	}
	if bytes.Equal(have, want) {
		fmt.Fprintf(a.stdout, "%s is up to date\n", rel)
		return nil
	}

	body, oversize := diff.Unified("a/"+rel, "b/"+rel, have, want, opt)
	a.printDiff(body, oversize, opt)
	if old, err := descriptor.Read(bytes.NewReader(have)); err == nil {
		d := cache.BuildDelta(typeSnapshot(old), typeSnapshot(res.Model))
		for _, t := range d.Added {
			fmt.Fprintf(a.stdout, "added type:   %s\n", t.Name)
		}
		for _, t := range d.Removed {
			fmt.Fprintf(a.stdout, "removed type: %s\n", t.Name)
		}
		if d.HashChanged {
			fmt.Fprintf(a.stdout, "hash: %s -> %s\n", old.Hash, res.Model.Hash)
		}
	}
	return &ExitError{Code: exitStale, Err: errStale}
}

func (a *app) printDiff(body string, oversize bool, opt diff.Options) {
	if oversize {
		a.logger.Warn("descriptor diff omitted", "max_bytes", opt.MaxBytes)
	}
	fmt.Fprint(a.stdout, body)
}

// typeSnapshot views the declared types of m as a snapshot so the cache
// delta can compare two descriptors.
func typeSnapshot(m *descriptor.Model) *cache.Snapshot {
	s := &cache.Snapshot{Model: m.Name, Hash: m.Hash}
	for _, t := range m.DeclaredTypes {
		s.Types = append(s.Types, cache.SnapType{Name: t})
	}
	return s
}
