package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"model-declarator/internal/cache"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Forget the run snapshot so the next generate reports no delta",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			dir := cache.CacheDir(a.cfg.Cache.Dir, a.cfg.Project.Dir)
			if err := cache.Clear(dir); err != nil {
				return fmt.Errorf("clean %s: %w", dir, err)
			}
			a.logger.Debug("removed run snapshot", "dir", dir)
			fmt.Fprintf(a.stdout, "removed %s\n", dir)
			return nil
		},
	}
}
