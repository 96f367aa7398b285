package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"model-declarator/internal/walkwalk"
	"model-declarator/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate whenever compiled classes or the build file change",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			return a.watch(cmd.Context(), debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before regenerating")
	return cmd
}

func (a *app) watch(ctx context.Context, debounce time.Duration) error {
	if _, err := a.generate(ctx); err != nil {
		a.logger.Error("initial generation failed", "err", err)
	}

	var files []string
	if a.cfg.Project.BuildDescriptor != "" {
		files = append(files, a.cfg.Project.BuildDescriptor)
	}
	w, err := watch.New(watch.Config{
		Dirs:     a.cfg.Build.ClassesDirs,
		Base:     a.cfg.Project.Dir,
		Files:    files,
		Ext:      walkwalk.ClassExt,
		Debounce: debounce,
		Logger:   a.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			a.logger.Debug("change detected", "files", len(changed))
			_, err := a.generate(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}
	a.logger.Info("watching for changes", "dirs", a.cfg.Build.ClassesDirs)
	return w.Run(ctx)
}
