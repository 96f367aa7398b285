package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"model-declarator/internal/engine"
	"model-declarator/internal/sortutil"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <type>...",
		Short: "Show the metadata and classification of types on the search path",
		Example: `  model-declarator inspect com.acme.model.Order
  model-declarator inspect --classpath libs/root-model.jar com.acme.model.Status`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			found, err := engine.Inspect(a.engineOptions(), sortutil.SortedUnique(args))
			if err != nil {
				return err
			}
			return a.printInspections(found)
		},
	}
}

func (a *app) printInspections(found []engine.Inspection) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tKIND\tSUPER\tINTERFACES\tFORWARD")
	failed := 0
	for _, in := range found {
		if in.Err != nil {
			failed++
			fmt.Fprintf(tw, "%s\terror: %v\t-\t-\t-\n", in.Name, in.Err)
			continue
		}
		md := in.Metadata
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			in.Name,
			in.Classification.Kind,
			dash(md.SuperName),
			dash(strings.Join(md.Interfaces, ",")),
			dash(in.Classification.ForwardTarget),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d types could not be inspected", failed, len(found))
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
