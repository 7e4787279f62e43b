package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yahsan2/enrollctl/pkg/args"
	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/filter"
	"github.com/yahsan2/enrollctl/pkg/output"
)

var targetsCmd = &cobra.Command{
	Use:     "targets",
	Aliases: []string{"courses", "ls"},
	Short:   "List the institute's courses (package sessions)",
	Long: `List the package sessions of the configured institute. These are the
targets the assign and deassign commands operate on.`,
	Example: `  # Active package sessions
  enrollctl targets

  # Search by course, level or session name
  enrollctl targets --search physics

  # Everything, as JSON
  enrollctl targets --status all -o json

  # Only the ids, for scripting
  enrollctl targets -o quiet --course Physics`,
	RunE: runTargets,
}

func init() {
	args.AddTargetFlags(targetsCmd, nil)
	rootCmd.AddCommand(targetsCmd)
}

// targetLister lists package sessions
type targetLister interface {
	ListTargets(ctx context.Context) ([]assign.Target, error)
}

func runTargets(cmd *cobra.Command, cmdArgs []string) error {
	filters, err := args.ParseTargetFlags(cmd, nil)
	if err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	_, client, formatter, err := setup()
	if err != nil {
		return err
	}

	return listTargets(cmd.Context(), client, filters, formatter)
}

func listTargets(ctx context.Context, client targetLister, filters *filter.TargetFilters, formatter *output.Formatter) error {
	targets, err := client.ListTargets(ctx)
	if err != nil {
		return err
	}
	return formatter.FormatTargets(filters.Apply(targets))
}
