// Package cli wires the planning engine into a command line interface.
package cli

import (
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Execute runs the mrp CLI
func Execute() error {
	var verbose bool

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	})

	root := &cobra.Command{
		Use:          "mrp",
		Short:        "mrp resolves material shortages into jobs and purchase orders",
		Long: `mrp runs the material requirements resolution engine over a plant
scenario: it levels the bill-of-material graph, extracts demand and supply
from the inventory ledgers, sources each demand through the allocation tiers,
and materializes the remainder into jobs and purchase orders.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logger.SetLevel(charmlog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCommand(logger))
	return root.Execute()
}
