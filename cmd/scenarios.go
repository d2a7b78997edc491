// File: cmd/scenarios.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/storefront-e2e/internal/runner"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		// Listing needs neither config nor logger.
		PersistentPreRun: func(*cobra.Command, []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDATA\tDESCRIPTION")
			for _, sc := range runner.Catalog() {
				data := "-"
				if sc.DataDriven {
					data = "rows"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", sc.Name, data, sc.Description)
			}
			return w.Flush()
		},
	}
}
