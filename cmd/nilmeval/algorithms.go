package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idlab-discover/nilmeval-cli/internal/disagg"
	"github.com/idlab-discover/nilmeval-cli/internal/ui"
)

var algorithmsCmd = &cobra.Command{
	Use:   "algorithms",
	Short: "List the available disaggregation algorithms",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range disagg.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.GetBullet(), ui.Highlight.Render(fmt.Sprintf("%-10s", name)), ui.Dim.Render(disagg.Describe(name)))
		}
		return nil
	},
}
