package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scoreline/internal/config"
	"github.com/papapumpkin/scoreline/internal/ui"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Draw the selection graph the dashboards are built on",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		noColor, _ := cmd.Flags().GetBool("no-color")

		d, err := loadDashboard(cmd.Context(), cfg, nil)
		if err != nil {
			ui.New().LoadFailed(cfg.Manifest, err)
			return errValidation
		}
		r := &ui.GraphRenderer{UseColor: !noColor}
		out, err := r.Render(d.Graph())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	graphCmd.Flags().Bool("no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(graphCmd)
}
