package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scoreline/internal/audit"
	"github.com/papapumpkin/scoreline/internal/config"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/ui"
)

// errValidation signals that the report has already been printed.
var errValidation = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the manifest and every dataset it names load cleanly",
	Long: `Loads the manifest and every data source it names, then audits the
result: teams too small to compare, duplicated players, values outside a
metric's range and missing values. Audit findings are warnings unless
--strict is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		printer := ui.New()

		cat, err := dataset.Load(cmd.Context(), cfg.Manifest)
		if err != nil {
			printer.LoadFailed(cfg.Manifest, err)
			return errValidation
		}
		if _, err := cat.Sport(cfg.DefaultSport); cfg.DefaultSport != "" && err != nil {
			printer.Warn(fmt.Sprintf("default sport %q is not in the manifest", cfg.DefaultSport))
		}
		printer.CatalogSummary(cfg.Manifest, cat)

		chain := audit.DefaultChain()
		chain.StopOnFailure, _ = cmd.Flags().GetBool("fail-fast")
		var auditor audit.Auditor = chain
		result, err := auditor.Run(cmd.Context(), cat)
		if err != nil {
			return err
		}
		printer.AuditResult(result)
		if strict, _ := cmd.Flags().GetBool("strict"); strict && !result.Passed {
			return errValidation
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().Bool("strict", false, "fail when the audit has findings")
	validateCmd.Flags().Bool("fail-fast", false, "stop auditing at the first check with findings")
	rootCmd.AddCommand(validateCmd)
}
