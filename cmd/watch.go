package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scoreline/internal/config"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Revalidate the datasets whenever the manifest or a data file changes",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	printer := ui.New()
	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	cat, err := dataset.Load(ctx, cfg.Manifest)
	if err != nil {
		printer.LoadFailed(cfg.Manifest, err)
	} else {
		printer.CatalogSummary(cfg.Manifest, cat)
	}

	w, err := dataset.NewWatcher(cfg.Manifest)
	if err != nil {
		return fmt.Errorf("watching %s: %w", cfg.Manifest, err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.Manifest, err)
	}
	defer w.Stop()

	reloads := 0
	if cat != nil {
		printer.WatchStatus(cat, reloads)
	}
	for {
		select {
		case <-ctx.Done():
			printer.WatchStatusDone()
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				return nil
			}
			reloads++
			next, err := dataset.Load(ctx, cfg.Manifest)
			if err != nil {
				printer.WatchStatusDone()
				printer.LoadFailed(cfg.Manifest, err)
				continue
			}
			cat = next
			printer.WatchStatus(cat, reloads)
		}
	}
}
