package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/scoreline/internal/config"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/server"
	"github.com/papapumpkin/scoreline/internal/telemetry"
	"github.com/papapumpkin/scoreline/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve dashboard sessions over HTTP",
	Long: `Serves the JSON session API. Each client creates a session and posts
selection events to it; every response carries the refreshed pickers and views.
/api/v1/sessions/{id}/stream accepts the same events over a websocket.

Sessions unused for session_ttl are closed. With --reload, edits to the manifest or any data file it names are picked up
for sessions created afterwards.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default 127.0.0.1:8050)")
	serveCmd.Flags().Bool("reload", false, "reload datasets when the manifest or its files change")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	printer := ui.New()
	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	emitter, err := openEmitter(cfg)
	if err != nil {
		return err
	}
	defer emitter.Close()

	d, err := loadDashboard(ctx, cfg, emitter)
	if err != nil {
		printer.LoadFailed(cfg.Manifest, err)
		return err
	}
	if cfg.Verbose {
		printer.CatalogSummary(cfg.Manifest, d.Catalog())
	}

	srv := server.New(d, server.WithEmitter(emitter), server.WithCORSOrigins(cfg.CORSOrigins))

	reaper := &server.Reaper{Server: srv, TTL: cfg.SessionTTL}
	go reaper.Loop(ctx, time.Minute, func(actions []server.ReapAction) {
		if cfg.Verbose {
			printer.Info(fmt.Sprintf("closed %d idle session(s)", len(actions)))
		}
	})

	if reload, _ := cmd.Flags().GetBool("reload"); reload {
		w, err := dataset.NewWatcher(cfg.Manifest)
		if err != nil {
			return fmt.Errorf("watching %s: %w", cfg.Manifest, err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("watching %s: %w", cfg.Manifest, err)
		}
		defer w.Stop()
		go reloadLoop(ctx, cfg, w, srv, emitter, printer)
	}

	return srv.Run(ctx, cfg.Listen)
}

// reloadLoop rebuilds the dashboard on every debounced change. A failed
// reload keeps the previous dashboard.
func reloadLoop(ctx context.Context, cfg config.Config, w *dataset.Watcher, srv *server.Server, emitter *telemetry.Emitter, printer *ui.Printer) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-w.Changes:
			if !ok {
				return
			}
			d, err := loadDashboard(ctx, cfg, nil)
			evt := telemetry.Event{Kind: telemetry.KindCatalogReload, Data: map[string]any{"file": change.File}}
			if err != nil {
				evt.Data = map[string]any{"file": change.File, "error": err.Error()}
				_ = emitter.Emit(evt)
				printer.LoadFailed(cfg.Manifest, err)
				continue
			}
			_ = emitter.Emit(evt)
			srv.SetDashboard(d)
			printer.Success(fmt.Sprintf("reloaded %s (%s changed)", cfg.Manifest, change.File))
		}
	}
}
