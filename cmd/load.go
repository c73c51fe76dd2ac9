package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/papapumpkin/scoreline/internal/config"
	"github.com/papapumpkin/scoreline/internal/dashboard"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/telemetry"
	"github.com/papapumpkin/scoreline/internal/ui"
)

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openEmitter opens the configured telemetry file. No path means no
// telemetry; the nil emitter it returns is safe to use.
func openEmitter(cfg config.Config) (*telemetry.Emitter, error) {
	if cfg.TelemetryPath == "" {
		return nil, nil
	}
	return telemetry.NewEmitter(cfg.TelemetryPath)
}

// loadDashboard loads the configured manifest and builds the dashboard
// graph over it.
func loadDashboard(ctx context.Context, cfg config.Config, emitter *telemetry.Emitter) (*dashboard.Dashboard, error) {
	cat, err := dataset.Load(ctx, cfg.Manifest)
	if err != nil {
		return nil, err
	}
	d, err := dashboard.New(cat, cfg.DefaultSport)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Manifest, err)
	}
	_ = emitter.Emit(telemetry.Event{
		Kind: telemetry.KindCatalogLoaded,
		Data: map[string]any{"manifest": cfg.Manifest, "sports": cat.SportNames()},
	})
	return d, nil
}
