package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcco/internal/autoreply"
	"arcco/internal/bus"
	"arcco/internal/config"
	"arcco/internal/gateway"
	"arcco/internal/metrics"
	"arcco/internal/profile"
	"arcco/internal/provider"
	"arcco/internal/sheets"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the auto-reply daemon",
		Long:  "Polls the WhatsApp gateway on an interval and replies to eligible inbound messages. Press Ctrl+C to stop.",
		RunE:  runDaemon,
	}
}

func newGateway(cfg *config.Config) *gateway.Client {
	return gateway.NewClient(gateway.ClientConfig{
		BaseURL:  cfg.Gateway.BaseURL,
		APIKey:   cfg.Gateway.APIKey,
		Instance: cfg.Gateway.Instance,
		Logger:   logger,
	})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.AutoReply.Enabled {
		return fmt.Errorf("autoReply.enabled is false; nothing to run")
	}
	applyLogLevel(cfg.General.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.NewEventBus(logger)

	prof, err := profile.Load(cfg.General.ProfilePath, logger)
	if err != nil {
		logger.Warn("profile not found, using default persona", "path", cfg.General.ProfilePath, "err", err)
		prof = profile.Default()
	}

	sheetStore, err := sheets.NewSQLiteStore(cfg.Sheets.DBPath, logger)
	if err != nil {
		return fmt.Errorf("sheet store: %w", err)
	}
	defer sheetStore.Close()

	provFactory := provider.NewFactory(cfg, logger)
	prov, err := provFactory.Get(prof.Provider)
	if err != nil || prov == nil {
		logger.Warn("profile provider unavailable, using default", "provider", prof.Provider, "err", err)
		prov, err = provFactory.DefaultProvider()
		if err != nil {
			return fmt.Errorf("no usable provider: %w", err)
		}
	}
	if err := prov.Healthy(ctx); err != nil {
		logger.Warn("provider unhealthy at startup", "provider", prov.Name(), "err", err)
	} else {
		logger.Info("provider healthy", "provider", prov.Name())
	}

	gw := newGateway(cfg)

	ledger := autoreply.NewLedger(cfg.AutoReply.LedgerSize)
	history := autoreply.NewHistory(cfg.AutoReply.HistoryTurns, cfg.AutoReply.MaxContacts)

	engine := autoreply.NewEngine(autoreply.EngineConfig{
		Gateway:  gw,
		Provider: prov,
		Sheets:   sheetStore,
		Profile:  prof,
		Ledger:   ledger,
		History:  history,
		Events:   events,
		Logger:   logger,
	})

	scheduler := autoreply.NewScheduler(autoreply.SchedulerConfig{
		Gateway:  gw,
		Engine:   engine,
		Ledger:   ledger,
		Events:   events,
		Logger:   logger,
		Interval: time.Duration(cfg.AutoReply.IntervalSeconds) * time.Second,
		PageSize: cfg.AutoReply.PageSize,
		MaxAge:   time.Duration(cfg.AutoReply.MaxMessageAgeSeconds) * time.Second,
	})

	// Log-level observer for the reply lifecycle.
	events.On(bus.EventReplySent, func(ev bus.Event) {
		logger.Info("reply sent", "contact", ev.Payload["contact"])
	})
	events.On(bus.EventRowAppended, func(ev bus.Event) {
		logger.Info("row captured", "sheet", ev.Payload["sheet"])
	})
	events.On(bus.EventGatewayOffline, func(ev bus.Event) {
		logger.Warn("gateway offline", "state", ev.Payload["state"])
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc(cfg.Metrics.Endpoint, metrics.Collector.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info("metrics server started", "addr", metricsSrv.Addr, "endpoint", cfg.Metrics.Endpoint)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "err", err)
			}
		}()
	}

	logger.Info("auto-reply daemon started",
		"instance", cfg.Gateway.Instance,
		"interval_s", cfg.AutoReply.IntervalSeconds,
		"profile", prof.Name,
	)

	go scheduler.Run(ctx)

	// Block until shutdown signal
	<-ctx.Done()
	logger.Info("shutting down...")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "err", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
