package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harunnryd/denrei/internal/daemon"
	"github.com/harunnryd/denrei/internal/ingress"

	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start Denrei as a long-running service",
	Long:  `Starts the HTTP API, the configured chat adapters, and the retry scheduler under component lifecycle orchestration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return fmt.Errorf("failed to wire runtime: %w", err)
		}

		httpServer, err := ingress.NewHTTPServer(cfg.Server, rt.admission, rt.lifecycle, rt.store, rt.retry)
		if err != nil {
			rt.store.Close()
			return fmt.Errorf("failed to configure http server: %w", err)
		}

		daemonMgr := daemon.NewDaemon(cfg)
		daemonMgr.AddComponent(daemon.NewStoreComponent(rt.store))
		daemonMgr.AddComponent(rt.retry)
		daemonMgr.AddComponent(daemon.NewHTTPComponent(httpServer))

		if cfg.Adapters.Telegram.Enabled && cfg.Adapters.Telegram.BotToken != "" {
			adapter := ingress.NewTelegramAdapter(
				cfg.Adapters.Telegram.BotToken, rt.admission, cfg.Adapters.Telegram.UpdateTimeout)
			daemonMgr.AddComponent(daemon.NewTelegramComponent(adapter))
		}

		slog.Info("Denrei daemon starting up...", "port", cfg.Server.Port)
		if err := daemonMgr.Start(context.Background()); err != nil {
			// Cancellation via signal is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Denrei daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("Denrei daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
