package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one retry sweep and exit",
	Long:  `Retries commands parked in pending_classification once, reconciles crash gaps, and prints a summary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		rt, err := buildRuntime(cfg)
		if err != nil {
			return fmt.Errorf("failed to wire runtime: %w", err)
		}
		defer rt.store.Close()

		ctx := context.Background()
		summary := rt.retry.RetryPending(ctx)
		rt.lifecycle.Reconcile(ctx)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
