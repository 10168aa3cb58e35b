package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/monitoring"
)

var statusLookback int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize recorded analyses and raised alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		lookback := statusLookback
		if lookback <= 0 {
			lookback = cfg.Monitoring.LookbackWindowHours
		}
		snap, err := monitoring.NewCollector(env.Store).Collect(ctx, lookback)
		if err != nil {
			return err
		}
		alerts := monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap)

		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"snapshot": snap,
			"alerts":   alerts,
			"breaker":  env.Breaker.State().String(),
		})
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLookback, "lookback", 0, "lookback window in hours (default from config)")
	rootCmd.AddCommand(statusCmd)
}
