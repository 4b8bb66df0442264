package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/orchestrate"
)

var (
	stopTimeout    int
	restartTimeout int
)

var startCmd = &cobra.Command{
	Use:   "start [service...]",
	Short: "Start existing containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			return e.Start(ctx, args)
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [service...]",
	Short: "Stop running containers without removing them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			return e.Stop(ctx, args, stopTimeout)
		})
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart [service...]",
	Short: "Restart containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			return e.Restart(ctx, args, restartTimeout)
		})
	},
}

func init() {
	stopCmd.Flags().IntVarP(&stopTimeout, "timeout", "t", -1, "shutdown timeout in seconds (default: per-container stop_grace_period)")
	restartCmd.Flags().IntVarP(&restartTimeout, "timeout", "t", -1, "shutdown timeout in seconds (default: per-container stop_grace_period)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
}
