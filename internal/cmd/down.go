package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/orchestrate"
	"github.com/cameronsjo/stevedore/internal/ui"
)

var (
	downTimeout       int
	downVolumes       bool
	downRemoveOrphans bool
)

var downCmd = &cobra.Command{
	Use:   "down [service...]",
	Short: "Stop and remove the project's containers",
	Long: `Stops all of the project's containers concurrently, then removes them.
Pods and networks are removed too unless the operation was restricted to a
subset of services.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			if err := e.AssertServices(args); err != nil {
				return err
			}
			err := e.Down(ctx, orchestrate.DownOptions{
				Services:      args,
				Timeout:       downTimeout,
				Volumes:       downVolumes,
				RemoveOrphans: downRemoveOrphans,
			})
			if err != nil {
				return err
			}
			if len(args) == 0 {
				ui.Success("Project %s removed", e.Project.Name)
			}
			return nil
		})
	},
}

func init() {
	downCmd.Flags().IntVarP(&downTimeout, "timeout", "t", -1, "shutdown timeout in seconds (default: per-container stop_grace_period)")
	downCmd.Flags().BoolVar(&downVolumes, "volumes", false, "also remove named volumes declared by the specification")
	downCmd.Flags().BoolVar(&downRemoveOrphans, "remove-orphans", false, "remove containers the specification no longer defines")

	rootCmd.AddCommand(downCmd)
}
