package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/orchestrate"
)

var (
	psQuiet  bool
	psFormat string
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List the project's containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			return e.Ps(ctx, psQuiet, psFormat)
		})
	},
}

func init() {
	psCmd.Flags().BoolVarP(&psQuiet, "quiet", "q", false, "only display container IDs")
	psCmd.Flags().StringVar(&psFormat, "format", "", "pretty-print containers using a Go template")

	rootCmd.AddCommand(psCmd)
}
