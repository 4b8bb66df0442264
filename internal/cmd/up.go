package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/orchestrate"
	"github.com/cameronsjo/stevedore/internal/ui"
)

var (
	upDetach        bool
	upNoStart       bool
	upForceRecreate bool
	upAbortOnExit   bool
	upExitCodeFrom  string
)

var upCmd = &cobra.Command{
	Use:   "up [service...]",
	Short: "Create and start the project's containers",
	Long: `Creates pods, networks, volumes, and containers, then starts the
containers in dependency order. In foreground mode output stays attached
and the command blocks until every container exits.

Naming services restricts the operation to those services and their
transitive dependencies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			if err := e.AssertServices(args); err != nil {
				return err
			}
			code, err := e.Up(ctx, orchestrate.UpOptions{
				Services:      args,
				Detach:        upDetach,
				NoStart:       upNoStart,
				ForceRecreate: upForceRecreate,
				AbortOnExit:   upAbortOnExit,
				ExitCodeFrom:  upExitCodeFrom,
			})
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			if upDetach && !upNoStart {
				ui.Success("Project %s started", e.Project.Name)
			}
			return nil
		})
	},
}

func init() {
	upCmd.Flags().BoolVarP(&upDetach, "detach", "d", false, "run containers in the background")
	upCmd.Flags().BoolVar(&upNoStart, "no-start", false, "create containers without starting them")
	upCmd.Flags().BoolVar(&upForceRecreate, "force-recreate", false, "recreate containers even without configuration changes")
	upCmd.Flags().BoolVar(&upAbortOnExit, "abort-on-container-exit", false, "stop all containers when any container exits")
	upCmd.Flags().StringVar(&upExitCodeFrom, "exit-code-from", "", "return the exit code of this service's container (implies --abort-on-container-exit)")

	rootCmd.AddCommand(upCmd)
}
