package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/orchestrate"
)

var (
	runDetach       bool
	runRemove       bool
	runNoDeps       bool
	runName         string
	runEntrypoint   string
	runUser         string
	runWorkdir      string
	runEnv          []string
	runPublish      []string
	runVolumes      []string
	runServicePorts bool
	runNoTTY        bool
)

var runCmd = &cobra.Command{
	Use:   "run <service> [command...]",
	Short: "Run a one-off container for a service",
	Long: `Runs a single ad-hoc container for a service. Dependencies are brought
up detached first unless --no-deps is given. The container gets a unique
temporary name unless --name overrides it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withExecutor(func(ctx context.Context, e *orchestrate.Executor) error {
			code, err := e.RunOneOff(ctx, orchestrate.RunOptions{
				Service:      args[0],
				Command:      args[1:],
				Detach:       runDetach,
				Remove:       runRemove,
				NoDeps:       runNoDeps,
				Name:         runName,
				Entrypoint:   runEntrypoint,
				User:         runUser,
				Workdir:      runWorkdir,
				Env:          runEnv,
				Publish:      runPublish,
				Volumes:      runVolumes,
				ServicePorts: runServicePorts,
				NoTTY:        runNoTTY,
			})
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		})
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runDetach, "detach", "d", false, "run the container in the background")
	runCmd.Flags().BoolVar(&runRemove, "rm", false, "remove the container after it exits")
	runCmd.Flags().BoolVar(&runNoDeps, "no-deps", false, "do not start dependency services")
	runCmd.Flags().StringVar(&runName, "name", "", "assign a name to the container")
	runCmd.Flags().StringVar(&runEntrypoint, "entrypoint", "", "override the image entrypoint")
	runCmd.Flags().StringVarP(&runUser, "user", "u", "", "run as the given user")
	runCmd.Flags().StringVarP(&runWorkdir, "workdir", "w", "", "working directory inside the container")
	runCmd.Flags().StringArrayVarP(&runEnv, "env", "e", nil, "set an environment variable (repeatable)")
	runCmd.Flags().StringArrayVar(&runPublish, "publish", nil, "publish a container port to the host (repeatable)")
	runCmd.Flags().StringArrayVar(&runVolumes, "volume", nil, "bind mount a volume (repeatable)")
	runCmd.Flags().BoolVar(&runServicePorts, "service-ports", false, "publish the service's declared ports")
	runCmd.Flags().BoolVarP(&runNoTTY, "no-TTY", "T", false, "do not allocate a pseudo-TTY")

	rootCmd.AddCommand(runCmd)
}
