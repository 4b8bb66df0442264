// Package cmd provides the CLI commands for stevedore.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cameronsjo/stevedore/internal/ui"
)

const version = "0.3.0"

// Global flags shared by every subcommand.
var (
	flagFiles       []string
	flagProjectName string
	flagEnvFile     string
	flagProfiles    []string
	flagEnv         []string
	flagPodmanPath  string
	flagParallel    int64
	flagInPod       bool
	flagDryRun      bool
	flagVerbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stevedore",
	Short: "Run multi-container applications with podman",
	Long: `stevedore - run multi-container applications with podman

Reads compose specification files, resolves them into container records,
and drives podman to create, start, and tear down the result.

LIFECYCLE
  up                    Create and start the project's containers
  down                  Stop and remove the project's containers
  start / stop          Start or stop existing containers
  restart               Restart containers

INSPECTION
  ps                    List the project's containers
  config                Print the resolved specification

AD-HOC
  run <service> [cmd]   Run a one-off container for a service`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the stevedore version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("stevedore version %s\n", version)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Fatal("%v", err)
	}
}

func init() {
	rootCmd.SetVersionTemplate("stevedore version {{.Version}}\n")
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringArrayVarP(&flagFiles, "file", "f", nil, "specification file (repeatable, merged in order)")
	pf.StringVarP(&flagProjectName, "project-name", "p", "", "project name (default: directory name)")
	pf.StringVar(&flagEnvFile, "env-file", "", "alternate dotenv file")
	pf.StringArrayVar(&flagProfiles, "profile", nil, "enable a specification profile (repeatable)")
	pf.StringArrayVar(&flagEnv, "env", nil, "set a variable for substitution, KEY=VAL (repeatable)")
	pf.StringVar(&flagPodmanPath, "podman-path", "podman", "path to the podman binary")
	pf.Int64Var(&flagParallel, "parallel", 0, "limit concurrent podman invocations (0 = unlimited)")
	pf.BoolVar(&flagInPod, "in-pod", true, "group the project's containers into one pod")
	pf.BoolVar(&flagDryRun, "dry-run", false, "print podman commands without running them")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
}
