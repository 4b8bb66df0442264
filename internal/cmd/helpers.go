package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cameronsjo/stevedore/internal/compose"
	"github.com/cameronsjo/stevedore/internal/orchestrate"
	"github.com/cameronsjo/stevedore/internal/podman"
	"github.com/cameronsjo/stevedore/internal/ui"
)

// loadProject resolves the specification files named by the global flags and
// reports any resolution warnings.
func loadProject() (*compose.Project, error) {
	project, err := compose.Load(compose.LoadOptions{
		Files:       flagFiles,
		ProjectName: flagProjectName,
		EnvFile:     flagEnvFile,
		Profiles:    flagProfiles,
		Env:         flagEnv,
		InPod:       flagInPod,
	})
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	for _, warning := range project.Warnings {
		ui.Warning("%s", warning)
	}
	return project, nil
}

// withExecutor resolves the project and executes fn with an orchestrator
// bound to a signal-cancelled context. SIGINT or SIGTERM cancels the context
// so in-flight podman invocations get their termination grace period.
func withExecutor(fn func(ctx context.Context, e *orchestrate.Executor) error) error {
	project, err := loadProject()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := podman.NewClient(flagPodmanPath, flagParallel, flagDryRun, flagVerbose)
	return fn(ctx, orchestrate.New(project, client, flagVerbose))
}
