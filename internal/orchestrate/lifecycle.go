package orchestrate

import (
	"context"
	"strconv"

	"github.com/cameronsjo/stevedore/internal/compose"
)

// Start starts the containers of the requested services (all when empty).
func (e *Executor) Start(ctx context.Context, services []string) error {
	return e.transferStatus(ctx, "start", services, -1)
}

// Stop stops the containers of the requested services in reverse creation
// order. timeout overrides each container's stop grace period; negative
// keeps per-container configuration.
func (e *Executor) Stop(ctx context.Context, services []string, timeout int) error {
	return e.transferStatus(ctx, "stop", services, timeout)
}

// Restart restarts the containers of the requested services.
func (e *Executor) Restart(ctx context.Context, services []string, timeout int) error {
	return e.transferStatus(ctx, "restart", services, timeout)
}

// transferStatus runs one lifecycle verb over every container of the
// requested services. Stop and restart walk containers in reverse creation
// order so dependents go down before their dependencies.
func (e *Executor) transferStatus(ctx context.Context, action string, services []string, timeout int) error {
	if err := e.AssertServices(services); err != nil {
		return err
	}
	requested := make(map[string]bool, len(services))
	for _, s := range services {
		requested[s] = true
	}

	var targets []*compose.Container
	for _, cnt := range e.Project.Containers {
		if len(requested) == 0 || requested[cnt.Service] {
			targets = append(targets, cnt)
		}
	}
	if action == "stop" || action == "restart" {
		for i, j := 0, len(targets)-1; i < j; i, j = i+1, j-1 {
			targets[i], targets[j] = targets[j], targets[i]
		}
	}

	for _, cnt := range targets {
		args := []string{action}
		if action != "start" {
			secs := timeout
			if secs < 0 {
				secs = cnt.StopGracePeriod()
			}
			args = append(args, "-t", strconv.Itoa(secs))
		}
		if _, err := e.Podman.Run(ctx, append(args, cnt.Name)...); err != nil {
			return err
		}
	}
	return nil
}

// Ps prints the status of the project's containers.
func (e *Executor) Ps(ctx context.Context, quiet bool, format string) error {
	args := []string{"ps", "-a", "--filter", e.projectFilter()}
	if quiet {
		args = append(args, "--format", "{{.ID}}")
	} else if format != "" {
		args = append(args, "--format", format)
	}
	_, err := e.Podman.Run(ctx, args...)
	return err
}
