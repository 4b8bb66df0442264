package orchestrate

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cameronsjo/stevedore/internal/compose"
)

// DownOptions configures teardown.
type DownOptions struct {
	// Services filters the teardown; pods and networks are only removed
	// when nothing was filtered out.
	Services []string
	// Timeout overrides every container's stop grace period, in seconds.
	// Negative means use per-container configuration.
	Timeout int
	// Volumes also removes named volumes not referenced by a retained
	// service.
	Volumes bool
	// RemoveOrphans also removes project-labelled containers the current
	// specification no longer defines.
	RemoveOrphans bool
}

// Down stops all containers concurrently in reverse creation order, then
// removes them sequentially; the stop phase completes in full before any
// removal is attempted.
func (e *Executor) Down(ctx context.Context, opts DownOptions) error {
	excluded := e.excludedServices(opts.Services)

	containers := make([]*compose.Container, 0, len(e.Project.Containers))
	for i := len(e.Project.Containers) - 1; i >= 0; i-- {
		cnt := e.Project.Containers[i]
		if excluded[cnt.Service] {
			continue
		}
		containers = append(containers, cnt)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, cnt := range containers {
		cnt := cnt
		g.Go(func() error {
			timeout := opts.Timeout
			if timeout < 0 {
				timeout = cnt.StopGracePeriod()
			}
			_, err := e.Podman.Run(gctx, "stop", "-t", strconv.Itoa(timeout), cnt.Name)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, cnt := range containers {
		// already-removed containers are fine
		_, _ = e.Podman.Run(ctx, "rm", cnt.Name)
	}

	if opts.RemoveOrphans {
		if err := e.removeOrphans(ctx); err != nil {
			return err
		}
	}
	if opts.Volumes {
		if err := e.removeVolumes(ctx, excluded); err != nil {
			return err
		}
	}

	if len(excluded) > 0 {
		return nil
	}
	for _, pod := range e.Project.Pods {
		_, _ = e.Podman.Run(ctx, "pod", "rm", pod.Name)
	}
	networks, err := e.listProjectResources(ctx, "network")
	if err != nil {
		return err
	}
	for _, network := range networks {
		_, _ = e.Podman.Run(ctx, "network", "rm", network)
	}
	return nil
}

// removeOrphans stops then removes every project-labelled container still
// known to the engine.
func (e *Executor) removeOrphans(ctx context.Context) error {
	out, err := e.Podman.Output(ctx, "ps", "--filter", e.projectFilter(), "-a",
		"--format", "{{ .Names }}")
	if err != nil {
		return err
	}
	names := splitLines(string(out))
	for _, name := range names {
		_, _ = e.Podman.Run(ctx, "stop", name)
	}
	for _, name := range names {
		_, _ = e.Podman.Run(ctx, "rm", name)
	}
	return nil
}

// removeVolumes removes project volumes except those referenced by a
// service the filter retained.
func (e *Executor) removeVolumes(ctx context.Context, excluded map[string]bool) error {
	keep := make(map[string]bool)
	for _, cnt := range e.Project.Containers {
		if !excluded[cnt.Service] {
			continue
		}
		mounts, err := cnt.Mounts(e.Project)
		if err != nil {
			return err
		}
		for _, mount := range mounts {
			if mount.Type == "volume" && mount.Name != "" {
				keep[mount.Name] = true
			}
		}
	}
	volumes, err := e.listProjectResources(ctx, "volume")
	if err != nil {
		return err
	}
	for _, volume := range volumes {
		if keep[volume] {
			continue
		}
		_, _ = e.Podman.Run(ctx, "volume", "rm", volume)
	}
	return nil
}

// listProjectResources lists the names of project-labelled networks or
// volumes.
func (e *Executor) listProjectResources(ctx context.Context, kind string) ([]string, error) {
	out, err := e.Podman.Output(ctx, kind, "ls", "--noheading",
		"--filter", e.projectFilter(), "--format", "{{.Name}}")
	if err != nil {
		return nil, err
	}
	return splitLines(string(out)), nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
