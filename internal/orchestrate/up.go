package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cameronsjo/stevedore/internal/compose"
	"github.com/cameronsjo/stevedore/internal/ui"
)

// abortSettleDelay lets near-simultaneous container exits settle before
// abort-on-exit cancels the remaining start tasks, so the recorded exit code
// is not overwritten by the cancellation.
const abortSettleDelay = time.Second

// UpOptions configures an Up run.
type UpOptions struct {
	// Services filters the operation to these services and their
	// transitive dependencies. Empty means all.
	Services []string
	// Detach creates and starts containers without attaching.
	Detach bool
	// NoStart creates containers but never starts them.
	NoStart bool
	// ForceRecreate tears the project down first even without config drift.
	ForceRecreate bool
	// AbortOnExit cancels every pending task once any container exits.
	AbortOnExit bool
	// ExitCodeFrom names the service whose exit code Up returns; implies
	// AbortOnExit.
	ExitCodeFrom string
}

// Up creates and starts the project's containers in dependency order. In
// foreground mode it blocks until every start task completes and returns the
// exit code of the ExitCodeFrom service, if configured.
func (e *Executor) Up(ctx context.Context, opts UpOptions) (int, error) {
	excluded := e.excludedServices(opts.Services)

	if err := e.recreateOnDrift(ctx, opts.ForceRecreate); err != nil {
		return 1, err
	}
	if err := e.createPods(ctx); err != nil {
		return 1, err
	}

	createVerb := "create"
	if opts.Detach && !opts.NoStart {
		createVerb = "run"
	}
	for _, cnt := range e.Project.Containers {
		if excluded[cnt.Service] {
			e.debugf("skipping: %s", cnt.Name)
			continue
		}
		if err := e.ensureResources(ctx, cnt); err != nil {
			return 1, err
		}
		args, err := containerToArgs(e.Project, cnt, opts.Detach)
		if err != nil {
			return 1, err
		}
		if _, err := e.Podman.Run(ctx, append([]string{createVerb}, args...)...); err != nil {
			return 1, err
		}
		if createVerb == "run" {
			// already running detached; the start is a no-op that orders
			// this container behind its dependency conditions
			if err := e.waitForDeps(ctx, cnt.Deps); err != nil {
				return 1, err
			}
			if _, err := e.Podman.Run(ctx, "start", cnt.Name); err != nil {
				return 1, err
			}
		}
	}
	if opts.NoStart || opts.Detach {
		return 0, nil
	}

	exitCodeFrom := opts.ExitCodeFrom
	abortOnExit := opts.AbortOnExit || exitCodeFrom != ""

	startCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type taskResult struct {
		service string
		code    int
	}
	results := make(chan taskResult)
	var wg sync.WaitGroup
	pending := 0
	for _, cnt := range e.Project.Containers {
		if excluded[cnt.Service] {
			continue
		}
		pending++
		wg.Add(1)
		go func(cnt *compose.Container) {
			defer wg.Done()
			results <- taskResult{cnt.Service, e.startContainer(startCtx, cnt)}
		}(cnt)
	}

	exitCode := 0
	exiting := false
	for i := 0; i < pending; i++ {
		r := <-results
		if abortOnExit && !exiting {
			time.Sleep(abortSettleDelay)
			cancel()
			exiting = true
		}
		if exitCodeFrom != "" && r.service == exitCodeFrom {
			exitCode = r.code
		}
	}
	wg.Wait()
	return exitCode, nil
}

// startContainer blocks until the container's dependency conditions hold,
// then starts it attached and reports its exit code.
func (e *Executor) startContainer(ctx context.Context, cnt *compose.Container) int {
	e.debugf("checking dependencies prior to container %s start", cnt.Name)
	if err := e.waitForDeps(ctx, cnt.Deps); err != nil {
		if !errors.Is(err, context.Canceled) {
			ui.Error("%s: %v", cnt.Name, err)
		}
		return 1
	}
	e.debugf("starting container %s", cnt.Name)
	code, err := e.Podman.Run(ctx, "start", "-a", cnt.Name)
	if err != nil {
		ui.Error("%s: %v", cnt.Name, err)
		return 1
	}
	return code
}

// createPods creates every project pod that does not already exist.
func (e *Executor) createPods(ctx context.Context) error {
	for _, pod := range e.Project.Pods {
		if code, err := e.Podman.Run(ctx, "pod", "exists", pod.Name); err == nil && code == 0 {
			continue
		}
		if _, err := e.Podman.Run(ctx, "pod", "create", "--name="+pod.Name); err != nil {
			return fmt.Errorf("create pod %s: %w", pod.Name, err)
		}
	}
	return nil
}

// recreateOnDrift tears the project down first when any running container
// was created from a different merged configuration (detected via the
// config-hash label), or when forced.
func (e *Executor) recreateOnDrift(ctx context.Context, force bool) error {
	drift := force
	if !drift {
		out, err := e.Podman.Output(ctx, "ps", "--filter", e.projectFilter(), "-a",
			"--format", `{{ index .Labels "`+compose.LabelConfigHash+`"}}`)
		if err != nil {
			// no containers to compare against is not a failure
			e.debugf("config drift probe: %v", err)
			return nil
		}
		for _, hash := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			if hash != "" && hash != e.Project.Hash {
				drift = true
				break
			}
		}
	}
	if !drift {
		return nil
	}
	ui.Info("Recreating containers")
	// a negative timeout keeps each container's own stop grace period
	return e.Down(ctx, DownOptions{Timeout: -1})
}
