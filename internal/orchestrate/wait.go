package orchestrate

import (
	"context"
	"sort"
	"time"

	"github.com/cameronsjo/stevedore/internal/compose"
)

// depPollInterval is the fixed delay between dependency-condition poll
// attempts. The loop has no overall timeout; it is bounded only by ctx.
const depPollInterval = time.Second

// waitForDeps blocks until every dependency edge is satisfied. Edges are
// grouped by condition; each group polls a single "wait --condition" call
// against all of its target containers, so the condition is satisfied only
// once every peer reports it. Transient tool failures are logged at debug
// level and retried, never surfaced.
func (e *Executor) waitForDeps(ctx context.Context, deps compose.DependencySet) error {
	if len(deps) == 0 {
		return nil
	}
	for _, condition := range compose.Conditions {
		var names []string
		for dep := range deps {
			if dep.Condition != condition {
				continue
			}
			names = append(names, e.Project.ContainerNamesByService[dep.Service]...)
		}
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		args := append([]string{"wait", "--condition=" + string(condition)}, names...)
		for {
			_, err := e.Podman.Output(ctx, args...)
			if err == nil {
				e.debugf("dependencies for condition %s fulfilled on %v", condition, names)
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.debugf("waiting for condition %s on %v: %v", condition, names, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(depPollInterval):
			}
		}
	}
	return nil
}
