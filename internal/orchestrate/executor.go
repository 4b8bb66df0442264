// Package orchestrate drives container lifecycle operations for a resolved
// project against the external container tool, honoring the dependency
// graph, concurrency limits, and cancellation.
package orchestrate

import (
	"fmt"
	"os"

	"github.com/cameronsjo/stevedore/internal/compose"
	"github.com/cameronsjo/stevedore/internal/podman"
)

// Executor issues per-container lifecycle operations. The container registry
// it reads from is built during resolution and never mutated once
// orchestration begins.
type Executor struct {
	Project *compose.Project
	Podman  podman.Runner
	Verbose bool

	createdNetworks map[string]bool
}

// New returns an Executor for the resolved project.
func New(project *compose.Project, runner podman.Runner, verbose bool) *Executor {
	return &Executor{
		Project:         project,
		Podman:          runner,
		Verbose:         verbose,
		createdNetworks: make(map[string]bool),
	}
}

// projectFilter is the label filter scoping list queries to this project.
func (e *Executor) projectFilter() string {
	return "label=" + compose.LabelProject + "=" + e.Project.Name
}

// excludedServices computes which services a service filter leaves out:
// requesting a service keeps it and its transitive dependencies.
func (e *Executor) excludedServices(requested []string) map[string]bool {
	if len(requested) == 0 {
		return map[string]bool{}
	}
	excluded := make(map[string]bool, len(e.Project.Services))
	for name := range e.Project.Services {
		excluded[name] = true
	}
	for _, name := range requested {
		service, ok := e.Project.Services[name]
		if !ok {
			continue
		}
		for dep := range compose.ServiceDeps(service) {
			delete(excluded, dep.Service)
		}
		delete(excluded, name)
	}
	return excluded
}

// AssertServices returns an error naming any requested service that does not
// exist in the resolved project.
func (e *Executor) AssertServices(requested []string) error {
	for _, name := range requested {
		if _, ok := e.Project.Services[name]; !ok {
			return fmt.Errorf("no such service: %s", name)
		}
	}
	return nil
}

func (e *Executor) debugf(format string, args ...any) {
	if e.Verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
