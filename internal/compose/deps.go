package compose

import (
	"fmt"
	"sort"
	"strings"
)

// Condition is a container lifecycle state used as a wait predicate on a
// dependency edge.
type Condition string

const (
	ConditionConfigured  Condition = "configured"
	ConditionCreated     Condition = "created"
	ConditionExited      Condition = "exited"
	ConditionHealthy     Condition = "healthy"
	ConditionInitialized Condition = "initialized"
	ConditionPaused      Condition = "paused"
	ConditionRemoving    Condition = "removing"
	ConditionRunning     Condition = "running"
	ConditionStopped     Condition = "stopped"
	ConditionStopping    Condition = "stopping"
	ConditionUnhealthy   Condition = "unhealthy"
)

// Conditions lists every recognized condition in the order wait groups are
// processed by the executor.
var Conditions = []Condition{
	ConditionConfigured,
	ConditionCreated,
	ConditionExited,
	ConditionHealthy,
	ConditionInitialized,
	ConditionPaused,
	ConditionRemoving,
	ConditionRunning,
	ConditionStopped,
	ConditionStopping,
	ConditionUnhealthy,
}

// docker-compose condition names map onto engine lifecycle states.
var legacyConditions = map[string]Condition{
	"service_healthy":                ConditionHealthy,
	"service_started":                ConditionRunning,
	"service_completed_successfully": ConditionStopped,
}

// ParseCondition normalizes a condition value, accepting both engine state
// names and the legacy docker-compose aliases.
func ParseCondition(value string) (Condition, error) {
	for _, c := range Conditions {
		if string(c) == value {
			return c, nil
		}
	}
	if c, ok := legacyConditions[value]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%q is not a valid condition for a service dependency", value)
}

// Dependency is a directed (service, condition) requirement that must be
// observed before a dependent container starts.
type Dependency struct {
	Service   string
	Condition Condition
}

// DependencySet holds dependency edges deduplicated by (service, condition).
// A set never contains a self-edge.
type DependencySet map[Dependency]struct{}

func (s DependencySet) Add(d Dependency) { s[d] = struct{}{} }

// HasService reports whether any edge targets the named service.
func (s DependencySet) HasService(name string) bool {
	for d := range s {
		if d.Service == name {
			return true
		}
	}
	return false
}

// ServiceNames returns the distinct target services, sorted.
func (s DependencySet) ServiceNames() []string {
	seen := make(map[string]bool, len(s))
	for d := range s {
		seen[d.Service] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s DependencySet) String() string {
	parts := make([]string, 0, len(s))
	for d := range s {
		parts = append(parts, d.Service+":"+string(d.Condition))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, " ") + "}"
}

// ServiceDeps fetches the injected _deps set of a service record.
func ServiceDeps(service map[string]any) DependencySet {
	deps, _ := service["_deps"].(DependencySet)
	return deps
}

// flatDeps seeds each service's _deps set from depends_on and links, then
// expands it to the transitive closure. It is idempotent: the sets are
// rebuilt from scratch on every call, so running it before and after extends
// resolution is safe.
//
// With withExtends set, a service carrying an extends reference instead gets
// a single synthetic edge to its base service. Those edges exist only to
// produce an extension processing order and are discarded when flatDeps runs
// again for real.
func flatDeps(services map[string]map[string]any, withExtends bool) error {
	for name, service := range services {
		deps := DependencySet{}
		service["_deps"] = deps

		if withExtends {
			if ext, ok := service["extends"].(map[string]any); ok {
				if base, _ := ext["service"].(string); base != "" {
					if base != name {
						deps.Add(Dependency{Service: base, Condition: ConditionRunning})
					}
					continue
				}
			}
		}

		if declared, ok := service["depends_on"].(map[string]any); ok {
			for depName, spec := range declared {
				if depName == name {
					continue
				}
				condition := "service_started"
				if m, ok := spec.(map[string]any); ok {
					if c, ok := m["condition"].(string); ok {
						condition = c
					}
				}
				cond, err := ParseCondition(condition)
				if err != nil {
					return fmt.Errorf("service %s depends on %s: %w", name, depName, err)
				}
				deps.Add(Dependency{Service: depName, Condition: cond})
			}
		}

		// links imply a running dependency; a "name:alias" link also
		// registers the alias on the target service
		for _, link := range normAsList(service["links"]) {
			target, alias, hasAlias := strings.Cut(link, ":")
			if target == name {
				continue
			}
			deps.Add(Dependency{Service: target, Condition: ConditionRunning})
			if !hasAlias {
				continue
			}
			linked, ok := services[target]
			if !ok {
				continue
			}
			aliases, ok := linked["_aliases"].(map[string]struct{})
			if !ok {
				aliases = make(map[string]struct{})
				linked["_aliases"] = aliases
			}
			aliases[alias] = struct{}{}
		}
	}

	for name := range services {
		recDeps(services, name, name)
	}
	return nil
}

// recDeps expands the dependency set of name in place by unioning in the
// sets of its direct dependencies. Expansion stops along any path whose
// dependency set already points back at startPoint, so a service cycle
// degrades to a partial set instead of diverging.
func recDeps(services map[string]map[string]any, name, startPoint string) DependencySet {
	deps := ServiceDeps(services[name])
	direct := make([]Dependency, 0, len(deps))
	for d := range deps {
		direct = append(direct, d)
	}
	for _, dep := range direct {
		if dep.Service == name {
			continue
		}
		depService, ok := services[dep.Service]
		if !ok {
			continue
		}
		if ServiceDeps(depService).HasService(startPoint) {
			continue
		}
		for d := range recDeps(services, dep.Service, startPoint) {
			deps[d] = struct{}{}
		}
	}
	return deps
}

// servicesByDependencyCount returns service names sorted by ascending size
// of their dependency set, name as tie-breaker. This is the creation order:
// a cheap approximation of topological order, sufficient because the
// executor additionally enforces real-time condition waits.
func servicesByDependencyCount(services map[string]map[string]any) []string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ni, nj := len(ServiceDeps(services[names[i]])), len(ServiceDeps(services[names[j]]))
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})
	return names
}
