package compose

import (
	"fmt"
	"sort"
)

// Container is one concrete replica of a service, fully resolved and ready
// for lifecycle operations. Records are built once during resolution and are
// not mutated after orchestration begins; ad-hoc run overrides operate on a
// Clone.
type Container struct {
	Name    string
	Num     int
	Service string
	Project string
	Pod     string
	Labels  []string
	Ports   []string
	Deps    DependencySet

	// Spec carries the merged service fields this replica was built from.
	Spec map[string]any
}

// Clone returns a deep copy whose Spec can be mutated without affecting the
// resolved project.
func (c *Container) Clone() *Container {
	out := *c
	out.Labels = append([]string(nil), c.Labels...)
	out.Ports = append([]string(nil), c.Ports...)
	out.Spec = deepCloneValue(c.Spec).(map[string]any)
	return &out
}

// GetString returns a scalar Spec field as a string, or "" when absent.
func (c *Container) GetString(key string) string {
	v, ok := c.Spec[key]
	if !ok || v == nil {
		return ""
	}
	return toString(v)
}

// GetList returns a Spec field canonicalized to a list of strings.
func (c *Container) GetList(key string) []string {
	return normAsList(c.Spec[key])
}

// Image returns the image reference for this container.
func (c *Container) Image() string {
	return c.GetString("image")
}

// Command returns the canonicalized command argv, if any.
func (c *Container) Command() []string {
	return stringSlice(c.Spec["command"])
}

// Entrypoint returns the canonicalized entrypoint argv, if any.
func (c *Container) Entrypoint() []string {
	return stringSlice(c.Spec["entrypoint"])
}

// EnvironmentArgs returns the container environment as sorted KEY=VAL
// entries; bare keys pass the host value through and render as KEY.
func (c *Container) EnvironmentArgs() ([]string, error) {
	env, err := normAsDict(c.Spec["environment"])
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", c.Name, err)
	}
	out := normAsList(env)
	sort.Strings(out)
	return out, nil
}

// Mounts parses and resolves every volume entry of the container.
func (c *Container) Mounts(p *Project) ([]*Mount, error) {
	entries, _ := c.Spec["volumes"].([]any)
	mounts := make([]*Mount, 0, len(entries))
	for _, entry := range entries {
		mount, err := parseMount(entry, p.Dirname)
		if err != nil {
			return nil, fmt.Errorf("container %s: %w", c.Name, err)
		}
		mount.resolve(p, c.Service)
		mounts = append(mounts, mount)
	}
	return mounts, nil
}

// NetworkNames returns the project-scoped names of every network the
// container joins, falling back to the project default network.
func (c *Container) NetworkNames(p *Project) []string {
	declared := c.DeclaredNetworks(p)
	out := make([]string, 0, len(declared))
	for _, net := range declared {
		out = append(out, p.NetworkName(net))
	}
	return out
}

// DeclaredNetworks returns the unscoped network keys the container joins.
func (c *Container) DeclaredNetworks(p *Project) []string {
	raw, ok := c.Spec["networks"]
	if !ok {
		if p.DefaultNet == "" {
			return nil
		}
		return []string{p.DefaultNet}
	}
	if m, ok := raw.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}
	return normAsList(raw)
}

// Aliases returns the network aliases for this container: the service name
// plus any aliases registered on it by links from other services.
func (c *Container) Aliases(p *Project) []string {
	aliases := []string{c.Service}
	service, ok := p.Services[c.Service]
	if !ok {
		return aliases
	}
	extra, _ := service["_aliases"].(map[string]struct{})
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	return append(aliases, names...)
}

// StopGracePeriod returns the configured stop_grace_period in seconds, or
// the 10 second default.
func (c *Container) StopGracePeriod() int {
	if secs, ok := parseSeconds(c.Spec["stop_grace_period"]); ok {
		return secs
	}
	return DefaultStopGracePeriod
}

// DefaultStopGracePeriod is the per-container shutdown grace in seconds when
// neither the specification nor an invocation flag overrides it.
const DefaultStopGracePeriod = 10

func stringSlice(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil
		}
		return []string{toString(raw)}
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = toString(item)
	}
	return out
}
