package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/cameronsjo/stevedore/internal/compose"
	"github.com/cameronsjo/stevedore/internal/podman"
)

// ensureResources makes the networks and volumes a container mounts exist
// before the container itself is created. Failures here are fatal: a missing
// shared prerequisite would fail every dependent downstream anyway.
func (e *Executor) ensureResources(ctx context.Context, cnt *compose.Container) error {
	if cnt.GetString("network_mode") == "" {
		for _, net := range cnt.DeclaredNetworks(e.Project) {
			if err := e.ensureNetwork(ctx, net); err != nil {
				return err
			}
		}
	}
	mounts, err := cnt.Mounts(e.Project)
	if err != nil {
		return err
	}
	for _, mount := range mounts {
		if err := e.ensureVolume(ctx, mount); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) ensureNetwork(ctx context.Context, net string) error {
	name := e.Project.NetworkName(net)
	if e.createdNetworks[name] {
		return nil
	}
	if _, err := e.Podman.Output(ctx, "network", "exists", name); err == nil {
		e.createdNetworks[name] = true
		return nil
	}

	declared, _ := e.Project.Networks[net].(map[string]any)
	if declared != nil && declared["external"] != nil && declared["external"] != false {
		return fmt.Errorf("external network %q does not exist", name)
	}

	args := []string{"network", "create",
		"--label", compose.LabelProject + "=" + e.Project.Name,
		"--label", "com.docker.compose.project=" + e.Project.Name,
	}
	if declared != nil {
		if driver, _ := declared["driver"].(string); driver != "" {
			args = append(args, "--driver", driver)
		}
		if opts, _ := declared["driver_opts"].(map[string]any); opts != nil {
			for k, v := range opts {
				args = append(args, "--opt", fmt.Sprintf("%s=%v", k, v))
			}
		}
		if internal, _ := declared["internal"].(bool); internal {
			args = append(args, "--internal")
		}
	}
	args = append(args, name)
	if _, err := e.Podman.Output(ctx, args...); err != nil {
		return fmt.Errorf("create network %s: %w", name, err)
	}
	e.createdNetworks[name] = true
	return nil
}

// ensureVolume creates the host directory for bind mounts and the named
// volume for volume mounts. External volumes must already exist.
func (e *Executor) ensureVolume(ctx context.Context, mount *compose.Mount) error {
	switch mount.Type {
	case "bind":
		// best effort, the engine reports unusable paths itself
		_ = os.MkdirAll(mount.Source, 0o755)
		return nil
	case "volume":
	default:
		return nil
	}
	if mount.Name == "" {
		return nil
	}

	_, err := e.Podman.Output(ctx, "volume", "inspect", mount.Name)
	if err == nil {
		return nil
	}
	var exitErr *podman.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}
	if mount.External() {
		return fmt.Errorf("external volume %q does not exist", mount.Name)
	}

	args := []string{"volume", "create",
		"--label", compose.LabelProject + "=" + e.Project.Name,
		"--label", "com.docker.compose.project=" + e.Project.Name,
	}
	if mount.Volume != nil {
		for _, label := range sortedLabels(mount.Volume["labels"]) {
			args = append(args, "--label", label)
		}
		if driver, _ := mount.Volume["driver"].(string); driver != "" {
			args = append(args, "--driver", driver)
		}
		if opts, _ := mount.Volume["driver_opts"].(map[string]any); opts != nil {
			for k, v := range opts {
				args = append(args, "--opt", fmt.Sprintf("%s=%v", k, v))
			}
		}
	}
	args = append(args, mount.Name)
	if _, err := e.Podman.Output(ctx, args...); err != nil {
		return fmt.Errorf("create volume %s: %w", mount.Name, err)
	}
	_, err = e.Podman.Output(ctx, "volume", "inspect", mount.Name)
	return err
}

// sortedLabels canonicalizes a labels field (list or mapping) to KEY=VAL.
func sortedLabels(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case map[string]any:
		for k, val := range v {
			if val == nil {
				out = append(out, k)
			} else {
				out = append(out, fmt.Sprintf("%s=%v", k, val))
			}
		}
	case []any:
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
	}
	sort.Strings(out)
	return out
}
