package orchestrate

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cameronsjo/stevedore/internal/compose"
)

// containerToArgs translates one container record into the argument vector
// for "podman create" or "podman run". This is a deterministic formatting
// concern; it carries the commonly used service fields, not the full
// translation surface of the engine.
func containerToArgs(p *compose.Project, cnt *compose.Container, detach bool) ([]string, error) {
	args := []string{"--name=" + cnt.Name}
	if cnt.Pod != "" {
		args = append(args, "--pod="+cnt.Pod)
	}
	if detach {
		args = append(args, "-d")
	}
	for _, label := range cnt.Labels {
		args = append(args, "--label", label)
	}

	for _, envFile := range cnt.GetList("env_file") {
		if !filepath.IsAbs(envFile) {
			envFile = filepath.Join(p.Dirname, envFile)
		}
		args = append(args, "--env-file", envFile)
	}
	env, err := cnt.EnvironmentArgs()
	if err != nil {
		return nil, err
	}
	for _, kv := range env {
		args = append(args, "-e", kv)
	}

	mounts, err := cnt.Mounts(p)
	if err != nil {
		return nil, err
	}
	for _, mount := range mounts {
		if mount.Type == "tmpfs" {
			args = append(args, "--tmpfs", mount.Target)
			continue
		}
		args = append(args, "-v", mount.SpecString())
	}

	if mode := cnt.GetString("network_mode"); mode != "" {
		args = append(args, "--network="+mode)
	} else if networks := cnt.NetworkNames(p); len(networks) > 0 {
		for _, net := range networks {
			args = append(args, "--network", net)
		}
		for _, alias := range cnt.Aliases(p) {
			args = append(args, "--network-alias", alias)
		}
	}

	if hostname := cnt.GetString("hostname"); hostname != "" {
		args = append(args, "--hostname", hostname)
	}
	if user := cnt.GetString("user"); user != "" {
		args = append(args, "-u", user)
	}
	if workdir := cnt.GetString("working_dir"); workdir != "" {
		args = append(args, "-w", workdir)
	}
	if restart := cnt.GetString("restart"); restart != "" {
		args = append(args, "--restart", restart)
	}
	for _, opt := range cnt.GetList("security_opt") {
		args = append(args, "--security-opt", opt)
	}
	if tty, _ := cnt.Spec["tty"].(bool); tty {
		args = append(args, "--tty")
	}
	if interactive, _ := cnt.Spec["stdin_open"].(bool); interactive {
		args = append(args, "-i")
	}
	if init, _ := cnt.Spec["init"].(bool); init {
		args = append(args, "--init")
	}

	for _, port := range cnt.Ports {
		args = append(args, "-p", port)
	}
	for _, port := range cnt.GetList("expose") {
		args = append(args, "--expose", port)
	}

	if entrypoint := cnt.Entrypoint(); entrypoint != nil {
		encoded, err := json.Marshal(entrypoint)
		if err != nil {
			return nil, fmt.Errorf("encode entrypoint: %w", err)
		}
		args = append(args, "--entrypoint", string(encoded))
	}

	args = append(args, cnt.Image())
	args = append(args, cnt.Command()...)
	return args, nil
}
