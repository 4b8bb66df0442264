package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cameronsjo/stevedore/internal/compose"
)

// RunOptions configures an ad-hoc one-off container run.
type RunOptions struct {
	Service      string
	Command      []string
	Detach       bool
	Remove       bool
	NoDeps       bool
	Name         string
	Entrypoint   string
	User         string
	Workdir      string
	Env          []string
	Publish      []string
	Volumes      []string
	ServicePorts bool
	NoTTY        bool
}

// RunOneOff starts a single ad-hoc container for a service, after bringing
// up its dependencies detached. Overrides apply to a copy of the resolved
// record; the project itself is left untouched.
func (e *Executor) RunOneOff(ctx context.Context, opts RunOptions) (int, error) {
	if err := e.AssertServices([]string{opts.Service}); err != nil {
		return 1, err
	}
	if err := e.createPods(ctx); err != nil {
		return 1, err
	}

	names := e.Project.ContainerNamesByService[opts.Service]
	if len(names) == 0 {
		return 1, fmt.Errorf("service %s has no containers", opts.Service)
	}
	cnt := e.Project.ContainerByName[names[0]].Clone()

	if len(cnt.Deps) > 0 && !opts.NoDeps {
		if _, err := e.Up(ctx, UpOptions{
			Detach:   true,
			Services: cnt.Deps.ServiceNames(),
		}); err != nil {
			return 1, err
		}
	}

	e.applyRunOverrides(cnt, opts)
	if err := e.ensureResources(ctx, cnt); err != nil {
		return 1, err
	}
	args, err := containerToArgs(e.Project, cnt, opts.Detach)
	if err != nil {
		return 1, err
	}
	runArgs := []string{"run"}
	if !opts.Detach {
		runArgs = append(runArgs, "-i")
		if opts.Remove {
			runArgs = append(runArgs, "--rm")
		}
	}
	return e.Podman.Run(ctx, append(runArgs, args...)...)
}

func (e *Executor) applyRunOverrides(cnt *compose.Container, opts RunOptions) {
	cnt.Name = opts.Name
	if cnt.Name == "" {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		cnt.Name = fmt.Sprintf("%s_%s_tmp%s", e.Project.Name, opts.Service, suffix)
	}
	if opts.Entrypoint != "" {
		cnt.Spec["entrypoint"] = opts.Entrypoint
	}
	if opts.User != "" {
		cnt.Spec["user"] = opts.User
	}
	if opts.Workdir != "" {
		cnt.Spec["working_dir"] = opts.Workdir
	}
	if len(opts.Env) > 0 {
		env, _ := cnt.Spec["environment"].(map[string]any)
		if env == nil {
			env = map[string]any{}
		}
		for _, kv := range opts.Env {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			} else {
				env[kv] = nil
			}
		}
		cnt.Spec["environment"] = env
	}
	if !opts.ServicePorts {
		cnt.Ports = nil
		delete(cnt.Spec, "expose")
	}
	cnt.Ports = append(cnt.Ports, opts.Publish...)
	if len(opts.Volumes) > 0 {
		volumes, _ := cnt.Spec["volumes"].([]any)
		for _, v := range opts.Volumes {
			volumes = append(volumes, v)
		}
		cnt.Spec["volumes"] = volumes
	}
	cnt.Spec["tty"] = !opts.NoTTY
	if len(opts.Command) > 0 {
		command := make([]any, len(opts.Command))
		for i, c := range opts.Command {
			command[i] = c
		}
		cnt.Spec["command"] = command
	}
	// --rm and a restart policy are mutually exclusive
	if opts.Remove {
		delete(cnt.Spec, "restart")
	}
}
