package compose

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project-scope labels stamped on every created resource so later list and
// filter queries can be scoped back to this project. The io.podman pair is
// what our own queries use; the com.docker pair is a compatibility alias.
const (
	LabelProject    = "io.podman.compose.project"
	LabelConfigHash = "io.podman.compose.config-hash"
)

// defaultFiles is the discovery order when no -f flag and no COMPOSE_FILE
// variable name the specification documents.
var defaultFiles = []string{
	"compose.yaml",
	"compose.yml",
	"compose.override.yaml",
	"compose.override.yml",
	"podman-compose.yaml",
	"podman-compose.yml",
	"docker-compose.yml",
	"docker-compose.yaml",
	"docker-compose.override.yml",
	"docker-compose.override.yaml",
	"container-compose.yml",
	"container-compose.yaml",
	"container-compose.override.yml",
	"container-compose.override.yaml",
}

var projectNamePattern = regexp.MustCompile(`[^-_a-z0-9]`)

// UnresolvedReferenceError reports a service referencing an undeclared
// top-level volume or network.
type UnresolvedReferenceError struct {
	Kind string // "volume" or "network"
	Name string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("%s %q is not defined at the top level", e.Kind, e.Name)
}

// Pod is a container grouping created before any of its members.
type Pod struct {
	Name string
}

// LoadOptions configures specification resolution.
type LoadOptions struct {
	// Files lists the specification documents in merge order. Empty means
	// discover via COMPOSE_FILE or the default file list.
	Files []string
	// ProjectName overrides project name derivation.
	ProjectName string
	// EnvFile is the dotenv file to load; defaults to ".env".
	EnvFile string
	// Profiles selects which profiled services to include.
	Profiles []string
	// Env holds KEY=VAL pairs layered over the process environment.
	Env []string
	// InPod groups all containers into one project pod.
	InPod bool
}

// Project is the fully resolved specification: one merged document turned
// into ordered container records plus the bookkeeping the executor needs.
type Project struct {
	Name       string
	Dirname    string
	Files      []string
	Environ    Environment
	Services   map[string]map[string]any
	Networks   map[string]any
	Volumes    map[string]any
	Secrets    map[string]any
	DefaultNet string

	// Hash is a content hash of the merged document, used to detect
	// configuration drift between runs.
	Hash       string
	MergedYAML string
	Warnings   []string

	Pods                    []Pod
	Containers              []*Container
	ContainerByName         map[string]*Container
	ContainerNamesByService map[string][]string
}

// Load resolves the specification documents into a Project. All resolution
// errors surface here, before any external operation is issued.
func Load(opts LoadOptions) (*Project, error) {
	environ := OSEnvironment()

	files, err := resolveFiles(opts.Files, environ)
	if err != nil {
		return nil, err
	}

	dirname, err := filepath.Abs(filepath.Dir(files[0]))
	if err != nil {
		return nil, err
	}

	// Load the project .env (from the document directory) unless an explicit
	// env file replaces it, then layer the requested one on top.
	dotenv, err := loadDotenv(filepath.Join(dirname, ".env"))
	if err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if opts.EnvFile != "" && opts.EnvFile != ".env" {
		extra, err := loadDotenv(opts.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", opts.EnvFile, err)
		}
		dotenv.Merge(extra)
	}
	env := dotenv
	env.Merge(environ)
	pathSep := pathSeparator(env)
	env.Merge(Environment{
		"COMPOSE_PROJECT_DIR":    dirname,
		"COMPOSE_FILE":           strings.Join(files, pathSep),
		"COMPOSE_PATH_SEPARATOR": pathSep,
	})
	if len(opts.Env) > 0 {
		overrides, err := normAsDict(toAnySlice(opts.Env))
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			if v != nil {
				env[k] = toString(v)
			}
		}
	}

	document, err := mergeFiles(files, env)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Dirname: dirname,
		Files:   files,
		Environ: env,
	}

	services := resolveProfiles(document, opts.Profiles)
	document["services"] = servicesToAny(services)
	normalizeFinal(document, dirname)

	// Hash and render the merged document before any bookkeeping keys are
	// injected into the service records.
	canonical, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("hash merged document: %w", err)
	}
	p.Hash = fmt.Sprintf("%x", sha256.Sum256(canonical))
	rendered, err := yaml.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("render merged document: %w", err)
	}
	p.MergedYAML = string(rendered)

	p.Name, err = deriveProjectName(opts.ProjectName, document, env, dirname)
	if err != nil {
		return nil, err
	}
	env["COMPOSE_PROJECT_NAME"] = p.Name

	p.Services = services
	if len(services) == 0 {
		p.Warnings = append(p.Warnings, "no services defined")
	}

	// Synthetic extends edges first, purely to order extension resolution;
	// the real closure is rebuilt from scratch afterwards.
	if err := flatDeps(services, true); err != nil {
		return nil, err
	}
	if err := resolveExtends(services, servicesByDependencyCount(services), env, dirname); err != nil {
		return nil, err
	}
	if err := flatDeps(services, false); err != nil {
		return nil, err
	}

	if err := p.resolveNetworks(document); err != nil {
		return nil, err
	}
	p.Volumes, _ = document["volumes"].(map[string]any)
	if p.Volumes == nil {
		p.Volumes = map[string]any{}
	}
	p.Secrets, _ = document["secrets"].(map[string]any)

	if err := p.buildContainers(opts.InPod); err != nil {
		return nil, err
	}
	return p, nil
}

func pathSeparator(env Environment) string {
	if sep, ok := env["COMPOSE_PATH_SEPARATOR"]; ok && sep != "" {
		return sep
	}
	return string(os.PathListSeparator)
}

// resolveFiles returns the documents to merge, in caller-supplied order,
// falling back to COMPOSE_FILE and then to the default discovery list.
func resolveFiles(files []string, env Environment) ([]string, error) {
	baseDir := ""
	if dir, ok := env["COMPOSE_PROJECT_DIR"]; ok {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			baseDir = dir
		}
	}
	resolve := func(f string) string {
		if baseDir != "" && !filepath.IsAbs(f) {
			return filepath.Join(baseDir, f)
		}
		return f
	}

	if len(files) == 0 {
		candidates := defaultFiles
		if fromEnv, ok := env["COMPOSE_FILE"]; ok && fromEnv != "" {
			candidates = strings.Split(fromEnv, pathSeparator(env))
		}
		for _, f := range candidates {
			if _, err := os.Stat(resolve(f)); err == nil {
				files = append(files, f)
			}
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no compose.yaml, docker-compose.yml or container-compose.yml file found, pass files with -f")
		}
	}

	var missing []string
	resolved := make([]string, 0, len(files))
	for _, f := range files {
		rf := resolve(f)
		if _, err := os.Stat(rf); err != nil {
			missing = append(missing, f)
			continue
		}
		resolved = append(resolved, rf)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing files: %s", strings.Join(missing, ", "))
	}
	return resolved, nil
}

// mergeFiles runs each document through normalize and substitute, then
// accumulates them into one merged document in file order. An "include"
// directive appends the referenced files to the processing queue; the key is
// removed so later iterations do not reprocess it.
func mergeFiles(files []string, env Environment) (map[string]any, error) {
	merged := map[string]any{}
	queue := append([]string(nil), files...)
	for i := 0; i < len(queue); i++ {
		filename := queue[i]
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		var content map[string]any
		if err := yaml.Unmarshal(data, &content); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if content == nil {
			return nil, fmt.Errorf("%s: compose file does not contain a top level object", filename)
		}
		if err := normalizeDocument(content); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		substituted, err := Substitute(content, env)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if err := Merge(merged, substituted.(map[string]any)); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if include, ok := merged["include"]; ok {
			base := filepath.Dir(filename)
			for _, inc := range normAsList(include) {
				if !filepath.IsAbs(inc) {
					inc = filepath.Join(base, inc)
				}
				queue = append(queue, inc)
			}
			delete(merged, "include")
		}
	}
	return merged, nil
}

// resolveProfiles keeps services with no profiles plus those matching a
// requested profile.
func resolveProfiles(document map[string]any, requested []string) map[string]map[string]any {
	want := make(map[string]bool, len(requested))
	for _, p := range requested {
		want[p] = true
	}
	raw, _ := document["services"].(map[string]any)
	services := make(map[string]map[string]any, len(raw))
	for name, entry := range raw {
		service, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		profiles := normAsList(service["profiles"])
		keep := len(profiles) == 0
		for _, p := range profiles {
			if want[p] {
				keep = true
				break
			}
		}
		if keep {
			services[name] = service
		}
	}
	return services
}

func servicesToAny(services map[string]map[string]any) map[string]any {
	out := make(map[string]any, len(services))
	for name, service := range services {
		out[name] = service
	}
	return out
}

// deriveProjectName picks the project name: flag, top-level name key,
// COMPOSE_PROJECT_NAME, then the document directory basename. Whatever the
// source, disallowed characters are stripped before the name is used in
// container and resource names.
func deriveProjectName(flag string, document map[string]any, env Environment, dirname string) (string, error) {
	name := flag
	if name == "" {
		name, _ = document["name"].(string)
	}
	if name == "" {
		name = env["COMPOSE_PROJECT_NAME"]
	}
	if name == "" {
		name = strings.ToLower(filepath.Base(dirname))
	}
	normalized := projectNamePattern.ReplaceAllString(name, "")
	if normalized == "" {
		return "", fmt.Errorf("project name normalized from %q is empty", name)
	}
	return normalized, nil
}

// resolveNetworks validates that every network a service references is
// declared and picks the default network.
func (p *Project) resolveNetworks(document map[string]any) error {
	nets, _ := document["networks"].(map[string]any)
	if len(nets) == 0 {
		nets = map[string]any{"default": nil}
	}
	p.Networks = nets

	switch {
	case len(nets) == 1:
		for name := range nets {
			p.DefaultNet = name
		}
	case hasKey(nets, "default"):
		p.DefaultNet = "default"
	}

	used := make(map[string]bool)
	for _, service := range p.Services {
		raw, ok := service["networks"]
		if !ok {
			if p.DefaultNet != "" {
				used[p.DefaultNet] = true
			}
			continue
		}
		if m, isMap := raw.(map[string]any); isMap {
			for name := range m {
				used[name] = true
			}
			continue
		}
		for _, name := range normAsList(raw) {
			used[name] = true
		}
	}
	var missing, unused []string
	for name := range used {
		if !hasKey(nets, name) {
			missing = append(missing, name)
		}
	}
	for name := range nets {
		if !used[name] && name != "default" {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		p.Warnings = append(p.Warnings, "unused networks: "+strings.Join(unused, ", "))
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &UnresolvedReferenceError{Kind: "network", Name: strings.Join(missing, ", ")}
	}
	return nil
}

// NetworkName returns the engine-side name of a declared network: external
// networks keep their name, project networks get the project prefix.
func (p *Project) NetworkName(net string) string {
	declared, _ := p.Networks[net].(map[string]any)
	if declared != nil {
		if ext := declared["external"]; ext != nil {
			if name, _ := declared["name"].(string); name != "" {
				return name
			}
			return net
		}
		if name, _ := declared["name"].(string); name != "" {
			return name
		}
	}
	return p.Name + "_" + net
}

// buildContainers expands each service into its replica container records,
// stamps identity labels, checks volume references, and orders the result by
// ascending dependency count.
func (p *Project) buildContainers(inPod bool) error {
	podName := ""
	if inPod {
		podName = "pod_" + p.Name
		p.Pods = []Pod{{Name: podName}}
	}

	projectLabels := []string{
		LabelConfigHash + "=" + p.Hash,
		LabelProject + "=" + p.Name,
		"com.docker.compose.project=" + p.Name,
		"com.docker.compose.project.working_dir=" + p.Dirname,
		"com.docker.compose.project.config_files=" + strings.Join(p.Files, ","),
	}

	p.ContainerNamesByService = make(map[string][]string, len(p.Services))
	p.ContainerByName = make(map[string]*Container)

	for _, serviceName := range servicesByDependencyCount(p.Services) {
		service := p.Services[serviceName]
		replicas := replicaCount(service)
		for num := 1; num <= replicas; num++ {
			name := fmt.Sprintf("%s_%s_%d", p.Name, serviceName, num)
			if custom, _ := service["container_name"].(string); custom != "" && num == 1 {
				name = custom
			}
			ports, err := normPorts(service["ports"])
			if err != nil {
				return fmt.Errorf("service %s: %w", serviceName, err)
			}
			labels := normAsList(service["labels"])
			sort.Strings(labels)
			labels = append(labels, projectLabels...)
			labels = append(labels,
				fmt.Sprintf("com.docker.compose.container-number=%d", num),
				"com.docker.compose.service="+serviceName,
			)

			cnt := &Container{
				Name:    name,
				Num:     num,
				Service: serviceName,
				Project: p.Name,
				Pod:     podName,
				Labels:  labels,
				Ports:   ports,
				Deps:    ServiceDeps(service),
				Spec:    service,
			}
			if cnt.Image() == "" {
				service["image"] = p.Name + "_" + serviceName
			}

			// Every named volume must resolve to a declared top-level
			// volume; anonymous volumes are auto-declared.
			mounts, err := cnt.Mounts(p)
			if err != nil {
				return err
			}
			for _, mount := range mounts {
				if mount.Type == "volume" && mount.Source != "" && !hasKey(p.Volumes, mount.Source) {
					return &UnresolvedReferenceError{Kind: "volume", Name: mount.Source}
				}
			}

			p.Containers = append(p.Containers, cnt)
			p.ContainerByName[name] = cnt
			p.ContainerNamesByService[serviceName] = append(p.ContainerNamesByService[serviceName], name)
		}
	}
	return nil
}

// ServiceNames returns all resolved service names, sorted.
func (p *Project) ServiceNames() []string {
	names := make([]string, 0, len(p.Services))
	for name := range p.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func replicaCount(service map[string]any) int {
	deploy, _ := service["deploy"].(map[string]any)
	if deploy == nil {
		return 1
	}
	switch v := deploy["replicas"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
