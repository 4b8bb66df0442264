package compose

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// Compose files accept strings, lists and mappings interchangeably for a
// number of fields. Normalization runs once per document, before any merge,
// so the rest of the engine only ever sees one canonical shape per field:
//
//	build                       -> mapping with a "context" key
//	command, entrypoint         -> argv list
//	env_file, security_opt,
//	volumes                     -> list
//	environment, labels         -> mapping (bare KEY entries map to nil)
//	extends                     -> mapping with a "service" key
//	depends_on                  -> mapping service -> {condition: ...}

// normAsList canonicalizes a scalar-or-list-or-mapping value into a list of
// strings; mapping entries become "key=value" (or bare "key" for nil values).
func normAsList(src any) []string {
	switch v := src.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make([]string, 0, len(v))
		for k, val := range v {
			if val == nil {
				out = append(out, k)
			} else {
				out = append(out, k+"="+toString(val))
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, toString(item))
		}
		return out
	case []string:
		return v
	default:
		return []string{toString(v)}
	}
}

// normAsDict canonicalizes a list-or-mapping value into mapping form:
// "KEY=VAL" becomes {KEY: VAL} and a bare "KEY" becomes {KEY: nil}.
func normAsDict(src any) (map[string]any, error) {
	switch v := src.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out, nil
	case []any:
		out := make(map[string]any, len(v))
		for _, item := range v {
			s := toString(item)
			if s == "" {
				continue
			}
			if k, val, ok := strings.Cut(s, "="); ok {
				out[k] = val
			} else {
				out[s] = nil
			}
		}
		return out, nil
	case string:
		if k, val, ok := strings.Cut(v, "="); ok {
			return map[string]any{k: val}, nil
		}
		return map[string]any{v: nil}, nil
	default:
		return nil, fmt.Errorf("expected mapping, list or string, got %T", src)
	}
}

// normPorts canonicalizes the ports field into a list of short-form strings.
func normPorts(src any) ([]string, error) {
	if src == nil {
		return nil, nil
	}
	items, ok := src.([]any)
	if !ok {
		items = []any{src}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch p := item.(type) {
		case map[string]any:
			s, err := portMapToString(p)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		case string:
			out = append(out, p)
		case int:
			out = append(out, fmt.Sprintf("%d", p))
		default:
			return nil, fmt.Errorf("port should be either string or mapping, got %T", item)
		}
	}
	return out, nil
}

func portMapToString(port map[string]any) (string, error) {
	target := port["target"]
	if target == nil {
		return "", fmt.Errorf("target container port must be specified")
	}
	published := ""
	if p := port["published"]; p != nil {
		published = toString(p)
	}
	var s string
	if hostIP, _ := port["host_ip"].(string); hostIP != "" {
		s = fmt.Sprintf("%s:%s:%s", hostIP, published, toString(target))
	} else if published != "" {
		s = published + ":" + toString(target)
	} else {
		s = toString(target)
	}
	if protocol, _ := port["protocol"].(string); protocol != "" && protocol != "tcp" {
		s += "/" + protocol
	}
	return s, nil
}

// normalizeService canonicalizes one service record in place. subDir is the
// directory prefix applied to relative build contexts when the service comes
// from a cross-file extends reference.
func normalizeService(service map[string]any, subDir string) error {
	if build, ok := service["build"].(string); ok {
		service["build"] = map[string]any{"context": build}
	}
	if build, ok := service["build"].(map[string]any); ok {
		if subDir != "" {
			context, _ := build["context"].(string)
			context = strings.TrimPrefix(context, "./")
			context = strings.TrimSuffix(path.Join(subDir, context), "/")
			if context == "" {
				context = "."
			}
			build["context"] = context
		}
		if contexts, ok := build["additional_contexts"].(map[string]any); ok {
			flat := make([]any, 0, len(contexts))
			for k, v := range contexts {
				flat = append(flat, k+"="+toString(v))
			}
			build["additional_contexts"] = flat
		}
	}

	for _, key := range []string{"command", "entrypoint"} {
		if s, ok := service[key].(string); ok {
			argv, err := shellwords.Parse(s)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			out := make([]any, len(argv))
			for i, a := range argv {
				out[i] = a
			}
			service[key] = out
		}
	}

	for _, key := range []string{"env_file", "security_opt", "volumes"} {
		if s, ok := service[key].(string); ok {
			service[key] = []any{s}
		}
	}

	if opts, ok := service["security_opt"].([]any); ok {
		for i, item := range opts {
			if s, ok := item.(string); ok && (s == "seccomp:unconfined" || s == "apparmor:unconfined") {
				opts[i] = strings.Replace(s, ":", "=", 1)
			}
		}
	}

	for _, key := range []string{"environment", "labels"} {
		if _, ok := service[key]; !ok {
			continue
		}
		normalized, err := normAsDict(service[key])
		if err != nil {
			return fmt.Errorf("normalize %s: %w", key, err)
		}
		service[key] = normalized
	}

	if ext, ok := service["extends"].(string); ok {
		service["extends"] = map[string]any{"service": ext}
	}

	if raw, ok := service["depends_on"]; ok {
		deps := map[string]any{}
		switch v := raw.(type) {
		case string:
			deps[v] = map[string]any{}
		case []any:
			for _, item := range v {
				deps[toString(item)] = map[string]any{}
			}
		case map[string]any:
			deps = v
		}
		// condition defaults to service_started unless requested otherwise
		for name, spec := range deps {
			m, ok := spec.(map[string]any)
			if !ok || m == nil {
				m = map[string]any{}
			}
			if _, ok := m["condition"]; !ok {
				m["condition"] = "service_started"
			}
			deps[name] = m
		}
		service["depends_on"] = deps
	}
	return nil
}

// normalizeDocument canonicalizes every service of one parsed document.
func normalizeDocument(doc map[string]any) error {
	services, _ := doc["services"].(map[string]any)
	for name, raw := range services {
		service, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("service %s is not a mapping", name)
		}
		if err := normalizeService(service, ""); err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
	}
	return nil
}

// normalizeFinal resolves every service's build context to an absolute path
// under projectDir. It runs once, after all documents have merged.
func normalizeFinal(doc map[string]any, projectDir string) {
	services, _ := doc["services"].(map[string]any)
	for _, raw := range services {
		service, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		context := "."
		switch build := service["build"].(type) {
		case string:
			context = build
		case map[string]any:
			if c, ok := build["context"].(string); ok && c != "" {
				context = c
			}
		default:
			continue
		}
		service["build"] = map[string]any{
			"context": filepath.Clean(filepath.Join(projectDir, context)),
		}
	}
}

var gracePeriodPattern = regexp.MustCompile(`^(?:(\d+)[m:])?(?:(\d+(?:\.\d+)?)s?)?$`)

// parseSeconds parses stop_grace_period style durations ("10", "90s",
// "1m30s", "1:30"). Unparseable input yields ok=false.
func parseSeconds(value any) (int, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		m := gracePeriodPattern.FindStringSubmatch(strings.TrimSpace(v))
		if m == nil || (m[1] == "" && m[2] == "") {
			return 0, false
		}
		var total float64
		if m[1] != "" {
			var mins float64
			fmt.Sscanf(m[1], "%f", &mins)
			total += mins * 60
		}
		if m[2] != "" {
			var secs float64
			fmt.Sscanf(m[2], "%f", &secs)
			total += secs
		}
		return int(total), true
	default:
		return 0, false
	}
}
