package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// resolveExtends flattens every service carrying an extends reference by
// merging the base service under it. order should put services with fewer
// known dependents first, approximating a topological order; each service's
// extends is resolved independently, so chains are not inherited
// transitively at this layer.
//
// Extending a non-existent service yields an empty base rather than an
// error, and a service extending itself is skipped.
func resolveExtends(services map[string]map[string]any, order []string, env Environment, baseDir string) error {
	for _, name := range order {
		service := services[name]
		ext, _ := service["extends"].(map[string]any)
		baseName, _ := ext["service"].(string)
		if baseName == "" {
			continue
		}
		file, _ := ext["file"].(string)
		if file == "" && baseName == name {
			continue
		}

		var base map[string]any
		var err error
		if file != "" {
			base, err = loadExtendsBase(file, baseName, env, baseDir)
			if err != nil {
				return fmt.Errorf("service %s extends %s from %s: %w", name, baseName, file, err)
			}
		} else {
			base = map[string]any{}
			if src, ok := services[baseName]; ok {
				for k, v := range src {
					base[k] = v
				}
				delete(base, "_deps")
				delete(base, "extends")
			}
		}

		merged := map[string]any{}
		if err := Merge(merged, base, service); err != nil {
			return fmt.Errorf("service %s extends %s: %w", name, baseName, err)
		}
		services[name] = merged
	}
	return nil
}

// loadExtendsBase reads a cross-file base service: the target file is
// parsed, substituted against the current environment, and normalized with
// the file's directory as a prefix for relative build contexts.
func loadExtendsBase(file, baseName string, env Environment, baseDir string) (map[string]any, error) {
	file = strings.TrimPrefix(file, "./")
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, file)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var content map[string]any
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if nested, ok := content["services"].(map[string]any); ok {
		content = nested
	}
	substituted, err := Substitute(content, env)
	if err != nil {
		return nil, err
	}
	content = substituted.(map[string]any)
	base, _ := content[baseName].(map[string]any)
	if base == nil {
		base = map[string]any{}
	}
	if err := normalizeService(base, filepath.Dir(file)); err != nil {
		return nil, err
	}
	return base, nil
}
