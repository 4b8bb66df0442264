package compose

import (
	"fmt"
	"regexp"
	"strings"
)

// SubstitutionError is returned when a ${VAR:?msg} or ${VAR?msg} form names a
// variable that is unset (or empty, for the ":?" form).
type SubstitutionError struct {
	Name    string
	Message string
}

func (e *SubstitutionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("required variable %s: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("required variable %s is not set", e.Name)
}

// varPattern matches the subset of bash parameter expansion supported in
// compose files: $$, $VAR, ${VAR}, ${VAR:-default}, ${VAR-default},
// ${VAR:?err} and ${VAR?err}. Malformed ${...} forms do not match and are
// left as literal text.
var varPattern = regexp.MustCompile(
	`\$(?:` +
		`(?P<escaped>\$)|` +
		`(?P<named>[_a-zA-Z][_a-zA-Z0-9]*)|` +
		`\{(?P<braced>[_a-zA-Z][_a-zA-Z0-9]*)` +
		`(?:(?P<empty>:)?(?:-(?P<default>[^}]*)|\?(?P<err>[^}]*)))?\})`,
)

var (
	groupEscaped = varPattern.SubexpIndex("escaped")
	groupNamed   = varPattern.SubexpIndex("named")
	groupBraced  = varPattern.SubexpIndex("braced")
	groupEmpty   = varPattern.SubexpIndex("empty")
	groupDefault = varPattern.SubexpIndex("default")
	groupErr     = varPattern.SubexpIndex("err")
)

// Substitute resolves variable references in value against env, recursing
// through mappings (key order irrelevant) and sequences (order preserved).
// Non-string scalars pass through unchanged.
//
// When a mapping carries an "environment" sub-mapping, those entries are
// folded into a scoped copy of env before recursing, so one service's
// environment values may reference each other. The scope is local to that
// mapping and never leaks to siblings.
func Substitute(value any, env Environment) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if raw, ok := v["environment"].(map[string]any); ok {
			env = env.Clone()
			local := make(map[string]any)
			for k, item := range raw {
				if _, exists := env[k]; exists {
					continue
				}
				local[k] = item
				if s, ok := scalarString(item); ok {
					env[k] = s
				}
			}
			resolved, err := Substitute(local, env)
			if err != nil {
				return nil, err
			}
			for k, item := range resolved.(map[string]any) {
				if s, ok := scalarString(item); ok {
					env[k] = s
				}
			}
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			sub, err := Substitute(item, env)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			sub, err := Substitute(item, env)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	case string:
		return expand(v, env)
	default:
		return value, nil
	}
}

// expand replaces all variable forms in s left to right, non-overlapping.
func expand(s string, env Environment) (string, error) {
	matches := varPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}

	group := func(m []int, idx int) (string, bool) {
		if m[2*idx] < 0 {
			return "", false
		}
		return s[m[2*idx]:m[2*idx+1]], true
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		last = m[1]

		if _, ok := group(m, groupEscaped); ok {
			b.WriteByte('$')
			continue
		}
		name, ok := group(m, groupNamed)
		if !ok {
			name, _ = group(m, groupBraced)
		}
		value, set := env[name]
		_, requireNonEmpty := group(m, groupEmpty)
		if set && !(requireNonEmpty && value == "") {
			b.WriteString(value)
			continue
		}
		if msg, ok := group(m, groupErr); ok {
			return "", &SubstitutionError{Name: name, Message: msg}
		}
		if def, ok := group(m, groupDefault); ok {
			b.WriteString(def)
		}
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// scalarString reports whether item is a scalar usable as an environment
// value and returns its string form.
func scalarString(item any) (string, bool) {
	switch item.(type) {
	case nil, map[string]any, []any:
		return "", false
	default:
		return toString(item), true
	}
}
