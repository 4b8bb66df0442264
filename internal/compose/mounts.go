package compose

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Mount is one volume entry of a service, parsed from short or long form.
type Mount struct {
	Type        string // "bind", "volume" or "tmpfs"
	Source      string
	Target      string
	ReadOnly    bool
	Consistency string
	Propagation []string

	// Name is the concrete volume name, filled in by resolve for
	// type "volume" mounts (anonymous volumes get a generated name).
	Name string
	// Volume is the declared top-level volume entry, if any.
	Volume map[string]any
}

var (
	hostPathPattern    = regexp.MustCompile(`^[~/.]`)
	propagationPattern = regexp.MustCompile(
		`^(?:z|Z|O|U|r?shared|r?slave|r?private|r?unbindable|r?bind|(?:no)?(?:exec|dev|suid))$`)
)

// parseShortMount parses the short "src:dst:opts" volume syntax. Host paths
// are recognized by a leading "/", "./" or "~" and resolved against baseDir;
// anything else names a volume.
func parseShortMount(short, baseDir string) (*Mount, error) {
	parts := strings.Split(short, ":")
	var src, dst, opt string
	switch len(parts) {
	case 1:
		// anonymous volume, target only
		dst = short
	case 2:
		src, dst = parts[0], parts[1]
		if !strings.HasPrefix(dst, "/") {
			// "/var/lib/mysql:ro" is target plus options, not src:dst
			src, dst, opt = "", parts[0], parts[1]
		}
	case 3:
		src, dst, opt = parts[0], parts[1], parts[2]
	default:
		return nil, fmt.Errorf("could not parse mount %q", short)
	}

	mount := &Mount{Type: "volume", Source: src, Target: dst}
	if src != "" && hostPathPattern.MatchString(src) {
		mount.Type = "bind"
		if strings.HasPrefix(src, "~") {
			if home, err := os.UserHomeDir(); err == nil {
				src = home + src[1:]
			}
		}
		if !filepath.IsAbs(src) {
			src = filepath.Join(baseDir, src)
		}
		mount.Source = filepath.Clean(src)
	}

	for _, o := range strings.Split(opt, ",") {
		switch {
		case o == "":
		case o == "ro":
			mount.ReadOnly = true
		case o == "rw":
			mount.ReadOnly = false
		case o == "consistent" || o == "delegated" || o == "cached":
			mount.Consistency = o
		case propagationPattern.MatchString(o):
			mount.Propagation = append(mount.Propagation, o)
		default:
			return nil, fmt.Errorf("unknown mount option %q in %q", o, short)
		}
	}
	return mount, nil
}

// parseMount accepts either short-form strings or long-form mappings.
func parseMount(entry any, baseDir string) (*Mount, error) {
	switch v := entry.(type) {
	case string:
		return parseShortMount(v, baseDir)
	case map[string]any:
		mount := &Mount{
			Type:   "volume",
			Source: toString(v["source"]),
			Target: toString(v["target"]),
		}
		if t, _ := v["type"].(string); t != "" {
			mount.Type = t
		}
		if ro, _ := v["read_only"].(bool); ro {
			mount.ReadOnly = true
		}
		if v["source"] == nil {
			mount.Source = ""
		}
		return mount, nil
	default:
		return nil, fmt.Errorf("volume entry must be string or mapping, got %T", entry)
	}
}

// resolve attaches the declared top-level volume (if any) and computes the
// concrete volume name for type "volume" mounts:
//
//   - no source: anonymous, named by a hash of the mount target
//   - declared with an explicit or external name: that name
//   - otherwise: the source prefixed with the project name
func (m *Mount) resolve(p *Project, serviceName string) {
	if m.Type != "volume" {
		return
	}
	var declared map[string]any
	if m.Source != "" {
		declared, _ = p.Volumes[m.Source].(map[string]any)
	}
	m.Volume = declared

	switch {
	case m.Source == "":
		m.Name = fmt.Sprintf("%s_%s_%x", p.Name, serviceName, sha256.Sum256([]byte(m.Target)))
	case declared != nil && declared["name"] != nil:
		m.Name = toString(declared["name"])
	default:
		external := externalValue(declared)
		switch ext := external.(type) {
		case map[string]any:
			if name, _ := ext["name"].(string); name != "" {
				m.Name = name
			} else {
				m.Name = m.Source
			}
		case bool:
			if ext {
				m.Name = m.Source
			} else {
				m.Name = p.Name + "_" + m.Source
			}
		default:
			m.Name = p.Name + "_" + m.Source
		}
	}
}

// External reports whether the mount refers to an externally managed volume.
func (m *Mount) External() bool {
	switch ext := externalValue(m.Volume).(type) {
	case bool:
		return ext
	case map[string]any:
		return true
	default:
		return false
	}
}

func externalValue(declared map[string]any) any {
	if declared == nil {
		return nil
	}
	return declared["external"]
}

// SpecString renders the mount as a podman -v argument.
func (m *Mount) SpecString() string {
	src := m.Source
	if m.Type == "volume" {
		src = m.Name
	}
	var opts []string
	if m.ReadOnly {
		opts = append(opts, "ro")
	}
	opts = append(opts, m.Propagation...)
	s := m.Target
	if src != "" {
		s = src + ":" + m.Target
	}
	if len(opts) > 0 {
		s += ":" + strings.Join(opts, ",")
	}
	return s
}
