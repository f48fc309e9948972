package security

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

//go:embed data/protected.yaml
var protectedYAML []byte

// SecurityPolicy holds the runtime inputs of path protection.
type SecurityPolicy struct {
	// ProtectEnabled is the master kill-switch for path protection.
	ProtectEnabled bool

	// Home expands "~" in resource declarations and path arguments.
	Home string

	// GuardHome expands "${GUARD_HOME}" (the tool's own directory). The
	// default ~/.guard under Home stays protected when it is overridden.
	GuardHome string

	// WorkDir resolves relative path arguments.
	WorkDir string
}

// DefaultPolicy returns a policy for the current user and directory.
func DefaultPolicy() *SecurityPolicy {
	home, _ := os.UserHomeDir()
	wd, _ := os.Getwd()
	guardHome := ""
	if home != "" {
		guardHome = filepath.Join(home, ".guard")
	}
	return &SecurityPolicy{
		ProtectEnabled: true,
		Home:           home,
		GuardHome:      guardHome,
		WorkDir:        wd,
	}
}

// ResourceClass classifies a protected resource.
type ResourceClass string

const (
	ClassCredentialDir  ResourceClass = "credential-dir"
	ClassCredentialFile ResourceClass = "credential-file"
	ClassConfigFile     ResourceClass = "config-file"
	ClassSystemPath     ResourceClass = "system-path"
	ClassSelfInstall    ResourceClass = "self-install"
	ClassHomeRoot       ResourceClass = "home-root"
)

// ProtectedResource is one entry of the protected-resource catalog.
type ProtectedResource struct {
	Prefix      string        `yaml:"prefix"`
	Names       []string      `yaml:"names"`
	Class       ResourceClass `yaml:"class"`
	Description string        `yaml:"description"`
	// Exact protects only the path itself, not its descendants.
	Exact bool `yaml:"exact"`

	path      string
	canonical string
	globs     []glob.Glob
}

// Path returns the expanded prefix the resource protects.
func (r *ProtectedResource) Path() string {
	return r.path
}

func (r *ProtectedResource) depth() int {
	if r.path == "" {
		return -1
	}
	return len(splitSegments(r.path))
}

func (r *ProtectedResource) matches(p string) bool {
	if r.path != "" {
		if underPrefix(p, r.path, r.Exact) {
			return true
		}
		if r.canonical != "" && r.canonical != r.path && underPrefix(p, r.canonical, r.Exact) {
			return true
		}
		return false
	}
	base := filepath.Base(p)
	for _, g := range r.globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

// Catalog is the versioned, compiled-in list of protected resources,
// ordered most specific first.
type Catalog struct {
	Version   int                 `yaml:"version"`
	Resources []ProtectedResource `yaml:"resources"`
}

// LoadCatalog parses the built-in catalog and binds it to the policy's home
// and install directories.
func LoadCatalog(policy *SecurityPolicy) (*Catalog, error) {
	return ParseCatalog(protectedYAML, policy)
}

// ParseCatalog parses a catalog document. Entries whose prefix cannot be
// expanded (for example "~" without a home directory) are dropped.
func ParseCatalog(data []byte, policy *SecurityPolicy) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse protected resources: %w", err)
	}

	kept := make([]ProtectedResource, 0, len(c.Resources))
	for _, res := range c.Resources {
		if res.Class == "" {
			return nil, fmt.Errorf("protected resource %q has no class", res.Prefix)
		}
		switch {
		case res.Prefix != "":
			for _, p := range expandDeclared(res.Prefix, policy) {
				r := res
				r.path = p
				if canon, err := filepath.EvalSymlinks(p); err == nil {
					r.canonical = canon
				}
				kept = append(kept, r)
			}
			continue
		case len(res.Names) > 0:
			for _, pattern := range res.Names {
				g, err := glob.Compile(pattern)
				if err != nil {
					return nil, fmt.Errorf("protected name %q: %w", pattern, err)
				}
				res.globs = append(res.globs, g)
			}
		default:
			return nil, fmt.Errorf("protected resource of class %s needs a prefix or names", res.Class)
		}
		kept = append(kept, res)
	}
	c.Resources = kept

	// deeper prefixes first; name patterns last
	sort.SliceStable(c.Resources, func(i, j int) bool {
		return c.Resources[i].depth() > c.Resources[j].depth()
	})
	return &c, nil
}

// expandDeclared returns the paths a declared prefix stands for; none when
// it cannot be expanded.
func expandDeclared(prefix string, policy *SecurityPolicy) []string {
	switch {
	case strings.HasPrefix(prefix, "${GUARD_HOME}"):
		rest := strings.TrimPrefix(prefix, "${GUARD_HOME}")
		var out []string
		for _, home := range policy.guardHomes() {
			out = append(out, filepath.Clean(home+rest))
		}
		return out
	case prefix == "~" || strings.HasPrefix(prefix, "~/"):
		if policy.Home == "" {
			return nil
		}
		prefix = policy.Home + strings.TrimPrefix(prefix, "~")
	}
	return []string{filepath.Clean(prefix)}
}

// guardHomes lists the distinct install directories: the default under Home
// and the configured one.
func (p *SecurityPolicy) guardHomes() []string {
	var homes []string
	if p.Home != "" {
		homes = append(homes, filepath.Join(p.Home, ".guard"))
	}
	if p.GuardHome != "" {
		gh := filepath.Clean(p.GuardHome)
		if len(homes) == 0 || homes[0] != gh {
			homes = append(homes, gh)
		}
	}
	return homes
}
