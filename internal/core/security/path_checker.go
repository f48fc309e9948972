package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Lin-Jiong-HDU/guard/internal/core/rules"
)

// Resolution is the outcome of canonicalizing and classifying one path.
type Resolution struct {
	Raw       string
	Lexical   string
	Canonical string
	// Traversal is set when the raw path contained a ".." segment.
	Traversal bool
	// Degraded is set when symlink resolution failed for a reason other
	// than the path not existing; classification then used Lexical only.
	Degraded bool
	Resource *ProtectedResource
}

// Class returns the resource class, if the path is protected.
func (r Resolution) Class() (ResourceClass, bool) {
	if r.Resource == nil {
		return "", false
	}
	return r.Resource.Class, true
}

// PathResolver canonicalizes paths and classifies them against the
// protected-resource catalog.
type PathResolver struct {
	catalog *Catalog
	home    string
	workDir string

	lstat    func(string) (fs.FileInfo, error)
	readlink func(string) (string, error)
}

// maxSymlinkHops bounds symlink resolution (ELOOP).
const maxSymlinkHops = 40

// NewPathResolver creates a new path resolver.
func NewPathResolver(policy *SecurityPolicy, catalog *Catalog) *PathResolver {
	return &PathResolver{
		catalog:  catalog,
		home:     policy.Home,
		workDir:  policy.WorkDir,
		lstat:    os.Lstat,
		readlink: os.Readlink,
	}
}

// Classify returns the class of the protected resource the path resolves to.
func (pr *PathResolver) Classify(raw string) (ResourceClass, bool) {
	return pr.Resolve(raw).Class()
}

// Resolve canonicalizes raw and finds the most specific protected resource
// covering either its canonical or its lexical form.
func (pr *PathResolver) Resolve(raw string) Resolution {
	res := Resolution{
		Raw: raw,
		// raw text with ".." is never trusted; it is always canonicalized
		Traversal: hasDotDot(raw),
	}

	abs := pr.absolute(raw)
	res.Lexical = filepath.Clean(abs)

	canonical, degraded := pr.canonicalize(abs, res.Lexical)
	res.Canonical = canonical
	res.Degraded = degraded

	if pr.catalog == nil {
		return res
	}
	for i := range pr.catalog.Resources {
		resource := &pr.catalog.Resources[i]
		if resource.matches(res.Canonical) || resource.matches(res.Lexical) {
			res.Resource = resource
			break
		}
	}
	return res
}

// ClassifyArgs classifies every path operand of argv, in order.
func (pr *PathResolver) ClassifyArgs(argv []string) []rules.PathHit {
	var hits []rules.PathHit
	for _, p := range ExtractPaths(argv) {
		if class, ok := pr.Classify(p); ok {
			hits = append(hits, rules.PathHit{Arg: p, Class: string(class)})
		}
	}
	return hits
}

// ExtractPaths returns the operands of argv that may name files: every
// argument that is not an option, everything after "--", and the value of
// dd-style "of=" operands.
func ExtractPaths(argv []string) []string {
	paths := []string{}
	endOfOptions := false

	for _, arg := range argv {
		if !endOfOptions {
			if arg == "--" {
				endOfOptions = true
				continue
			}
			// Skip flags and options
			if strings.HasPrefix(arg, "-") && arg != "-" {
				continue
			}
			if v, ok := strings.CutPrefix(arg, "of="); ok {
				arg = v
			}
		}
		if arg == "" || arg == "-" {
			continue
		}
		paths = append(paths, arg)
	}

	return paths
}

// absolute expands the home directory and anchors relative paths at the
// working directory without collapsing "..", so that symlink resolution
// sees the path the kernel would see.
func (pr *PathResolver) absolute(path string) string {
	if pr.home != "" && (path == "~" || strings.HasPrefix(path, "~/")) {
		path = pr.home + path[1:]
	}
	if filepath.IsAbs(path) {
		return path
	}
	return pr.workDir + string(filepath.Separator) + path
}

// canonicalize resolves abs the way the kernel would. A path that does not
// exist yet is resolved through its deepest existing ancestor so
// creation-time operations are classified too. Any other failure falls back
// to the lexical form and reports degraded.
func (pr *PathResolver) canonicalize(abs, lexical string) (string, bool) {
	resolved, err := pr.walk(abs)
	if err != nil {
		return lexical, true
	}
	return resolved, false
}

// walk resolves abs one component at a time. Symlinks are followed where
// they appear, dangling ones included, and ".." applies to the resolved
// prefix rather than to the raw text. Components below the first missing
// one are joined lexically.
func (pr *PathResolver) walk(abs string) (string, error) {
	volume := filepath.VolumeName(abs)
	root := volume + string(filepath.Separator)
	pending := splitSegments(abs[len(volume):])
	resolved := root
	missing := false
	hops := 0

	for len(pending) > 0 {
		seg := pending[0]
		pending = pending[1:]

		switch seg {
		case ".":
			continue
		case "..":
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, seg)
		if missing {
			resolved = next
			continue
		}

		info, err := pr.lstat(next)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
			missing = true
			resolved = next
			continue
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			resolved = next
			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return "", fmt.Errorf("%s: too many levels of symbolic links", abs)
		}
		target, err := pr.readlink(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			volume = filepath.VolumeName(target)
			resolved = volume + string(filepath.Separator)
			target = target[len(volume):]
		}
		pending = append(splitSegments(target), pending...)
	}
	return resolved, nil
}

func underPrefix(path, prefix string, exact bool) bool {
	if path == prefix {
		return true
	}
	if exact {
		return false
	}
	if strings.HasSuffix(prefix, string(filepath.Separator)) {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}

func hasDotDot(path string) bool {
	for _, seg := range strings.FieldsFunc(path, isSeparator) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func splitSegments(path string) []string {
	return strings.FieldsFunc(path, isSeparator)
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}
