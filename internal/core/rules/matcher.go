package rules

import (
	"path/filepath"
	"strings"
)

// PathHit is a path operand that classified into a protected resource.
type PathHit struct {
	Arg   string
	Class string
}

// PathClassifier classifies the path operands of an argument vector.
// Implementations must return hits in argv order.
type PathClassifier interface {
	ClassifyArgs(argv []string) []PathHit
}

// Match is the outcome of matching one invocation.
type Match struct {
	Rule     *Rule
	Hit      *PathHit
	FastPath bool
}

// Matcher finds the highest-priority rule for an invocation.
type Matcher struct {
	registry   *Registry
	fastPath   *FastPath
	classifier PathClassifier
}

// NewMatcher creates a matcher. A nil classifier disables every rule that
// depends on path classification.
func NewMatcher(registry *Registry, classifier PathClassifier) *Matcher {
	return &Matcher{
		registry:   registry,
		fastPath:   NewFastPath(),
		classifier: classifier,
	}
}

// Match returns the first rule, in declaration order, matching argv.
func (m *Matcher) Match(program string, argv []string) Match {
	program = NormalizeProgram(program)

	if m.fastPath.Allows(program, argv) {
		return Match{FastPath: true}
	}

	candidates := m.registry.AllFor(program)
	if len(candidates) == 0 {
		return Match{}
	}

	joined := joinArgs(argv)
	var hits []PathHit
	classified := false

	for i := range candidates {
		rule := &candidates[i]
		if !rule.matcher.match(joined) {
			continue
		}
		if !rule.ProtectsPaths() {
			return Match{Rule: rule}
		}
		if m.classifier == nil {
			continue
		}
		if !classified {
			hits = m.classifier.ClassifyArgs(argv)
			classified = true
		}
		for j := range hits {
			if rule.Protects(hits[j].Class) {
				hit := hits[j]
				return Match{Rule: rule, Hit: &hit}
			}
		}
	}
	return Match{}
}

// NormalizeProgram reduces an invoked program to its bare name, so that
// "/usr/bin/git" and "git.exe" select the same rules.
func NormalizeProgram(program string) string {
	name := filepath.Base(strings.TrimSpace(program))
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".exe") {
		name = name[:len(name)-len(ext)]
	}
	return name
}
