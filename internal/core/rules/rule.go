package rules

import (
	"fmt"
	"strings"
)

// Severity is the enforcement level a rule produces when it matches.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarn, SeverityBlock:
		return true
	}
	return false
}

// Level ranks how much damage the guarded operation can do.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
)

// ProtectAny makes a rule match when any operand classifies into any
// protected resource class.
const ProtectAny = "any"

// Rule is a declarative policy entry binding a program and an argument
// pattern to a severity and an optional override token.
type Rule struct {
	ID           string   `yaml:"id"`
	Program      string   `yaml:"program"`
	Pattern      Pattern  `yaml:"pattern"`
	Severity     Severity `yaml:"severity"`
	Level        Level    `yaml:"level"`
	Emoji        string   `yaml:"emoji"`
	Message      string   `yaml:"message"`
	Docs         string   `yaml:"docs"`
	Bypass       string   `yaml:"bypass"`
	Family       string   `yaml:"family"`
	Alternatives []string `yaml:"alternatives"`
	Verify       []string `yaml:"verify"`

	// AIWarning is addressed to automated agents that hit the rule.
	AIWarning string `yaml:"ai_warning"`

	// Protect lists resource classes a path operand must classify into.
	Protect []string `yaml:"protect"`

	matcher *compiledPattern
}

// Overridable reports whether the rule carries a bypass token. Rules without
// one cannot be overridden by a token or by a global acknowledgement flag.
func (r *Rule) Overridable() bool {
	return r.Bypass != ""
}

// ProtectsPaths reports whether the rule depends on path classification.
func (r *Rule) ProtectsPaths() bool {
	return len(r.Protect) > 0
}

// Protects reports whether the resource class is covered by the rule.
func (r *Rule) Protects(class string) bool {
	for _, p := range r.Protect {
		if p == ProtectAny || p == class {
			return true
		}
	}
	return false
}

// MatchesArgs reports whether the rule's argument pattern matches argv.
func (r *Rule) MatchesArgs(argv []string) bool {
	m := r.matcher
	if m == nil {
		m = compilePattern(r.Pattern)
	}
	return m.match(joinArgs(argv))
}

func (r *Rule) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule has empty id")
	}
	if strings.TrimSpace(r.Program) == "" {
		return fmt.Errorf("rule %s: empty program", r.ID)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("rule %s: unknown severity %q", r.ID, r.Severity)
	}
	if len(r.Pattern) == 0 && !r.ProtectsPaths() {
		return fmt.Errorf("rule %s: needs a pattern or a protect list", r.ID)
	}
	if r.Message == "" {
		return fmt.Errorf("rule %s: empty message", r.ID)
	}
	return nil
}
