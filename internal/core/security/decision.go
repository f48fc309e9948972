package security

import (
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/Lin-Jiong-HDU/guard/internal/core/rules"
)

// Verdict is the enforcement outcome of one invocation.
type Verdict int

const (
	Allow Verdict = iota
	Warn
	Block
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "ALLOW"
	case Warn:
		return "WARN"
	case Block:
		return "BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Decision is the verdict together with everything needed to explain it.
type Decision struct {
	Verdict Verdict
	// Rule is the matched rule, nil when nothing matched.
	Rule *rules.Rule

	BypassUsed bool
	// BypassToken is the argument that granted the override: the rule's own
	// token or a global acknowledgement flag.
	BypassToken string

	FastPath bool

	// Hit and Resolution describe the path operand that triggered a
	// protected-path rule.
	Hit        *rules.PathHit
	Resolution *Resolution

	Program string
	Argv    []string
}

// Decide turns a matched rule into a verdict. It is pure: the same rule and
// argv always yield the same decision.
func Decide(rule *rules.Rule, argv []string) Decision {
	d := Decision{Verdict: Allow, Rule: rule, Argv: argv}
	if rule == nil {
		return d
	}

	if HasBypass(argv, rule.Bypass) {
		d.BypassUsed = true
		d.BypassToken = rule.Bypass
		return d
	}
	if flag, ok := GlobalAck(argv, rule); ok {
		d.BypassUsed = true
		d.BypassToken = flag
		return d
	}

	switch rule.Severity {
	case rules.SeverityBlock:
		d.Verdict = Block
	case rules.SeverityWarn:
		d.Verdict = Warn
	default:
		d.Verdict = Allow
	}
	return d
}

// Audited reports whether the decision is written to the audit log.
// Fast-path and unmatched allows are not.
func (d Decision) Audited() bool {
	return d.Rule != nil
}

// ResourceClass returns the protected class that triggered the rule, or "".
func (d Decision) ResourceClass() string {
	if d.Hit == nil {
		return ""
	}
	return d.Hit.Class
}

// OverrideCommand returns the command line that re-runs the invocation with
// the rule's bypass token. It is empty for rules that cannot be overridden.
func (d Decision) OverrideCommand() string {
	if d.Rule == nil || !d.Rule.Overridable() {
		return ""
	}
	words := append([]string{d.program()}, d.Argv...)
	words = append(words, d.Rule.Bypass)
	return quoteWords(words)
}

// UnmanagedCommand returns the same invocation through a path guard does
// not intercept. realPath is the resolved program; when empty the shell's
// "command" builtin form is used.
func (d Decision) UnmanagedCommand(realPath string) string {
	var words []string
	if realPath != "" {
		words = append(words, realPath)
	} else {
		words = append(words, "command", d.program())
	}
	words = append(words, d.Argv...)
	return quoteWords(words)
}

func (d Decision) program() string {
	if d.Program != "" {
		return d.Program
	}
	if d.Rule != nil {
		return d.Rule.Program
	}
	return ""
}

func quoteWords(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		q, err := syntax.Quote(w, syntax.LangBash)
		if err != nil {
			q = strconv.Quote(w)
		}
		quoted = append(quoted, q)
	}
	return strings.Join(quoted, " ")
}
