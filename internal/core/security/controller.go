package security

import (
	"fmt"

	"github.com/Lin-Jiong-HDU/guard/internal/core/rules"
)

// SecurityController coordinates matching, path resolution and the
// decision for one invocation.
type SecurityController struct {
	policy        *SecurityPolicy
	registry      *rules.Registry
	resolver      *PathResolver
	matcher       *rules.Matcher
	shellAnalyzer *ShellCommandAnalyzer
}

// NewSecurityController creates a new security controller over a sealed
// registry.
func NewSecurityController(policy *SecurityPolicy, registry *rules.Registry) (*SecurityController, error) {
	catalog, err := LoadCatalog(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load protected resources: %w", err)
	}
	resolver := NewPathResolver(policy, catalog)

	var classifier rules.PathClassifier
	if policy.ProtectEnabled {
		classifier = resolver
	}

	return &SecurityController{
		policy:        policy,
		registry:      registry,
		resolver:      resolver,
		matcher:       rules.NewMatcher(registry, classifier),
		shellAnalyzer: NewShellCommandAnalyzer(),
	}, nil
}

// Evaluate decides one invocation of program with argv.
func (sc *SecurityController) Evaluate(program string, argv []string) Decision {
	program = rules.NormalizeProgram(program)
	m := sc.matcher.Match(program, argv)

	d := Decide(m.Rule, argv)
	d.Program = program
	d.FastPath = m.FastPath
	if m.Hit != nil {
		d.Hit = m.Hit
		res := sc.resolver.Resolve(m.Hit.Arg)
		d.Resolution = &res
	}
	return d
}

// ClassifyPath resolves a single path against the protected-resource catalog.
func (sc *SecurityController) ClassifyPath(raw string) Resolution {
	return sc.resolver.Resolve(raw)
}

// ShellReport is the evaluation of every command in a shell line.
type ShellReport struct {
	Decisions []Decision
	// ProtectedRedirects are output redirections into protected resources.
	ProtectedRedirects []Resolution
}

// Verdict returns the most severe verdict in the report. Writing a
// protected resource through a redirection is at least a warning.
func (r *ShellReport) Verdict() Verdict {
	worst := Allow
	if len(r.ProtectedRedirects) > 0 {
		worst = Warn
	}
	for _, d := range r.Decisions {
		if d.Verdict > worst {
			worst = d.Verdict
		}
	}
	return worst
}

// AnalyzeShellCommand evaluates every simple command of a shell line.
func (sc *SecurityController) AnalyzeShellCommand(cmdStr string) (*ShellReport, error) {
	analysis, err := sc.shellAnalyzer.Analyze(cmdStr)
	if err != nil {
		return nil, err
	}

	report := &ShellReport{}
	for _, cmd := range analysis.Commands {
		report.Decisions = append(report.Decisions, sc.Evaluate(cmd.Program, cmd.Args))
	}
	if sc.policy.ProtectEnabled {
		for _, target := range analysis.Redirects {
			if res := sc.resolver.Resolve(target); res.Resource != nil {
				report.ProtectedRedirects = append(report.ProtectedRedirects, res)
			}
		}
	}
	return report, nil
}

// StripGuardArgs removes guard's own arguments before argv is handed to the
// real program.
func (sc *SecurityController) StripGuardArgs(program string, argv []string) []string {
	return StripGuardArgs(argv, sc.registry.AllFor(rules.NormalizeProgram(program)))
}

// Registry returns the rule registry the controller matches against.
func (sc *SecurityController) Registry() *rules.Registry {
	return sc.registry
}
