package rules

import "strings"

// FastPath is the hand-curated whitelist of read-only invocations that skip
// rule matching entirely. It is the most common path, so it only does map
// lookups and a short scan of the arguments.
type FastPath struct {
	subcommands map[string]map[string]bool
	// flags that make an otherwise read-only subcommand write or execute
	disqualify map[string][]string
}

// NewFastPath creates the built-in whitelist.
func NewFastPath() *FastPath {
	return &FastPath{
		subcommands: map[string]map[string]bool{
			"git": set(
				"status", "log", "diff", "show", "blame", "rev-parse",
				"ls-files", "ls-remote", "describe", "shortlog", "grep",
				"cat-file", "help", "version",
			),
			"npm":     set("ls", "list", "view", "info", "outdated", "search", "help"),
			"pip":     set("list", "show", "freeze", "check", "help"),
			"pip3":    set("list", "show", "freeze", "check", "help"),
			"docker":  set("ps", "images", "inspect", "logs", "version", "info"),
			"kubectl": set("get", "describe", "logs", "version", "explain", "api-resources"),
		},
		disqualify: map[string][]string{
			"git": {"--output", "--ext-diff"},
			"npm": {"--global", "-g"},
		},
	}
}

// Allows reports whether the invocation is provably side-effect free.
func (f *FastPath) Allows(program string, argv []string) bool {
	if len(argv) == 1 && (argv[0] == "--help" || argv[0] == "--version") {
		return true
	}

	subs, ok := f.subcommands[program]
	if !ok || len(argv) == 0 {
		return false
	}
	// global options before the subcommand are not analysed here
	if !subs[argv[0]] {
		return false
	}
	for _, arg := range argv[1:] {
		for _, bad := range f.disqualify[program] {
			if arg == bad || strings.HasPrefix(arg, bad+"=") {
				return false
			}
		}
	}
	return true
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}
