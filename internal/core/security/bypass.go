package security

import "github.com/Lin-Jiong-HDU/guard/internal/core/rules"

// Rule families acknowledged by the global flags.
const (
	FamilyDestructive = "destructive"
	FamilyHistory     = "history"
	FamilySupplyChain = "supply-chain"
)

// globalAcks maps each global acknowledgement flag to the rule family it
// overrides.
var globalAcks = map[string]string{
	"--guard-ack-destructive":  FamilyDestructive,
	"--guard-ack-history":      FamilyHistory,
	"--guard-ack-supply-chain": FamilySupplyChain,
}

// HasBypass reports whether argv contains token as a whole element.
// An empty token never matches.
func HasBypass(argv []string, token string) bool {
	if token == "" {
		return false
	}
	for _, arg := range argv {
		if arg == token {
			return true
		}
	}
	return false
}

// GlobalAck returns the global acknowledgement flag in argv that overrides
// the rule, if any. Only overridable rules can be acknowledged.
func GlobalAck(argv []string, rule *rules.Rule) (string, bool) {
	if rule == nil || !rule.Overridable() || rule.Family == "" {
		return "", false
	}
	for _, arg := range argv {
		if family, ok := globalAcks[arg]; ok && family == rule.Family {
			return arg, true
		}
	}
	return "", false
}

// IsGlobalAck reports whether arg is one of the global acknowledgement flags.
func IsGlobalAck(arg string) bool {
	_, ok := globalAcks[arg]
	return ok
}

// StripGuardArgs removes every override token known for the program and
// every global acknowledgement flag, so the real program never sees them.
func StripGuardArgs(argv []string, candidates []rules.Rule) []string {
	tokens := make(map[string]bool, len(candidates))
	for i := range candidates {
		if candidates[i].Bypass != "" {
			tokens[candidates[i].Bypass] = true
		}
	}

	out := make([]string, 0, len(argv))
	for _, arg := range argv {
		if tokens[arg] || IsGlobalAck(arg) {
			continue
		}
		out = append(out, arg)
	}
	return out
}
