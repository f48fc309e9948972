package rules

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// argSep joins argv for matching. NUL cannot occur inside a process
// argument, so a term can never match across an argument boundary by
// accident.
const argSep = "\x00"

// Pattern is a list of alternatives. An alternative is one or more terms
// joined with " && "; every term must match. A term is a run of whole
// arguments separated by spaces, the last of which may end in '*' to match
// by prefix.
//
// In YAML a pattern is either a list of alternatives or a single string
// using '|' between alternatives.
type Pattern []string

// UnmarshalYAML accepts both the scalar and the sequence form.
func (p *Pattern) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var alts []string
		for _, alt := range strings.Split(value.Value, "|") {
			if alt = strings.TrimSpace(alt); alt != "" {
				alts = append(alts, alt)
			}
		}
		*p = alts
		return nil
	case yaml.SequenceNode:
		var alts []string
		if err := value.Decode(&alts); err != nil {
			return err
		}
		*p = alts
		return nil
	default:
		return fmt.Errorf("line %d: pattern must be a string or a list", value.Line)
	}
}

type compiledPattern struct {
	// each alternative is a set of needles that must all be present
	alternatives [][]string
}

func compilePattern(p Pattern) *compiledPattern {
	cp := &compiledPattern{}
	for _, alt := range p {
		var needles []string
		for _, term := range strings.Split(alt, "&&") {
			if needle, ok := compileTerm(term); ok {
				needles = append(needles, needle)
			}
		}
		if len(needles) > 0 {
			cp.alternatives = append(cp.alternatives, needles)
		}
	}
	return cp
}

func compileTerm(term string) (string, bool) {
	words := strings.Fields(term)
	if len(words) == 0 {
		return "", false
	}
	prefix := false
	last := words[len(words)-1]
	if len(last) > 1 && strings.HasSuffix(last, "*") {
		words[len(words)-1] = strings.TrimSuffix(last, "*")
		prefix = true
	}
	needle := argSep + strings.Join(words, argSep)
	if !prefix {
		needle += argSep
	}
	return needle, true
}

// match reports whether the joined argument string satisfies the pattern.
// An empty pattern matches everything.
func (cp *compiledPattern) match(joined string) bool {
	if len(cp.alternatives) == 0 {
		return true
	}
	for _, needles := range cp.alternatives {
		if containsAll(joined, needles) {
			return true
		}
	}
	return false
}

func containsAll(haystack string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(haystack, n) {
			return false
		}
	}
	return true
}

func joinArgs(argv []string) string {
	var b strings.Builder
	b.WriteString(argSep)
	for _, a := range argv {
		b.WriteString(a)
		b.WriteString(argSep)
	}
	return b.String()
}
