package rules

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateID is returned when a rule id is registered twice.
	ErrDuplicateID = errors.New("duplicate rule id")

	// ErrSealed is returned when registering into a sealed registry.
	ErrSealed = errors.New("registry is sealed")
)

// Registry owns the rules of one invocation, grouped by program.
// It is read-only once Seal has been called.
type Registry struct {
	byProgram map[string][]Rule
	ids       map[string]string // id -> program
	order     []string          // programs in first-registration order
	sealed    bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byProgram: make(map[string][]Rule),
		ids:       make(map[string]string),
	}
}

// Register adds a rule. Rules of the same program keep declaration order,
// which is also their matching priority.
func (r *Registry) Register(rule Rule) error {
	if r.sealed {
		return ErrSealed
	}
	if err := rule.validate(); err != nil {
		return err
	}
	if prog, ok := r.ids[rule.ID]; ok {
		return fmt.Errorf("%w: %s (already registered for %s)", ErrDuplicateID, rule.ID, prog)
	}

	rule.Program = NormalizeProgram(rule.Program)
	rule.matcher = compilePattern(rule.Pattern)

	if _, ok := r.byProgram[rule.Program]; !ok {
		r.order = append(r.order, rule.Program)
	}
	r.byProgram[rule.Program] = append(r.byProgram[rule.Program], rule)
	r.ids[rule.ID] = rule.Program
	return nil
}

// Seal freezes the registry.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether construction has completed.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// AllFor returns the rules for program in priority order.
func (r *Registry) AllFor(program string) []Rule {
	return r.byProgram[NormalizeProgram(program)]
}

// Lookup finds a rule by id.
func (r *Registry) Lookup(id string) (*Rule, bool) {
	prog, ok := r.ids[id]
	if !ok {
		return nil, false
	}
	list := r.byProgram[prog]
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}

// Programs returns the wrapped program names, sorted.
func (r *Registry) Programs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	sort.Strings(out)
	return out
}

// Wraps reports whether any rule exists for program.
func (r *Registry) Wraps(program string) bool {
	_, ok := r.byProgram[NormalizeProgram(program)]
	return ok
}

// Len returns the total number of rules.
func (r *Registry) Len() int {
	return len(r.ids)
}
