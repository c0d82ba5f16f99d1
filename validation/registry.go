package validation

import (
	"regexp"
	"sync"
)

// Predicate decides whether a conditionally-required field must be present
// in a particular record. An error means the predicate could not be
// evaluated (a prerequisite field is missing); the engine reports that as a
// distinct finding instead of raising.
type Predicate func(Record) (bool, error)

// FieldSpec declares the requirements for one field: whether it is
// required, its expected type, and optionally a format rule and/or a
// conditional-requirement predicate. Specs are configured once at startup
// and never mutated afterwards.
type FieldSpec struct {
	Name string
	Type Kind

	// Required marks the field unconditionally required. RequiredWhen, if
	// set, takes precedence: the field is required only for records where
	// the predicate evaluates true.
	Required     bool
	RequiredWhen Predicate

	// Format optionally binds one of the built-in format rules to the field.
	Format Format
}

// Registry holds the full set of field specs and validation rules and
// exposes them in registration order. Deterministic iteration is what makes
// repeated runs over identical input produce byte-identical reports.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]FieldSpec
	order []string // field names in registration order
	rules []Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]FieldSpec)}
}

// Field names must be usable as CEL identifiers so that conditional
// predicates and custom rules can reference them directly.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const maxFieldNameLen = 100

// RegisterField adds a field declaration. It returns DuplicateFieldError if
// the name is already registered and ConfigurationError if the name is not
// a valid identifier.
func (r *Registry) RegisterField(spec FieldSpec) error {
	if err := validateFieldName(spec.Name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Name]; exists {
		return &DuplicateFieldError{Field: spec.Name}
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// RegisterRule adds a rule bound to one or more field names. Multiple rules
// may target the same field; registration order is preserved.
func (r *Registry) RegisterRule(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// Rules returns all registered rules in registration order.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Spec returns the declaration for a field name.
func (r *Registry) Spec(name string) (FieldSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// FieldIndex returns the registration index of a field, or -1 if the field
// was never declared. The engine uses this to order report groups.
func (r *Registry) FieldIndex(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

// Validate checks registry consistency: every field a rule reads must have
// a FieldSpec. It returns ConfigurationError on the first inconsistency.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rule := range r.rules {
		for _, name := range rule.Fields() {
			if _, ok := r.specs[name]; !ok {
				return configErrorf("rule %q references undeclared field %q", rule.Name(), name)
			}
		}
	}
	return nil
}

func validateFieldName(name string) error {
	if name == "" {
		return configErrorf("field name cannot be empty")
	}
	if len(name) > maxFieldNameLen {
		return configErrorf("field name %q exceeds %d characters", name, maxFieldNameLen)
	}
	if !validFieldName.MatchString(name) {
		return configErrorf("field name %q must match ^[a-zA-Z_][a-zA-Z0-9_]*$", name)
	}
	if celReservedWord(name) {
		return configErrorf("field name %q is a reserved word", name)
	}
	return nil
}

// celReservedWord reports whether a name collides with a CEL keyword or
// literal, which would make it unusable in predicate expressions.
func celReservedWord(name string) bool {
	switch name {
	case "true", "false", "null",
		"if", "else", "for", "while", "break", "continue", "return",
		"var", "let", "const", "function",
		"in", "as", "import", "package", "namespace", "loop", "void":
		return true
	}
	return false
}
