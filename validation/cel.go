package validation

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// recordVar is the name conditional predicates and custom rules use to
// reference the record under evaluation, e.g.
// `record.BusAdrCountry == "US"`.
const recordVar = "record"

// Cost limit of 1,000,000 prevents resource exhaustion from runaway
// expressions supplied through catalog files.
const celCostLimit = 1_000_000

func newRecordEnv() (*cel.Env, error) {
	// Records are map-based, so the record variable is declared dynamic and
	// field types are checked at evaluation time.
	env, err := cel.NewEnv(cel.Variable(recordVar, cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func compileRecordProgram(expression string) (cel.Program, error) {
	env, err := newRecordEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(celCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// RequiredWhenCEL compiles a CEL expression into a conditional-requirement
// predicate for a FieldSpec. Absent fields are omitted from the activation,
// so an expression reading a missing prerequisite errors; the presence rule
// turns that into a "could not be evaluated" finding instead of treating
// the field as required.
func RequiredWhenCEL(expression string) (Predicate, error) {
	prog, err := compileRecordProgram(expression)
	if err != nil {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("invalid conditional requirement %q", expression), Err: err}
	}

	return func(rec Record) (bool, error) {
		out, _, err := prog.Eval(map[string]any{recordVar: rec.celFields()})
		if err != nil {
			return false, fmt.Errorf("predicate evaluation failed: %w", err)
		}
		b, ok := out.Value().(bool)
		if !ok {
			// Non-boolean results are treated as false, same as a predicate
			// that does not apply.
			return false, nil
		}
		return b, nil
	}, nil
}

// CELRule evaluates an arbitrary boolean expression over the record; the
// expression describes the VIOLATION, so a true result produces a finding.
// Evaluation errors (a referenced field absent from the record) mean the
// rule does not apply to that record.
type CELRule struct {
	name       string
	label      string
	issue      string
	expression string
	prog       cel.Program
}

// NewCELRule compiles an expression into a rule reporting against the
// given field label.
func NewCELRule(name, label, issue, expression string) (*CELRule, error) {
	prog, err := compileRecordProgram(expression)
	if err != nil {
		return nil, &ConfigurationError{Detail: fmt.Sprintf("invalid rule expression %q", expression), Err: err}
	}
	return &CELRule{
		name:       name,
		label:      label,
		issue:      issue,
		expression: expression,
		prog:       prog,
	}, nil
}

func (r *CELRule) Name() string       { return r.name }
func (r *CELRule) Kind() RuleKind     { return RuleCrossFieldCheck }
func (r *CELRule) Expression() string { return r.expression }

// Fields returns nil: the registry cannot see through a CEL expression, so
// expression rules opt out of the undeclared-field check.
func (r *CELRule) Fields() []string { return nil }

func (r *CELRule) Evaluate(rec Record) (Finding, bool) {
	out, _, err := r.prog.Eval(map[string]any{recordVar: rec.celFields()})
	if err != nil {
		return Finding{}, false
	}
	violated, ok := out.Value().(bool)
	if !ok || !violated {
		return Finding{}, false
	}
	return Finding{Field: r.label, Issue: r.issue}, true
}
