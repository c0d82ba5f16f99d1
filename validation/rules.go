package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// RuleKind classifies a rule for reporting and registry validation.
type RuleKind int

const (
	RulePresence RuleKind = iota
	RuleTypeCheck
	RuleFormatCheck
	RuleCrossFieldCheck
)

func (k RuleKind) String() string {
	switch k {
	case RulePresence:
		return "presence"
	case RuleTypeCheck:
		return "type"
	case RuleFormatCheck:
		return "format"
	case RuleCrossFieldCheck:
		return "cross-field"
	default:
		return "unknown"
	}
}

// Rule is a single executable check. Evaluate is a pure function of the
// record: no side effects, no shared mutable state, so the engine may run
// it concurrently across records without locking. A rule yields at most one
// finding per record; multiple violations of the same rule on the same
// record collapse to one.
type Rule interface {
	Name() string
	Kind() RuleKind

	// Fields returns the declared field names the rule reads. The registry
	// refuses to run when any of them lacks a FieldSpec.
	Fields() []string

	// Evaluate applies the rule to one record. The second return is false
	// when the record passes.
	Evaluate(rec Record) (Finding, bool)
}

// Format identifies one of the built-in format rules.
type Format int

const (
	FormatNone Format = iota
	FormatSSN
	FormatStateCode
	FormatPostalCode
	FormatFEIN
	FormatDate
)

var (
	ssnPattern    = regexp.MustCompile(`^[0-9]{9}$`)
	statePattern  = regexp.MustCompile(`^[A-Z]{2}$`)
	postalPattern = regexp.MustCompile(`^[0-9]{5}(?:-[0-9]{4})?$`)
	feinPattern   = regexp.MustCompile(`^[0-9]{9}$`)
	datePattern   = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// PresenceRule fails when a required field is absent or empty. When the
// spec carries a conditional predicate, the field is required only for
// records where the predicate holds; a predicate that cannot be evaluated
// produces its own distinct finding rather than silently skipping.
type PresenceRule struct {
	spec FieldSpec
}

// NewPresenceRule builds a presence rule from a field declaration.
func NewPresenceRule(spec FieldSpec) *PresenceRule {
	return &PresenceRule{spec: spec}
}

func (r *PresenceRule) Name() string     { return "presence:" + r.spec.Name }
func (r *PresenceRule) Kind() RuleKind   { return RulePresence }
func (r *PresenceRule) Fields() []string { return []string{r.spec.Name} }

func (r *PresenceRule) Evaluate(rec Record) (Finding, bool) {
	required := r.spec.Required
	if r.spec.RequiredWhen != nil {
		ok, err := r.spec.RequiredWhen(rec)
		if err != nil {
			return Finding{
				Field: r.spec.Name,
				Issue: fmt.Sprintf("Conditional requirement for %s could not be evaluated", r.spec.Name),
			}, true
		}
		required = ok
	}

	if required && rec.Get(r.spec.Name).IsAbsent() {
		return Finding{
			Field: r.spec.Name,
			Issue: fmt.Sprintf("Missing required field: %s", r.spec.Name),
		}, true
	}
	return Finding{}, false
}

// TypeRule fails when a present value does not parse as, or carry, the
// field's declared type. Absent values are the presence rule's business.
type TypeRule struct {
	spec FieldSpec
}

// NewTypeRule builds a type check from a field declaration.
func NewTypeRule(spec FieldSpec) *TypeRule {
	return &TypeRule{spec: spec}
}

func (r *TypeRule) Name() string     { return "type:" + r.spec.Name }
func (r *TypeRule) Kind() RuleKind   { return RuleTypeCheck }
func (r *TypeRule) Fields() []string { return []string{r.spec.Name} }

func (r *TypeRule) Evaluate(rec Record) (Finding, bool) {
	v := rec.Get(r.spec.Name)
	if v.IsAbsent() {
		return Finding{}, false
	}
	if issue, bad := typeIssue(r.spec.Name, r.spec.Type, v); bad {
		return Finding{Field: r.spec.Name, Issue: issue}, true
	}
	return Finding{}, false
}

func typeIssue(name string, declared Kind, v Value) (string, bool) {
	switch declared {
	case KindString:
		// Everything renders as a string; string fields carry no type
		// constraint beyond presence and format.
		return "", false

	case KindInteger:
		if v.Kind() == KindInteger {
			return "", false
		}
		if v.Kind() == KindString {
			if _, err := strconv.ParseInt(v.Text(), 10, 64); err == nil {
				return "", false
			}
		}
		return fmt.Sprintf("Invalid integer value in %s", name), true

	case KindDecimal:
		if v.Kind() == KindInteger || v.Kind() == KindDecimal {
			return "", false
		}
		if v.Kind() == KindString {
			if _, err := strconv.ParseFloat(v.Text(), 64); err == nil {
				return "", false
			}
		}
		return fmt.Sprintf("Invalid numeric value in %s", name), true

	case KindDate:
		if v.Kind() == KindDate {
			return "", false
		}
		if v.Kind() == KindString && validDateString(v.Text()) {
			return "", false
		}
		return fmt.Sprintf("Invalid date format in %s", name), true

	case KindTimestamp:
		if v.Kind() == KindTimestamp || v.Kind() == KindDate {
			return "", false
		}
		if v.Kind() == KindString && validTimestampString(v.Text()) {
			return "", false
		}
		return fmt.Sprintf("Invalid timestamp value in %s", name), true

	case KindBool:
		if v.Kind() == KindBool {
			return "", false
		}
		if v.Kind() == KindString {
			if _, err := strconv.ParseBool(v.Text()); err == nil {
				return "", false
			}
		}
		return fmt.Sprintf("Invalid boolean value in %s", name), true

	default:
		return "", false
	}
}

// validDateString accepts strict YYYY-MM-DD and requires a real calendar
// date: 2024-02-30 matches the shape but does not parse.
func validDateString(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func validTimestampString(s string) bool {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02 15:04:05", s)
	return err == nil
}

// FormatRule checks the shape of a present value against one of the
// built-in formats. Absent/empty values pass; presence is checked
// separately.
type FormatRule struct {
	field  string
	format Format
}

// NewFormatRule binds a built-in format to a field.
func NewFormatRule(field string, format Format) *FormatRule {
	return &FormatRule{field: field, format: format}
}

func (r *FormatRule) Name() string     { return "format:" + r.field }
func (r *FormatRule) Kind() RuleKind   { return RuleFormatCheck }
func (r *FormatRule) Fields() []string { return []string{r.field} }

func (r *FormatRule) Evaluate(rec Record) (Finding, bool) {
	v := rec.Get(r.field)
	if v.IsAbsent() {
		return Finding{}, false
	}
	text := v.Text()

	var ok bool
	var issue string
	switch r.format {
	case FormatSSN:
		ok = ssnPattern.MatchString(text)
		issue = "Invalid SSN format"
	case FormatStateCode:
		ok = statePattern.MatchString(text)
		issue = "Invalid state code format"
	case FormatPostalCode:
		ok = postalPattern.MatchString(text)
		issue = "Invalid postal code format"
	case FormatFEIN:
		ok = feinPattern.MatchString(text)
		issue = "Invalid FEIN format"
	case FormatDate:
		ok = validDateString(text)
		issue = fmt.Sprintf("Invalid date format in %s", r.field)
	default:
		return Finding{}, false
	}

	if !ok {
		return Finding{Field: r.field, Issue: issue}, true
	}
	return Finding{}, false
}

// DateOrderRule fails when a designated start date is after its end date.
// Records where either side is absent or unparsable pass; the type and
// presence rules own those problems.
type DateOrderRule struct {
	// Label is the field name the finding reports against; the pair has no
	// single owning field.
	Label      string
	StartField string
	EndField   string
}

func (r *DateOrderRule) Name() string     { return "date-order:" + r.Label }
func (r *DateOrderRule) Kind() RuleKind   { return RuleCrossFieldCheck }
func (r *DateOrderRule) Fields() []string { return []string{r.StartField, r.EndField} }

func (r *DateOrderRule) Evaluate(rec Record) (Finding, bool) {
	start, ok := rec.Get(r.StartField).Time()
	if !ok {
		return Finding{}, false
	}
	end, ok := rec.Get(r.EndField).Time()
	if !ok {
		return Finding{}, false
	}
	if end.Before(start) {
		return Finding{Field: r.Label, Issue: "End date is before start date"}, true
	}
	return Finding{}, false
}

// WageSumRule fails when an aggregate wage field does not equal the sum of
// its constituent fields within Tolerance. The default tolerance is zero:
// exact equality. Records where the total or a part is absent or
// non-numeric pass; presence and type rules report those. Parts listed in
// OptionalParts count as zero when absent instead of disabling the check.
type WageSumRule struct {
	Label      string
	TotalField string
	PartFields []string

	// OptionalParts names the PartFields entries that have no presence
	// rule of their own; an extract omits them when the amount is zero.
	OptionalParts []string

	Tolerance float64
}

func (r *WageSumRule) Name() string   { return "wage-sum:" + r.Label }
func (r *WageSumRule) Kind() RuleKind { return RuleCrossFieldCheck }

func (r *WageSumRule) optionalPart(name string) bool {
	for _, p := range r.OptionalParts {
		if p == name {
			return true
		}
	}
	return false
}

func (r *WageSumRule) Fields() []string {
	fields := make([]string, 0, len(r.PartFields)+1)
	fields = append(fields, r.TotalField)
	fields = append(fields, r.PartFields...)
	return fields
}

func (r *WageSumRule) Evaluate(rec Record) (Finding, bool) {
	total, ok := rec.Get(r.TotalField).Float()
	if !ok {
		return Finding{}, false
	}

	var sum float64
	for _, part := range r.PartFields {
		v := rec.Get(part)
		if v.IsAbsent() && r.optionalPart(part) {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return Finding{}, false
		}
		sum += f
	}

	diff := math.Abs(total - sum)
	if diff > r.Tolerance {
		return Finding{
			Field: r.Label,
			Issue: fmt.Sprintf("%s differs from sum of parts by %s", r.TotalField, strconv.FormatFloat(diff, 'f', -1, 64)),
		}, true
	}
	return Finding{}, false
}

// CompareOp is the relation a CompareRule asserts between two fields.
type CompareOp int

const (
	// CompareLE asserts left <= right.
	CompareLE CompareOp = iota
	// CompareGE asserts left >= right.
	CompareGE
)

// CompareRule fails when an asserted ordering between two numeric fields
// does not hold. Both sides must be present and numeric for the rule to
// apply.
type CompareRule struct {
	Label      string
	Issue      string
	LeftField  string
	Op         CompareOp
	RightField string
}

func (r *CompareRule) Name() string     { return "compare:" + r.Label }
func (r *CompareRule) Kind() RuleKind   { return RuleCrossFieldCheck }
func (r *CompareRule) Fields() []string { return []string{r.LeftField, r.RightField} }

func (r *CompareRule) Evaluate(rec Record) (Finding, bool) {
	left, ok := rec.Get(r.LeftField).Float()
	if !ok {
		return Finding{}, false
	}
	right, ok := rec.Get(r.RightField).Float()
	if !ok {
		return Finding{}, false
	}

	holds := false
	switch r.Op {
	case CompareLE:
		holds = left <= right
	case CompareGE:
		holds = left >= right
	}

	if !holds {
		return Finding{Field: r.Label, Issue: r.Issue}, true
	}
	return Finding{}, false
}
