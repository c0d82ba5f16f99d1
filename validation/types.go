package validation

import (
	"strconv"
	"time"
)

// Kind identifies the concrete type carried by a Value.
type Kind int

const (
	KindAbsent Kind = iota
	KindString
	KindInteger
	KindDecimal
	KindDate
	KindTimestamp
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a tagged variant for a single record field. Rules switch on the
// tag instead of coercing values implicitly.
type Value struct {
	kind Kind
	str  string
	num  int64
	dec  float64
	ts   time.Time
	b    bool
}

// Absent returns the zero Value, representing a null/missing field.
func Absent() Value { return Value{} }

// String wraps a raw string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Integer wraps an int64 value.
func Integer(i int64) Value { return Value{kind: KindInteger, num: i} }

// Decimal wraps a float64 value.
func Decimal(f float64) Value { return Value{kind: KindDecimal, dec: f} }

// Date wraps a calendar date. The time-of-day portion is ignored.
func Date(t time.Time) Value { return Value{kind: KindDate, ts: t} }

// Timestamp wraps a point in time.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t} }

// Bool wraps a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the value is missing. An empty string counts as
// absent: upstream extracts do not distinguish the two.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent || (v.kind == KindString && v.str == "")
}

// Text renders the value as its canonical string form. Absent renders as "".
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.dec, 'f', -1, 64)
	case KindDate:
		return v.ts.Format(dateLayout)
	case KindTimestamp:
		return v.ts.Format(time.RFC3339)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Float returns the value as a float64. String values are parsed; anything
// non-numeric reports false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.num), true
	case KindDecimal:
		return v.dec, true
	case KindString:
		f, err := strconv.ParseFloat(v.str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Time returns the value as a calendar date. String values must be in strict
// YYYY-MM-DD form.
func (v Value) Time() (time.Time, bool) {
	switch v.kind {
	case KindDate, KindTimestamp:
		return v.ts, true
	case KindString:
		t, err := time.Parse(dateLayout, v.str)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// native converts the value to a plain Go value for CEL evaluation.
// Absent fields are omitted from the CEL activation entirely, so this is
// only called for present values.
func (v Value) native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return v.num
	case KindDecimal:
		return v.dec
	case KindDate, KindTimestamp:
		return v.ts
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Record is one input row: a mapping from field name to value. Records are
// read-only during validation; rules never mutate them.
type Record struct {
	// ID optionally identifies the record for Finding attribution
	// (a row number, a source key). It plays no role in validation.
	ID     string
	Fields map[string]Value
}

// NewRecord creates an empty record with the given identifier.
func NewRecord(id string) Record {
	return Record{ID: id, Fields: make(map[string]Value)}
}

// Get returns the value for a field, or Absent if the record does not carry
// the field at all.
func (r Record) Get(name string) Value {
	v, ok := r.Fields[name]
	if !ok {
		return Absent()
	}
	return v
}

// celFields renders the record's present fields as a map for CEL evaluation.
// Absent fields are left out so that expressions touching them error instead
// of silently comparing against a zero value.
func (r Record) celFields() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for name, v := range r.Fields {
		if v.IsAbsent() {
			continue
		}
		out[name] = v.native()
	}
	return out
}

// Finding is a single rule violation detected on a single record. Findings
// are ephemeral: the engine pools them and collapses them into IssueGroups.
type Finding struct {
	Field    string
	Issue    string
	RecordID string
}

// IssueGroup is the aggregated unit of the final report: one entry per
// distinct (field, issue) pair with the number of contributing records.
type IssueGroup struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

// Report is the terminal output of a validation run. Everything except ID
// and GeneratedAt is deterministic for a given registry and record set.
type Report struct {
	ID          string       `json:"id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Records     int          `json:"records"`
	Issues      []IssueGroup `json:"issues"`
}
