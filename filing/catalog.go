// Package filing carries the validation catalog for FAMLI quarterly wage
// filings: the required-field declarations, format bindings, and
// cross-field checks applied to every submitted record batch.
package filing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mahakg290399/data-quality-checks/validation"
)

// Catalog is a declarative description of a rule registry. Deployments can
// extend or replace the built-in FAMLI catalog with a YAML file of the same
// shape.
type Catalog struct {
	Version     string             `yaml:"version"`
	Fields      []FieldConfig      `yaml:"fields"`
	DateOrder   []DateOrderConfig  `yaml:"date_order,omitempty"`
	WageSums    []WageSumConfig    `yaml:"wage_sums,omitempty"`
	Comparisons []ComparisonConfig `yaml:"comparisons,omitempty"`
	Rules       []ExprRuleConfig   `yaml:"rules,omitempty"`
}

// FieldConfig declares one field: its type, whether it is required
// (unconditionally or via a CEL predicate over the record), and an optional
// format binding.
type FieldConfig struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Required     bool   `yaml:"required,omitempty"`
	RequiredWhen string `yaml:"required_when,omitempty"`
	Format       string `yaml:"format,omitempty"`
}

// DateOrderConfig asserts start <= end between two date fields.
type DateOrderConfig struct {
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// WageSumConfig asserts that a total field equals the sum of its parts
// within a tolerance (zero by default).
type WageSumConfig struct {
	Name      string   `yaml:"name"`
	Total     string   `yaml:"total"`
	Parts     []string `yaml:"parts"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
}

// ComparisonConfig asserts an ordering between two numeric fields.
type ComparisonConfig struct {
	Name  string `yaml:"name"`
	Issue string `yaml:"issue"`
	Left  string `yaml:"left"`
	Op    string `yaml:"op"` // le or ge
	Right string `yaml:"right"`
}

// ExprRuleConfig declares a custom CEL rule; the expression describes the
// violation.
type ExprRuleConfig struct {
	Name       string `yaml:"name"`
	Field      string `yaml:"field"`
	Issue      string `yaml:"issue"`
	Expression string `yaml:"expression"`
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	return &c, nil
}

// Build populates a rule registry from the catalog. Field registration
// order fixes report ordering, so catalogs should list fields in the order
// they want them reported.
func (c *Catalog) Build() (*validation.Registry, error) {
	reg := validation.NewRegistry()

	for _, fc := range c.Fields {
		kind, err := parseKind(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fc.Name, err)
		}
		format, err := parseFormat(fc.Format)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fc.Name, err)
		}

		spec := validation.FieldSpec{
			Name:     fc.Name,
			Type:     kind,
			Required: fc.Required,
			Format:   format,
		}
		if fc.RequiredWhen != "" {
			pred, err := validation.RequiredWhenCEL(fc.RequiredWhen)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fc.Name, err)
			}
			spec.RequiredWhen = pred
		}

		if err := reg.RegisterField(spec); err != nil {
			return nil, err
		}
		if spec.Required || spec.RequiredWhen != nil {
			reg.RegisterRule(validation.NewPresenceRule(spec))
		}
		reg.RegisterRule(validation.NewTypeRule(spec))
		if format != validation.FormatNone {
			reg.RegisterRule(validation.NewFormatRule(fc.Name, format))
		}
	}

	for _, dc := range c.DateOrder {
		reg.RegisterRule(&validation.DateOrderRule{
			Label:      dc.Name,
			StartField: dc.Start,
			EndField:   dc.End,
		})
	}

	// Parts without a presence rule are omitted from extracts when zero;
	// the sum check treats them as zero rather than skipping the record.
	optional := make(map[string]bool, len(c.Fields))
	for _, fc := range c.Fields {
		if !fc.Required && fc.RequiredWhen == "" {
			optional[fc.Name] = true
		}
	}

	for _, wc := range c.WageSums {
		var optionalParts []string
		for _, part := range wc.Parts {
			if optional[part] {
				optionalParts = append(optionalParts, part)
			}
		}
		reg.RegisterRule(&validation.WageSumRule{
			Label:         wc.Name,
			TotalField:    wc.Total,
			PartFields:    wc.Parts,
			OptionalParts: optionalParts,
			Tolerance:     wc.Tolerance,
		})
	}

	for _, cc := range c.Comparisons {
		op, err := parseOp(cc.Op)
		if err != nil {
			return nil, fmt.Errorf("comparison %s: %w", cc.Name, err)
		}
		reg.RegisterRule(&validation.CompareRule{
			Label:      cc.Name,
			Issue:      cc.Issue,
			LeftField:  cc.Left,
			Op:         op,
			RightField: cc.Right,
		})
	}

	for _, rc := range c.Rules {
		rule, err := validation.NewCELRule(rc.Name, rc.Field, rc.Issue, rc.Expression)
		if err != nil {
			return nil, err
		}
		reg.RegisterRule(rule)
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func parseKind(name string) (validation.Kind, error) {
	switch name {
	case "string":
		return validation.KindString, nil
	case "integer", "int":
		return validation.KindInteger, nil
	case "decimal", "numeric":
		return validation.KindDecimal, nil
	case "date":
		return validation.KindDate, nil
	case "datetime", "timestamp":
		return validation.KindTimestamp, nil
	case "boolean", "bool":
		return validation.KindBool, nil
	default:
		return 0, fmt.Errorf("unknown type %q (must be one of: string, integer, decimal, date, datetime, boolean)", name)
	}
}

func parseFormat(name string) (validation.Format, error) {
	switch name {
	case "":
		return validation.FormatNone, nil
	case "ssn":
		return validation.FormatSSN, nil
	case "state_code":
		return validation.FormatStateCode, nil
	case "postal_code":
		return validation.FormatPostalCode, nil
	case "fein":
		return validation.FormatFEIN, nil
	case "date":
		return validation.FormatDate, nil
	default:
		return 0, fmt.Errorf("unknown format %q (must be one of: ssn, state_code, postal_code, fein, date)", name)
	}
}

func parseOp(name string) (validation.CompareOp, error) {
	switch name {
	case "le":
		return validation.CompareLE, nil
	case "ge":
		return validation.CompareGE, nil
	default:
		return 0, fmt.Errorf("unknown comparison op %q (must be le or ge)", name)
	}
}
