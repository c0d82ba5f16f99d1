package filing

import "github.com/mahakg290399/data-quality-checks/validation"

// DefaultCatalog returns the built-in FAMLI quarterly wage filing catalog:
// the employer return header, business address, and per-employee wage
// fields, with the premium-period and wage consistency checks applied
// across them.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Version: "1",
		Fields: []FieldConfig{
			{Name: "DocumentCount", Type: "integer", Required: true},
			{Name: "AmendedReturn", Type: "boolean", Required: true},
			{Name: "FAMLIPremiumStartDate", Type: "date", Required: true},
			{Name: "FAMLIPremiumEndDate", Type: "date", Required: true},
			{Name: "SettlementDate", Type: "datetime", Required: true},
			{Name: "EmployerLegalName", Type: "string", Required: true},
			// FEIN is optional on amended returns; the format applies
			// whenever a value is present.
			{Name: "EmployerFEIN", Type: "string", Format: "fein"},
			{Name: "BusAdrStreet1", Type: "string", Required: true},
			{Name: "BusAdrCity", Type: "string", Required: true},
			{Name: "BusAdrStateCode", Type: "string", RequiredWhen: `record.BusAdrCountry == "US"`, Format: "state_code"},
			{Name: "BusAdrPostalCode", Type: "string", Required: true, Format: "postal_code"},
			{Name: "BusAdrCountry", Type: "string", Required: true},
			{Name: "TotalWagesThisPeriod", Type: "decimal", Required: true},
			{Name: "PaymentAmountTotal", Type: "decimal", Required: true},
			{Name: "IsFinalReturn", Type: "boolean", Required: true},
			{Name: "EmployeeSSN", Type: "string", Required: true, Format: "ssn"},
			{Name: "EmployeeFirstName", Type: "string", Required: true},
			{Name: "EmployeeLastName", Type: "string", Required: true},
			{Name: "YearToDateWages", Type: "decimal", Required: true},
			{Name: "GrossWagesThisQtr", Type: "decimal", Required: true},
			{Name: "SubjectWagesThisQtr", Type: "decimal", Required: true},
			// Wages above the annual cap; reported only when non-zero.
			{Name: "ExcessWagesThisQtr", Type: "decimal"},
			{Name: "FAMLIContributionThisQtr", Type: "decimal", Required: true},
		},
		DateOrder: []DateOrderConfig{
			{Name: "FAMLIPremiumDates", Start: "FAMLIPremiumStartDate", End: "FAMLIPremiumEndDate"},
		},
		WageSums: []WageSumConfig{
			{
				Name:  "WagesCalculation",
				Total: "GrossWagesThisQtr",
				Parts: []string{"SubjectWagesThisQtr", "ExcessWagesThisQtr"},
			},
		},
		Comparisons: []ComparisonConfig{
			{
				Name:  "WagesCalculation",
				Issue: "SubjectWagesThisQtr exceeds GrossWagesThisQtr",
				Left:  "SubjectWagesThisQtr",
				Op:    "le",
				Right: "GrossWagesThisQtr",
			},
			{
				Name:  "WagesCalculation",
				Issue: "YearToDateWages is less than GrossWagesThisQtr",
				Left:  "YearToDateWages",
				Op:    "ge",
				Right: "GrossWagesThisQtr",
			},
		},
		Rules: []ExprRuleConfig{
			{
				Name:       "negative-payment",
				Field:      "PaymentAmountTotal",
				Issue:      "Negative payment amount in PaymentAmountTotal",
				Expression: `double(record.PaymentAmountTotal) < 0.0`,
			},
		},
	}
}

// BuildRegistry builds the rule registry for the default FAMLI catalog.
func BuildRegistry() (*validation.Registry, error) {
	return DefaultCatalog().Build()
}
