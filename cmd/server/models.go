package main

import (
	"math"
	"strconv"

	"github.com/mahakg290399/data-quality-checks/validation"
)

// ValidateRequest is the request body for POST /api/v1/validate. Each
// record is a flat field-to-value object; null values mark absent fields.
type ValidateRequest struct {
	Records []map[string]any `json:"records"`

	// DryRun skips report persistence.
	DryRun bool `json:"dryRun,omitempty"`
}

// ValidateResponse wraps the report with the wall-clock validation time.
type ValidateResponse struct {
	Report         *validation.Report `json:"report"`
	ValidationTime string             `json:"validationTime"`
}

// ReportsListResponse is the response for GET /api/v1/reports.
type ReportsListResponse struct {
	Reports []*validation.Report `json:"reports"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	TotalRuns     int64  `json:"totalRuns"`
	TotalRecords  int64  `json:"totalRecords"`
	TotalFindings int64  `json:"totalFindings"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// recordFromJSON converts a decoded JSON object into a Record. JSON numbers
// arrive as float64; integral values are narrowed back to integers so that
// integer-typed fields validate cleanly.
func recordFromJSON(index int, raw map[string]any) validation.Record {
	rec := validation.NewRecord(strconv.Itoa(index))
	for name, v := range raw {
		rec.Fields[name] = valueFromJSON(v)
	}
	return rec
}

func valueFromJSON(v any) validation.Value {
	switch tv := v.(type) {
	case nil:
		return validation.Absent()
	case string:
		return validation.String(tv)
	case bool:
		return validation.Bool(tv)
	case float64:
		if tv == math.Trunc(tv) && math.Abs(tv) < 1<<53 {
			return validation.Integer(int64(tv))
		}
		return validation.Decimal(tv)
	default:
		// Nested objects/arrays have no field representation; treat them as
		// absent so presence rules surface them.
		return validation.Absent()
	}
}
