package main

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mahakg290399/data-quality-checks/validation"
)

// newTestServer builds a server over the built-in catalog and the
// in-memory report store.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(Config{})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

// validFilingJSON is a filing record as a decoded request body would carry
// it: wages as JSON numbers, flags as booleans, dates as strings.
func validFilingJSON() map[string]any {
	return map[string]any{
		"DocumentCount":            1,
		"AmendedReturn":            false,
		"FAMLIPremiumStartDate":    "2024-01-01",
		"FAMLIPremiumEndDate":      "2024-03-31",
		"SettlementDate":           "2024-04-15T10:30:00Z",
		"EmployerLegalName":        "Acme Staffing LLC",
		"EmployerFEIN":             "841234567",
		"BusAdrStreet1":            "600 17th St",
		"BusAdrCity":               "Denver",
		"BusAdrStateCode":          "CO",
		"BusAdrPostalCode":         "80202",
		"BusAdrCountry":            "US",
		"TotalWagesThisPeriod":     182000.0,
		"PaymentAmountTotal":       819.0,
		"IsFinalReturn":            false,
		"EmployeeSSN":              "123456789",
		"EmployeeFirstName":        "Jordan",
		"EmployeeLastName":         "Reyes",
		"YearToDateWages":          18200.0,
		"GrossWagesThisQtr":        9100.0,
		"SubjectWagesThisQtr":      9100.0,
		"ExcessWagesThisQtr":       0,
		"FAMLIContributionThisQtr": 81.90,
	}
}

func TestHandleValidateRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	defective := validFilingJSON()
	defective["EmployeeSSN"] = "123-45-6789"
	delete(defective, "EmployerLegalName")

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/validate", ValidateRequest{
		Records: []map[string]any{validFilingJSON(), defective},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /validate status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp ValidateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Report == nil {
		t.Fatal("response should carry a report")
	}
	if resp.Report.Records != 2 {
		t.Errorf("report records = %d, want 2", resp.Report.Records)
	}

	wantIssues := map[string]string{
		"EmployerLegalName": "Missing required field: EmployerLegalName",
		"EmployeeSSN":       "Invalid SSN format",
	}
	for field, issue := range wantIssues {
		found := false
		for _, g := range resp.Report.Issues {
			if g.Field == field && g.Issue == issue && g.Count == 1 {
				found = true
			}
		}
		if !found {
			t.Errorf("expected issue (%s, %s), got %v", field, issue, resp.Report.Issues)
		}
	}

	// The persisted report comes back identical.
	rr = doJSON(t, srv, http.MethodGet, "/api/v1/reports/"+resp.Report.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /reports/{id} status = %d", rr.Code)
	}
	var fetched validation.Report
	if err := json.NewDecoder(rr.Body).Decode(&fetched); err != nil {
		t.Fatalf("failed to decode fetched report: %v", err)
	}
	if fetched.ID != resp.Report.ID || len(fetched.Issues) != len(resp.Report.Issues) {
		t.Errorf("fetched report = %+v, want %+v", fetched, resp.Report)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/reports", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /reports status = %d", rr.Code)
	}
	var list ReportsListResponse
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode report list: %v", err)
	}
	if len(list.Reports) != 1 {
		t.Errorf("listed %d reports, want 1", len(list.Reports))
	}
}

func TestHandleValidateDryRun(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/validate", ValidateRequest{
		Records: []map[string]any{validFilingJSON()},
		DryRun:  true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /validate status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp ValidateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	// Dry runs are never persisted.
	rr = doJSON(t, srv, http.MethodGet, "/api/v1/reports/"+resp.Report.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET dry-run report status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleValidateBadRequest(t *testing.T) {
	srv := newTestServer(t)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader("{not json"))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("no records", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPost, "/api/v1/validate", ValidateRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d", rr.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", resp.Status)
	}
}

func TestValueFromJSON(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want validation.Kind
	}{
		{"null", nil, validation.KindAbsent},
		{"string", "CO", validation.KindString},
		{"bool", true, validation.KindBool},
		{"integral number", float64(42), validation.KindInteger},
		{"fractional number", 41.5, validation.KindDecimal},
		{"largest exact integer", float64(1<<53 - 1), validation.KindInteger},
		{"beyond exact integer range", math.Ldexp(1, 53), validation.KindDecimal},
		{"nested object", map[string]any{"x": 1}, validation.KindAbsent},
		{"array", []any{1, 2}, validation.KindAbsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := valueFromJSON(tt.in).Kind(); got != tt.want {
				t.Errorf("valueFromJSON(%v) kind = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
