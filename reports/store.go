// Package reports persists validation reports. The validation core hands
// ownership of a finished report to a ReportStore; the core itself never
// touches storage.
package reports

import (
	"fmt"
	"sync"

	"github.com/mahakg290399/data-quality-checks/validation"
)

// ReportStore manages report persistence and retrieval.
type ReportStore interface {
	// Save persists a finished report.
	Save(report *validation.Report) error

	// Get retrieves a report by ID.
	Get(id string) (*validation.Report, error)

	// List returns up to limit reports, newest first.
	List(limit int) ([]*validation.Report, error)
}

// InMemoryReportStore implements ReportStore with a map, for tests and for
// running the server without a database.
type InMemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]*validation.Report
	order   []string // IDs in save order
}

// NewInMemoryReportStore creates an empty in-memory store.
func NewInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{reports: make(map[string]*validation.Report)}
}

// Save stores the report, rejecting duplicate IDs.
func (s *InMemoryReportStore) Save(report *validation.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return fmt.Errorf("report with ID %s already exists", report.ID)
	}
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
	return nil
}

// Get retrieves a report by ID.
func (s *InMemoryReportStore) Get(id string) (*validation.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("report with ID %s not found", id)
	}
	return report, nil
}

// List returns up to limit reports, newest first.
func (s *InMemoryReportStore) List(limit int) ([]*validation.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}

	out := make([]*validation.Report, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.reports[s.order[i]])
	}
	return out, nil
}
