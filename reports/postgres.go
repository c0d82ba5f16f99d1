package reports

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/mahakg290399/data-quality-checks/validation"
)

// PostgresReportStore implements ReportStore backed by PostgreSQL. Issue
// groups are stored with their position so a fetched report reproduces the
// engine's deterministic ordering exactly.
type PostgresReportStore struct {
	db *sql.DB
}

// NewPostgresReportStore creates a PostgreSQL-backed report store.
func NewPostgresReportStore(db *sql.DB) *PostgresReportStore {
	return &PostgresReportStore{db: db}
}

// Save persists the report and its issue groups in one transaction.
func (s *PostgresReportStore) Save(report *validation.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO validation_reports (id, generated_at, record_count)
		VALUES ($1, $2, $3)
	`, report.ID, report.GeneratedAt, report.Records)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	for i, issue := range report.Issues {
		_, err = tx.Exec(`
			INSERT INTO validation_issues (report_id, position, field_name, issue, count)
			VALUES ($1, $2, $3, $4, $5)
		`, report.ID, i, issue.Field, issue.Issue, issue.Count)
		if err != nil {
			return fmt.Errorf("failed to insert issue group: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// Get retrieves a report by ID, issue groups in stored order.
func (s *PostgresReportStore) Get(id string) (*validation.Report, error) {
	var report validation.Report
	err := s.db.QueryRow(`
		SELECT id, generated_at, record_count
		FROM validation_reports
		WHERE id = $1
	`, id).Scan(&report.ID, &report.GeneratedAt, &report.Records)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report with ID %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	issues, err := s.loadIssues(id)
	if err != nil {
		return nil, err
	}
	report.Issues = issues
	return &report, nil
}

// List returns up to limit reports, newest first.
func (s *PostgresReportStore) List(limit int) ([]*validation.Report, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, generated_at, record_count
		FROM validation_reports
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []*validation.Report
	for rows.Next() {
		var report validation.Report
		if err := rows.Scan(&report.ID, &report.GeneratedAt, &report.Records); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		out = append(out, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	for _, report := range out {
		issues, err := s.loadIssues(report.ID)
		if err != nil {
			return nil, err
		}
		report.Issues = issues
	}
	return out, nil
}

func (s *PostgresReportStore) loadIssues(reportID string) ([]validation.IssueGroup, error) {
	rows, err := s.db.Query(`
		SELECT field_name, issue, count
		FROM validation_issues
		WHERE report_id = $1
		ORDER BY position
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue groups: %w", err)
	}
	defer rows.Close()

	var issues []validation.IssueGroup
	for rows.Next() {
		var g validation.IssueGroup
		if err := rows.Scan(&g.Field, &g.Issue, &g.Count); err != nil {
			return nil, fmt.Errorf("failed to scan issue row: %w", err)
		}
		issues = append(issues, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issue rows: %w", err)
	}
	return issues, nil
}
