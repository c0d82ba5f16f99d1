//go:build integration
// +build integration

package reports_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mahakg290399/data-quality-checks/reports"
	"github.com/mahakg290399/data-quality-checks/validation"

	_ "github.com/lib/pq"
)

// setupTestDB creates a PostgreSQL container and returns a connection
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "validation_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(60 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=validation_test sslmode=disable", host, port.Port())

	// Wait for connection to be available
	var db *sql.DB
	for i := 0; i < 30; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_initial_schema.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}

	if _, err = db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		postgresContainer.Terminate(ctx)
	}

	return db, cleanup
}

func TestPostgresReportStore_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := reports.NewPostgresReportStore(db)

	want := &validation.Report{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC().Truncate(time.Microsecond),
		Records:     250,
		Issues: []validation.IssueGroup{
			{Field: "EmployeeSSN", Issue: "Invalid SSN format", Count: 4},
			{Field: "BusAdrStateCode", Issue: "Missing required field: BusAdrStateCode", Count: 2},
			{Field: "FAMLIPremiumDates", Issue: "End date is before start date", Count: 1},
		},
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}

	got, err := store.Get(want.ID)
	if err != nil {
		t.Fatalf("Failed to get report: %v", err)
	}
	if got.Records != want.Records {
		t.Errorf("Expected %d records, got %d", want.Records, got.Records)
	}
	if len(got.Issues) != len(want.Issues) {
		t.Fatalf("Expected %d issue groups, got %d", len(want.Issues), len(got.Issues))
	}
	// Stored position must reproduce the original ordering.
	for i := range want.Issues {
		if got.Issues[i] != want.Issues[i] {
			t.Errorf("Issue %d = %+v, want %+v", i, got.Issues[i], want.Issues[i])
		}
	}
}

func TestPostgresReportStore_GetMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := reports.NewPostgresReportStore(db)
	if _, err := store.Get(uuid.New().String()); err == nil {
		t.Fatal("Expected an error for a missing report")
	}
}

func TestPostgresReportStore_DuplicateID(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := reports.NewPostgresReportStore(db)
	report := &validation.Report{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Records:     1,
	}
	if err := store.Save(report); err != nil {
		t.Fatalf("Failed to save report: %v", err)
	}
	if err := store.Save(report); err == nil {
		t.Fatal("Expected saving a duplicate report ID to fail")
	}
}

func TestPostgresReportStore_ListNewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := reports.NewPostgresReportStore(db)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 3; i++ {
		report := &validation.Report{
			ID:          uuid.New().String(),
			GeneratedAt: base.Add(time.Duration(i) * time.Minute),
			Records:     10 + i,
		}
		if err := store.Save(report); err != nil {
			t.Fatalf("Failed to save report: %v", err)
		}
		ids = append(ids, report.ID)
	}

	got, err := store.List(2)
	if err != nil {
		t.Fatalf("Failed to list reports: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 reports, got %d", len(got))
	}
	if got[0].ID != ids[2] || got[1].ID != ids[1] {
		t.Errorf("Expected newest-first ordering, got %s then %s", got[0].ID, got[1].ID)
	}
}
