// Command validate runs the quality gate over a filing extract: it reads a
// CSV of records, applies the catalog's rules, and writes the aggregated
// issue report as a timestamped CSV, optionally persisting it to Postgres.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/caarlos0/env/v11"
	_ "github.com/lib/pq"

	"github.com/mahakg290399/data-quality-checks/filing"
	"github.com/mahakg290399/data-quality-checks/internal/logger"
	"github.com/mahakg290399/data-quality-checks/reports"
	"github.com/mahakg290399/data-quality-checks/validation"
)

// Config is read from the environment; flags take precedence.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	CatalogPath string `env:"CATALOG_PATH"`
	Workers     int    `env:"VALIDATION_WORKERS" envDefault:"0"`
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse configuration", "error", err)
	}

	var inputPath, outputDir, catalogPath string
	flag.StringVar(&inputPath, "input", "", "Input CSV file (required)")
	flag.StringVar(&outputDir, "output", ".", "Directory for the report CSV")
	flag.StringVar(&catalogPath, "catalog", cfg.CatalogPath, "Catalog YAML file (default: built-in FAMLI catalog)")
	flag.Parse()

	if inputPath == "" {
		logger.Fatal("input file is required: use -input")
	}

	catalog := filing.DefaultCatalog()
	if catalogPath != "" {
		loaded, err := filing.Load(catalogPath)
		if err != nil {
			logger.Fatal("failed to load catalog", "path", catalogPath, "error", err)
		}
		catalog = loaded
	}

	registry, err := catalog.Build()
	if err != nil {
		logger.Fatal("failed to build registry", "error", err)
	}

	records, err := readRecords(inputPath)
	if err != nil {
		logger.Fatal("failed to read input", "path", inputPath, "error", err)
	}
	logger.Info("input loaded", "path", inputPath, "records", len(records))

	var opts []validation.Option
	if cfg.Workers > 0 {
		opts = append(opts, validation.WithWorkers(cfg.Workers))
	}
	engine := validation.NewEngine(registry, opts...)

	report, err := engine.Validate(context.Background(), records)
	if err != nil {
		logger.Fatal("validation failed", "error", err)
	}

	outPath, err := writeReport(outputDir, report)
	if err != nil {
		logger.Fatal("failed to write report", "error", err)
	}
	logger.Info("report written",
		"path", outPath,
		"report_id", report.ID,
		"issue_groups", len(report.Issues),
	)

	if cfg.DatabaseURL != "" {
		if err := persistReport(cfg.DatabaseURL, report); err != nil {
			logger.Fatal("failed to persist report", "error", err)
		}
		logger.Info("report persisted", "report_id", report.ID)
	}
}

// readRecords loads a headered CSV into records. Every cell arrives as a
// string value; empty cells are absent. The row number (1-based, excluding
// the header) identifies the record.
func readRecords(path string) ([]validation.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows become absent fields, not errors

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	var records []validation.Record
	for row := 1; ; row++ {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		rec := validation.NewRecord(strconv.Itoa(row))
		for i, name := range header {
			if i >= len(cells) || cells[i] == "" {
				continue
			}
			rec.Fields[name] = validation.String(cells[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

// writeReport writes the issue groups as validation_results_<ts>.csv and
// returns the output path.
func writeReport(dir string, report *validation.Report) (string, error) {
	name := fmt.Sprintf("validation_results_%s.csv", report.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"field", "issue", "count"}); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}
	for _, g := range report.Issues {
		if err := w.Write([]string{g.Field, g.Issue, strconv.Itoa(g.Count)}); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}
	return path, nil
}

func persistReport(databaseURL string, report *validation.Report) error {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return reports.NewPostgresReportStore(db).Save(report)
}
