package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/mahakg290399/data-quality-checks/filing"
	"github.com/mahakg290399/data-quality-checks/internal/logger"
	"github.com/mahakg290399/data-quality-checks/reports"
	"github.com/mahakg290399/data-quality-checks/validation"
)

// Config is read from the environment at startup.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	CatalogPath string `env:"CATALOG_PATH"`
	Workers     int    `env:"VALIDATION_WORKERS" envDefault:"0"`
}

type Server struct {
	engine *validation.Engine
	store  reports.ReportStore
	db     *sql.DB
	router *chi.Mux
}

func NewServer(cfg Config) (*Server, error) {
	catalog := filing.DefaultCatalog()
	if cfg.CatalogPath != "" {
		loaded, err := filing.Load(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		catalog = loaded
	}

	registry, err := catalog.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}

	var opts []validation.Option
	if cfg.Workers > 0 {
		opts = append(opts, validation.WithWorkers(cfg.Workers))
	}

	s := &Server{
		engine: validation.NewEngine(registry, opts...),
		store:  reports.NewInMemoryReportStore(),
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		s.db = db
		s.store = reports.NewPostgresReportStore(db)
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/validate", s.handleValidate)
	r.Get("/api/v1/reports", s.handleListReports)
	r.Get("/api/v1/reports/{reportId}", s.handleGetReport)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		TotalRuns:     logger.TotalRuns.Load(),
		TotalRecords:  logger.TotalRecords.Load(),
		TotalFindings: logger.TotalFindings.Load(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Records) == 0 {
		respondError(w, http.StatusBadRequest, "records are required", nil)
		return
	}

	records := make([]validation.Record, 0, len(req.Records))
	for i, raw := range req.Records {
		records = append(records, recordFromJSON(i, raw))
	}

	start := time.Now()
	report, err := s.engine.Validate(r.Context(), records)
	if err != nil {
		// Only registry misconfiguration reaches here; bad records become
		// report content.
		respondError(w, http.StatusInternalServerError, "validation failed", err)
		return
	}

	if !req.DryRun {
		if err := s.store.Save(report); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to persist report", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		Report:         report,
		ValidationTime: time.Since(start).String(),
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list reports", err)
		return
	}
	respondJSON(w, http.StatusOK, ReportsListResponse{Reports: list})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportId")

	report, err := s.store.Get(reportID)
	if err != nil {
		respondError(w, http.StatusNotFound, "report not found", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse configuration", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
