package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/exporter"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/infrastructure"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/operations"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Pipeline runs the analysis steps. *operations.Manager satisfies it.
type Pipeline interface {
	Execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, *operations.OperationState, error)
}

// ReportService owns the latest report and serves it to the preview
// server. Only one run executes at a time.
type ReportService struct {
	pipeline Pipeline
	paths    *config.Paths
	logger   *slog.Logger

	runMu sync.Mutex

	mu      sync.RWMutex
	report  *domain.Report
	lastRun *operations.OperationResponse
}

// NewReportService creates a report service
func NewReportService(pipeline Pipeline, paths *config.Paths, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		pipeline: pipeline,
		paths:    paths,
		logger:   logger.With(slog.String("service", "report")),
	}
}

// Run executes the pipeline and keeps its report. A failed run leaves the
// previous report in place. Runs started outside a request get their own
// trace ID so their log lines can be grouped.
func (s *ReportService) Run(ctx context.Context) (*operations.OperationResponse, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)

	resp, state, err := s.pipeline.Execute(ctx, operations.OperationRequest{})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = resp
	if err != nil {
		level := slog.LevelError
		if apperrors.IsType(err, apperrors.ErrTypeValidation, apperrors.ErrTypeParsing) {
			level = slog.LevelWarn
		}
		infrastructure.WithError(s.logger, err).Log(ctx, level, "report run failed")
		return resp, err
	}

	report, ok := operations.ReportFromState(state)
	if !ok {
		return resp, fmt.Errorf("run %s finished without a report", resp.ID)
	}
	s.report = report
	s.logger.InfoContext(ctx, "report updated",
		slog.String("run_id", report.RunID),
		slog.Int("merged_rows", len(report.Merged)))
	return resp, nil
}

// Report returns the current report
func (s *ReportService) Report(ctx context.Context) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return nil, ErrReportNotReady
	}
	return s.report, nil
}

// LastRun returns the response of the most recent run, if any
func (s *ReportService) LastRun(ctx context.Context) (*operations.OperationResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastRun == nil {
		return nil, ErrReportNotReady
	}
	return s.lastRun, nil
}

// Tables returns every summary table of the current report
func (s *ReportService) Tables(ctx context.Context) ([]exporter.Table, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	return exporter.SummaryTables(report), nil
}

// Table returns one table by name, including the merged dataset
func (s *ReportService) Table(ctx context.Context, name string) (exporter.Table, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return exporter.Table{}, err
	}
	t, ok := exporter.LookupTable(report, name)
	if !ok {
		return exporter.Table{}, apperrors.NewNotFoundError("table", name)
	}
	return t, nil
}

// Regressions returns every regression of the current report
func (s *ReportService) Regressions(ctx context.Context) ([]domain.Regression, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return nil, err
	}
	return report.Regressions, nil
}

// Regression returns one regression by ID
func (s *ReportService) Regression(ctx context.Context, id string) (domain.Regression, error) {
	report, err := s.Report(ctx)
	if err != nil {
		return domain.Regression{}, err
	}
	r, ok := report.Regression(id)
	if !ok {
		return domain.Regression{}, apperrors.NewNotFoundError("regression", id)
	}
	return r, nil
}

// WorkbookPath returns the path of the exported workbook
func (s *ReportService) WorkbookPath(ctx context.Context) (string, error) {
	if s.paths == nil || !config.FileExists(s.paths.WorkbookFile) {
		return "", apperrors.NewNotFoundError("workbook", config.WorkbookFile)
	}
	return s.paths.WorkbookFile, nil
}
