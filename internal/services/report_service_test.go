package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/exporter"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/infrastructure"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/operations"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePipeline returns a fixed report or error
type fakePipeline struct {
	report  *domain.Report
	err     error
	started chan struct{}
	block   chan struct{}
	calls   int
	traceID string
}

func (f *fakePipeline) Execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, *operations.OperationState, error) {
	f.calls++
	f.traceID = infrastructure.GetTraceID(ctx)
	if f.block != nil {
		close(f.started)
		<-f.block
	}
	state := operations.NewOperationState("run-1")
	resp := &operations.OperationResponse{ID: "run-1", Status: operations.OperationStatusCompleted}
	if f.err != nil {
		resp.Status = operations.OperationStatusFailed
		return resp, state, f.err
	}
	if f.report != nil {
		state.SetContext(operations.ContextKeyReport, f.report)
	}
	return resp, state, nil
}

// seededService returns a service holding testReport from one successful run
func seededService(t *testing.T, paths *config.Paths) (*ReportService, *fakePipeline) {
	t.Helper()
	pipeline := &fakePipeline{report: testReport()}
	svc := NewReportService(pipeline, paths, discardLogger())
	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	return svc, pipeline
}

func testReport() *domain.Report {
	return &domain.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tables: &domain.ReportTables{
			ReferenceYear: 2016,
			Counties: []domain.CountySummary{
				{CountyName: "ALBANY", Schools: 2, TotalEnroll: domain.Some(900), PerFreeLunch: domain.Some(0.2)},
			},
			Tiers: []domain.TierSummary{{PovCat: domain.PovertyLow, Records: 2, ZMeanELAScore: domain.Some(0.5)}},
		},
		Regressions: []domain.Regression{
			{ID: "ela_vs_lunch", Title: "ELA vs lunch", Fit: domain.RegressionFit{N: 3, Slope: -2, Intercept: 300}},
		},
	}
}

func TestReportService_NotReady(t *testing.T) {
	svc := NewReportService(&fakePipeline{}, nil, discardLogger())
	ctx := context.Background()

	_, err := svc.Report(ctx)
	assert.ErrorIs(t, err, ErrReportNotReady)
	_, err = svc.Tables(ctx)
	assert.ErrorIs(t, err, ErrReportNotReady)
	_, err = svc.Regression(ctx, "ela_vs_lunch")
	assert.ErrorIs(t, err, ErrReportNotReady)
	_, err = svc.LastRun(ctx)
	assert.ErrorIs(t, err, ErrReportNotReady)
}

func TestReportService_Run(t *testing.T) {
	pipeline := &fakePipeline{report: testReport()}
	svc := NewReportService(pipeline, nil, discardLogger())
	ctx := context.Background()

	resp, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", resp.ID)

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)

	last, err := svc.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, last.Status)
}

func TestReportService_FailedRunKeepsPreviousReport(t *testing.T) {
	svc, pipeline := seededService(t, nil)
	pipeline.report = nil
	pipeline.err = errors.New("load failed")
	ctx := context.Background()

	_, err := svc.Run(ctx)
	require.Error(t, err)

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)

	last, err := svc.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusFailed, last.Status)
}

func TestReportService_RunWithoutReport(t *testing.T) {
	svc := NewReportService(&fakePipeline{}, nil, discardLogger())
	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a report")
}

func TestReportService_RunInProgress(t *testing.T) {
	pipeline := &fakePipeline{report: testReport(), started: make(chan struct{}), block: make(chan struct{})}
	svc := NewReportService(pipeline, nil, discardLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Run(context.Background())
	}()

	<-pipeline.started

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(pipeline.block)
	wg.Wait()
	assert.Equal(t, 1, pipeline.calls)
}

func TestReportService_Lookups(t *testing.T) {
	svc, _ := seededService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		table    string
		notFound bool
	}{
		{name: "summary table", table: exporter.TableCounties},
		{name: "merged dataset", table: exporter.TableMerged},
		{name: "unknown", table: "nope", notFound: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := svc.Table(ctx, tt.table)
			if tt.notFound {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
				assert.Contains(t, err.Error(), "table nope not found")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.table, table.Name)
		})
	}

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 7)

	r, err := svc.Regression(ctx, "ela_vs_lunch")
	require.NoError(t, err)
	assert.Equal(t, -2.0, r.Fit.Slope)

	_, err = svc.Regression(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestReportService_WorkbookPath(t *testing.T) {
	dir := t.TempDir()
	paths := &config.Paths{OutputDir: dir, WorkbookFile: filepath.Join(dir, config.WorkbookFile)}
	svc := NewReportService(&fakePipeline{}, paths, discardLogger())
	ctx := context.Background()

	_, err := svc.WorkbookPath(ctx)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	require.NoError(t, os.WriteFile(paths.WorkbookFile, []byte("x"), 0644))
	path, err := svc.WorkbookPath(ctx)
	require.NoError(t, err)
	assert.Equal(t, paths.WorkbookFile, path)
}

func TestReportService_RunTraceID(t *testing.T) {
	_, pipeline := seededService(t, nil)
	assert.Len(t, pipeline.traceID, 36, "CLI runs get a generated trace ID")

	svc := NewReportService(pipeline, nil, discardLogger())
	_, err := svc.Run(infrastructure.WithTraceID(context.Background(), "req-7"))
	require.NoError(t, err)
	assert.Equal(t, "req-7", pipeline.traceID, "request trace IDs are kept")
}

func TestReportService_RunLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"bad input", apperrors.NewValidationError("duplicate county row for ALBANY in 2015"), "WARN"},
		{"unreadable input", apperrors.NewParsingError("schools.csv line 4", errors.New("bad quote")), "WARN"},
		{"storage", apperrors.NewStorageError("failed to write report.xlsx", errors.New("disk full")), "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			svc := NewReportService(&fakePipeline{err: tt.err}, nil, slog.New(slog.NewJSONHandler(&buf, nil)))
			_, err := svc.Run(context.Background())
			require.Error(t, err)

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "report run failed", entry["msg"])
			assert.Equal(t, tt.level, entry["level"])
		})
	}
}
