package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/exporter"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/operations"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/services"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockReportService serves a fixed report
type mockReportService struct {
	report   *domain.Report
	runErr   error
	runResp  *operations.OperationResponse
	workbook string
}

func (m *mockReportService) Run(ctx context.Context) (*operations.OperationResponse, error) {
	return m.runResp, m.runErr
}

func (m *mockReportService) Report(ctx context.Context) (*domain.Report, error) {
	if m.report == nil {
		return nil, services.ErrReportNotReady
	}
	return m.report, nil
}

func (m *mockReportService) LastRun(ctx context.Context) (*operations.OperationResponse, error) {
	if m.runResp == nil {
		return nil, services.ErrReportNotReady
	}
	return m.runResp, nil
}

func (m *mockReportService) Tables(ctx context.Context) ([]exporter.Table, error) {
	report, err := m.Report(ctx)
	if err != nil {
		return nil, err
	}
	return exporter.SummaryTables(report), nil
}

func (m *mockReportService) Table(ctx context.Context, name string) (exporter.Table, error) {
	report, err := m.Report(ctx)
	if err != nil {
		return exporter.Table{}, err
	}
	t, ok := exporter.LookupTable(report, name)
	if !ok {
		return exporter.Table{}, apperrors.NewNotFoundError("table", name)
	}
	return t, nil
}

func (m *mockReportService) Regressions(ctx context.Context) ([]domain.Regression, error) {
	report, err := m.Report(ctx)
	if err != nil {
		return nil, err
	}
	return report.Regressions, nil
}

func (m *mockReportService) Regression(ctx context.Context, id string) (domain.Regression, error) {
	report, err := m.Report(ctx)
	if err != nil {
		return domain.Regression{}, err
	}
	r, ok := report.Regression(id)
	if !ok {
		return domain.Regression{}, apperrors.NewNotFoundError("regression", id)
	}
	return r, nil
}

func (m *mockReportService) WorkbookPath(ctx context.Context) (string, error) {
	if m.workbook == "" {
		return "", apperrors.NewNotFoundError("workbook", "report.xlsx")
	}
	return m.workbook, nil
}

func sampleReport() *domain.Report {
	return &domain.Report{
		RunID: "run-1",
		Tables: &domain.ReportTables{
			ReferenceYear: 2016,
			Counties: []domain.CountySummary{
				{CountyName: "ALBANY", Schools: 2, TotalEnroll: domain.Some(900), PerFreeLunch: domain.Some(0.2)},
				{CountyName: "BRONX", Schools: 3, TotalEnroll: domain.Some(1800)},
			},
		},
		Regressions: []domain.Regression{
			{ID: "ela_vs_lunch", Title: "ELA vs lunch", Fit: domain.RegressionFit{N: 3, Slope: -2, Intercept: 300}},
			{ID: "z_ela_vs_poverty", Title: "z ELA vs poverty", Skipped: "fewer than 3 points"},
		},
		Merged: []domain.MergedRecord{{EnrichedSchool: domain.EnrichedSchool{SchoolRecord: domain.SchoolRecord{SchoolID: "s1", CountyName: "ALBANY", Year: 2016}}}},
	}
}

func newTestRouter(svc ReportServiceInterface) chi.Router {
	h := NewReportHandler(svc, discardLogger())
	r := chi.NewRouter()
	r.Mount("/api", h.Routes())
	r.Get("/report.xlsx", h.DownloadWorkbook)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") != workbookContentType {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestReportHandler_Routes(t *testing.T) {
	router := newTestRouter(&mockReportService{report: sampleReport()})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCount  float64
	}{
		{name: "report", path: "/api/report", wantStatus: http.StatusOK},
		{name: "tables", path: "/api/tables", wantStatus: http.StatusOK, wantCount: 7},
		{name: "counties table", path: "/api/tables/counties", wantStatus: http.StatusOK, wantCount: 2},
		{name: "merged table", path: "/api/tables/merged", wantStatus: http.StatusOK, wantCount: 1},
		{name: "regressions", path: "/api/regressions", wantStatus: http.StatusOK, wantCount: 2},
		{name: "regression", path: "/api/regressions/ela_vs_lunch", wantStatus: http.StatusOK},
		{name: "unknown table", path: "/api/tables/nope", wantStatus: http.StatusNotFound},
		{name: "unknown regression", path: "/api/regressions/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doRequest(t, router, http.MethodGet, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, false, body["success"])
				return
			}
			assert.Equal(t, "success", body["status"])
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantCount, body["count"])
			}
		})
	}
}

func TestReportHandler_ReportOmitsMergedRows(t *testing.T) {
	router := newTestRouter(&mockReportService{report: sampleReport()})
	_, body := doRequest(t, router, http.MethodGet, "/api/report")

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "run-1", data["run_id"])
	assert.NotContains(t, data, "merged")
}

func TestReportHandler_TableMissingValuesAreNull(t *testing.T) {
	router := newTestRouter(&mockReportService{report: sampleReport()})
	_, body := doRequest(t, router, http.MethodGet, "/api/tables/counties")

	rows := body["data"].(map[string]interface{})["rows"].([]interface{})
	bronx := rows[1].([]interface{})
	assert.Equal(t, "BRONX", bronx[0])
	assert.Nil(t, bronx[5], "per_free_lunch")
}

func TestReportHandler_UnknownTableBody(t *testing.T) {
	router := newTestRouter(&mockReportService{report: sampleReport()})
	rec, body := doRequest(t, router, http.MethodGet, "/api/tables/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", errBody["error_code"])
	assert.Equal(t, "table nope not found", errBody["message"])
	assert.Equal(t, map[string]interface{}{"table": "nope"}, errBody["details"])
}

func TestReportHandler_NotReady(t *testing.T) {
	router := newTestRouter(&mockReportService{})

	for _, path := range []string{"/api/report", "/api/tables", "/api/regressions", "/api/runs/last"} {
		rec, body := doRequest(t, router, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		errBody := body["error"].(map[string]interface{})
		assert.Equal(t, "REPORT_NOT_READY", errBody["error_code"])
	}
}

func TestReportHandler_Rerun(t *testing.T) {
	tests := []struct {
		name       string
		svc        *mockReportService
		wantStatus int
		wantBody   string
	}{
		{
			name:       "success",
			svc:        &mockReportService{runResp: &operations.OperationResponse{ID: "r", Status: operations.OperationStatusCompleted}},
			wantStatus: http.StatusCreated,
			wantBody:   "success",
		},
		{
			name: "pipeline failure",
			svc: &mockReportService{
				runResp: &operations.OperationResponse{ID: "r", Status: operations.OperationStatusFailed},
				runErr:  errors.New("load failed"),
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "failed",
		},
		{
			name:       "already running",
			svc:        &mockReportService{runErr: services.ErrRunInProgress},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "output directory unwritable",
			svc:        &mockReportService{runErr: apperrors.NewStorageError("output directory is not writable", nil)},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := doRequest(t, newTestRouter(tt.svc), http.MethodPost, "/api/runs")
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, body["status"])
			}
		})
	}
}

func TestReportHandler_DownloadWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))

	rec, _ := doRequest(t, newTestRouter(&mockReportService{workbook: path}), http.MethodGet, "/report.xlsx")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, workbookContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.xlsx")
	assert.Equal(t, "PK", rec.Body.String())

	rec, _ = doRequest(t, newTestRouter(&mockReportService{}), http.MethodGet, "/report.xlsx")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
