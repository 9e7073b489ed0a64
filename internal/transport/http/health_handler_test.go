package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/operations"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/services"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// staticPipeline completes every run with the same report
type staticPipeline struct {
	report *domain.Report
}

func (p staticPipeline) Execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, *operations.OperationState, error) {
	state := operations.NewOperationState("run-1")
	state.SetContext(operations.ContextKeyReport, p.report)
	return &operations.OperationResponse{ID: "run-1", Status: operations.OperationStatusCompleted}, state, nil
}

func TestHealthHandler(t *testing.T) {
	reports := services.NewReportService(staticPipeline{report: sampleReport()}, nil, discardLogger())
	h := NewHealthHandler(services.NewHealthService(reports, discardLogger()), discardLogger())

	r := chi.NewRouter()
	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.ReadinessCheck)
	r.Get("/api/version", h.Version)

	rec, body := doRequest(t, r, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = doRequest(t, r, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])

	_, err := reports.Run(context.Background())
	require.NoError(t, err)
	rec, body = doRequest(t, r, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	_, body = doRequest(t, r, http.MethodGet, "/api/version")
	assert.Equal(t, contracts.Version, body["version"])
}
