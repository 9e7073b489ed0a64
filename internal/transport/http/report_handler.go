package http

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/middleware"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the current report
type ReportHandler struct {
	service ReportServiceInterface
	logger  *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  logger.With(slog.String("component", "report_handler")),
	}
}

// Routes returns the report API routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/report", h.GetReport)
	r.Get("/tables", h.GetTables)
	r.Get("/tables/{name}", h.GetTable)
	r.Get("/regressions", h.GetRegressions)
	r.Get("/regressions/{id}", h.GetRegression)
	r.Get("/runs/last", h.GetLastRun)
	r.Post("/runs", h.Rerun)
	return r
}

// GetReport handles GET /api/report. The merged rows are served by
// /api/tables/merged.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// GetTables handles GET /api/tables and lists table names and titles
func (h *ReportHandler) GetTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.Tables(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	type tableInfo struct {
		Name  string `json:"name"`
		Title string `json:"title"`
		Rows  int    `json:"rows"`
	}
	infos := make([]tableInfo, 0, len(tables))
	for _, t := range tables {
		infos = append(infos, tableInfo{Name: t.Name, Title: t.Title, Rows: len(t.Rows)})
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   infos,
		"count":  len(infos),
	})
}

// GetTable handles GET /api/tables/{name}
func (h *ReportHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	table, err := h.service.Table(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   table,
		"count":  len(table.Rows),
	})
}

// GetRegressions handles GET /api/regressions
func (h *ReportHandler) GetRegressions(w http.ResponseWriter, r *http.Request) {
	regressions, err := h.service.Regressions(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   regressions,
		"count":  len(regressions),
	})
}

// GetRegression handles GET /api/regressions/{id}
func (h *ReportHandler) GetRegression(w http.ResponseWriter, r *http.Request) {
	regression, err := h.service.Regression(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   regression,
	})
}

// GetLastRun handles GET /api/runs/last
func (h *ReportHandler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.LastRun(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   run,
	})
}

// Rerun handles POST /api/runs. The pipeline runs synchronously and the
// response carries the run's step states.
func (h *ReportHandler) Rerun(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "report run requested",
		slog.String("request_id", middleware.GetReqID(r.Context())))

	run, err := h.service.Run(r.Context())
	if err != nil && run == nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err != nil {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, map[string]interface{}{
			"status": "failed",
			"data":   run,
		})
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   run,
	})
}

// DownloadWorkbook handles GET /report.xlsx
func (h *ReportHandler) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.WorkbookPath(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", workbookContentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(path)+"\"")
	http.ServeFile(w, r, path)
}
