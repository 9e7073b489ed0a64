// Package http implements the handlers of the report preview server.
//
// Handlers stay thin: they read URL parameters, call the report or health
// service and render JSON with chi/render. Successful responses use the
// envelope
//
//	{"status": "success", "data": ..., "count": N}
//
// and failures are mapped from service errors to APIError responses in
// errors.go.
//
// Routes mounted by the application:
//
//	GET  /healthz               liveness
//	GET  /readyz                503 until a report exists
//	GET  /api/version
//	GET  /api/report            report without merged rows
//	GET  /api/tables            table names, titles and row counts
//	GET  /api/tables/{name}     one table, including "merged"
//	GET  /api/regressions
//	GET  /api/regressions/{id}
//	GET  /api/runs/last
//	POST /api/runs              rerun the pipeline
//	GET  /report.xlsx           exported workbook
//	GET  /metrics               Prometheus metrics
package http
