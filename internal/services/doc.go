// Package services holds the application services behind the report
// preview server.
//
// ReportService runs the analysis pipeline, keeps the latest report and
// answers table, regression and workbook lookups. HealthService reports
// liveness, readiness and version information.
//
// Services return the sentinel errors of errors.go, wrapped with detail;
// handlers map them to HTTP responses with errors.Is.
package services
