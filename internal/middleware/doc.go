// Package middleware provides the HTTP middleware of the report preview
// server: request IDs, structured request logging, panic recovery,
// rate limiting, security headers and OpenTelemetry instrumentation.
//
// The expected order is RequestID, OTel, StructuredLogger, Recoverer,
// then the remaining handlers.
package middleware
