package http

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/middleware"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/services"
)

// toAPIError maps service errors to API errors. Missing report items
// arrive as not-found AppErrors and are mapped by apperrors.FromError.
func toAPIError(err error) *apierrors.APIError {
	switch {
	case errors.Is(err, services.ErrReportNotReady):
		return apierrors.ErrReportNotReady
	case errors.Is(err, services.ErrRunInProgress):
		return apierrors.ErrRunInProgress
	}
	return apierrors.FromError(err)
}

// writeError logs err and writes the mapped response
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr := toAPIError(err)
	level := slog.LevelWarn
	if apiErr.StatusCode >= http.StatusInternalServerError && apiErr.StatusCode != http.StatusServiceUnavailable {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", apiErr.StatusCode),
		slog.String("error", err.Error()))
	apierrors.WriteError(w, apiErr)
}
