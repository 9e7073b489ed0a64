package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the error body served by the report preview server
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// Responses the preview server sends without an underlying AppError
var (
	ErrReportNotReady = New(http.StatusServiceUnavailable, "REPORT_NOT_READY", "Report has not been generated")
	ErrRunInProgress  = New(http.StatusConflict, "RUN_IN_PROGRESS", "A report run is already in progress")
	ErrInternalServer = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
	ErrRateLimited    = New(http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded")
)

type statusMapping struct {
	status int
	code   string
}

// Input problems surface as 422 since a re-run reads the same files again.
var statusByType = map[ErrorType]statusMapping{
	ErrTypeNotFound:   {http.StatusNotFound, "NOT_FOUND"},
	ErrTypeValidation: {http.StatusUnprocessableEntity, "INVALID_INPUT"},
	ErrTypeParsing:    {http.StatusUnprocessableEntity, "INPUT_PARSE_FAILED"},
	ErrTypeModel:      {http.StatusUnprocessableEntity, "MODEL_FIT_FAILED"},
	ErrTypeStorage:    {http.StatusInternalServerError, "STORAGE_ERROR"},
	ErrTypeConfig:     {http.StatusInternalServerError, "CONFIG_ERROR"},
}

// FromError converts err into the response the preview server sends.
// An APIError in the chain is returned as is. An AppError is mapped by its
// type and carries its context as details. Anything else is a 500.
func FromError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		m, ok := statusByType[appErr.Type]
		if !ok {
			m = statusMapping{http.StatusInternalServerError, ErrInternalServer.ErrorCode}
		}
		out := New(m.status, m.code, appErr.Message)
		if len(appErr.Context) > 0 {
			out.Details = appErr.Context
		}
		return out
	}

	out := New(http.StatusInternalServerError, ErrInternalServer.ErrorCode, ErrInternalServer.Message)
	if err != nil {
		out.Details = err.Error()
	}
	return out
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(NewErrorResponse(err))
}
