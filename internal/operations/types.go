package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDLoad       = "load"
	StepIDClean      = "clean"
	StepIDCategorize = "categorize"
	StepIDJoin       = "join"
	StepIDAggregate  = "aggregate"
	StepIDModel      = "model"
	StepIDExport     = "export"
)

// Pipeline step names
const (
	StepNameLoad       = "Load Inputs"
	StepNameClean      = "Clean Schools"
	StepNameCategorize = "Categorize Counties"
	StepNameJoin       = "Join Schools to Counties"
	StepNameAggregate  = "Aggregate Summaries"
	StepNameModel      = "Fit Regressions"
	StepNameExport     = "Export Report"
)

// Context keys for operation state
const (
	ContextKeyInputs         = "inputs"
	ContextKeySchools        = "schools"
	ContextKeyCleaningReport = "cleaning_report"
	ContextKeyCounties       = "counties"
	ContextKeyCutoffs        = "cutoffs"
	ContextKeyMerged         = "merged"
	ContextKeyReferenceYear  = "reference_year"
	ContextKeyTables         = "tables"
	ContextKeyRegressions    = "regressions"
	ContextKeyReport         = "report"
	ContextKeyExportResult   = "export_result"
)

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID string `json:"id"`
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatus       `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}
