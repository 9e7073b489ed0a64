package services

import "errors"

// Report service errors. Missing tables, regressions and files are
// reported as not-found AppErrors.
var (
	ErrReportNotReady = errors.New("report has not been generated")
	ErrRunInProgress  = errors.New("report run already in progress")
)
