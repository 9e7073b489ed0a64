// Package validation checks the files a report run reads and writes
// before the pipeline touches them.
package validation
