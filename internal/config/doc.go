// Package config provides configuration management for the report pipeline.
// It loads settings from multiple sources, validates them, and exposes the
// resolved output paths of a run.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Overrides passed to Load, usually command-line flags (highest priority)
//	2. Environment variables
//	3. A YAML file (schools.yaml or configs/schools.yaml, or an explicit path)
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SCHOOLS_<SECTION>_<FIELD>:
//
//	SCHOOLS_INPUTS_SCHOOLS_FILE=data/schools.csv
//	SCHOOLS_INPUTS_COUNTIES_FILE=data/counties.csv
//	SCHOOLS_ANALYSIS_REFERENCE_YEAR=2016
//	SCHOOLS_OUTPUT_DIR=report
//	SCHOOLS_LOGGING_LEVEL=debug
//
// # Validation
//
// Struct tags are checked with go-playground/validator. All violations are
// reported together so a bad environment can be fixed in one pass.
//
// # Usage
//
//	cfg, err := config.Load(*configFile, func(c *config.Config) {
//	    c.Inputs.SchoolsFile = *schools
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
