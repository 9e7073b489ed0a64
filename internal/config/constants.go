package config

// Application constants
const (
	AppName = "schools-and-poverty"

	// EnvPrefix namespaces every environment variable, e.g. SCHOOLS_OUTPUT_DIR.
	EnvPrefix = "SCHOOLS"

	// Missing-data markers used by the source files
	DefaultSentinel       = -99.0
	DefaultCountySentinel = "-99"

	DefaultTopN             = 5
	DefaultLowEnrollmentMax = 10000.0
	DefaultOutputDir        = "report"
)

// Report artifact file names, relative to the output directory
const (
	WorkbookFile = "report.xlsx"
	ParquetFile  = "merged.parquet"
	CSVExtension = ".csv"
)
