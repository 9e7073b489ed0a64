package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Inputs    InputsConfig    `yaml:"inputs" envconfig:"INPUTS"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Preview   PreviewConfig   `yaml:"preview" envconfig:"PREVIEW"`
}

// InputsConfig names the two source tables
type InputsConfig struct {
	SchoolsFile  string `yaml:"schools_file" envconfig:"SCHOOLS_FILE" validate:"required"`
	CountiesFile string `yaml:"counties_file" envconfig:"COUNTIES_FILE" validate:"required"`
	Delimiter    string `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
}

// AnalysisConfig contains the cleaning and modeling parameters
type AnalysisConfig struct {
	// Sentinel is the numeric missing-value marker in the schools file.
	Sentinel float64 `yaml:"sentinel" envconfig:"SENTINEL"`
	// CountySentinel marks school rows without a usable county.
	CountySentinel string `yaml:"county_sentinel" envconfig:"COUNTY_SENTINEL"`
	// ReferenceYear selects the cross-section; 0 means the latest county year.
	ReferenceYear    int     `yaml:"reference_year" envconfig:"REFERENCE_YEAR" validate:"gte=0"`
	TopN             int     `yaml:"top_n" envconfig:"TOP_N" validate:"gte=1"`
	LowEnrollmentMax float64 `yaml:"low_enrollment_max" envconfig:"LOW_ENROLLMENT_MAX" validate:"gt=0"`
	LowQuantile      float64 `yaml:"low_quantile" envconfig:"LOW_QUANTILE" validate:"gte=0,lte=1"`
	HighQuantile     float64 `yaml:"high_quantile" envconfig:"HIGH_QUANTILE" validate:"gte=0,lte=1,gtefield=LowQuantile"`
}

// OutputConfig controls which report artifacts are rendered
type OutputConfig struct {
	Dir             string `yaml:"dir" envconfig:"DIR" validate:"required"`
	Console         bool   `yaml:"console" envconfig:"CONSOLE"`
	Workbook        bool   `yaml:"workbook" envconfig:"WORKBOOK"`
	CSV             bool   `yaml:"csv" envconfig:"CSV"`
	Parquet         bool   `yaml:"parquet" envconfig:"PARQUET"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" validate:"oneof=none prometheus"`
}

// PreviewConfig contains the local report preview server configuration
type PreviewConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED"`
	Addr            string        `yaml:"addr" envconfig:"ADDR" validate:"required_if=Enabled true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RateLimitRPS of 0 disables request rate limiting.
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
}

// Override mutates a loaded configuration before validation, typically
// from command-line flags.
type Override func(*Config)

// Load builds the configuration from defaults, an optional YAML file and
// SCHOOLS_* environment variables, in increasing order of precedence.
// Overrides are applied last, then the result is validated. Every failure
// is a CONFIG application error.
func Load(configFile string, overrides ...Override) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).WithContext("file", configFile)
		}
	}

	// Fields without a default tag are left untouched when the variable is unset.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("config validation failed", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"schools.yaml",
		"configs/schools.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Validate checks struct constraints and reports every violation at once
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(validationErrors))
		for _, fe := range validationErrors {
			msgs = append(msgs, formatFieldError(fe))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Namespace(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Inputs: InputsConfig{
			Delimiter: ",",
		},
		Analysis: AnalysisConfig{
			Sentinel:         DefaultSentinel,
			CountySentinel:   DefaultCountySentinel,
			TopN:             DefaultTopN,
			LowEnrollmentMax: DefaultLowEnrollmentMax,
			LowQuantile:      0.25,
			HighQuantile:     0.75,
		},
		Output: OutputConfig{
			Dir:      DefaultOutputDir,
			Console:  true,
			Workbook: true,
			CSV:      true,
			Parquet:  true,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/report.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
		Preview: PreviewConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
		},
	}
}
