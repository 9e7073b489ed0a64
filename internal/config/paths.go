package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every file the report run writes.
// All paths are derived from the configured output directory.
type Paths struct {
	OutputDir       string
	WorkbookFile    string
	ParquetFile     string
	MetricsTextfile string
	LogFile         string
}

// GetPaths resolves the output locations of cfg
func (c *Config) GetPaths() (*Paths, error) {
	dir, err := filepath.Abs(c.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir %q: %w", c.Output.Dir, err)
	}

	paths := &Paths{
		OutputDir:    dir,
		WorkbookFile: filepath.Join(dir, WorkbookFile),
		ParquetFile:  filepath.Join(dir, ParquetFile),
	}
	if c.Output.MetricsTextfile != "" {
		paths.MetricsTextfile = c.Output.MetricsTextfile
	}
	if c.Logging.Output != "console" {
		paths.LogFile = c.Logging.FilePath
	}
	return paths, nil
}

// GetCSVPath returns the CSV export path of a named table
func (p *Paths) GetCSVPath(table string) string {
	return filepath.Join(p.OutputDir, table+CSVExtension)
}

// Staged returns a copy of p with the report files placed in dir. The
// metrics textfile and the log file keep their locations.
func (p *Paths) Staged(dir string) *Paths {
	staged := *p
	staged.OutputDir = dir
	staged.WorkbookFile = filepath.Join(dir, filepath.Base(p.WorkbookFile))
	staged.ParquetFile = filepath.Join(dir, filepath.Base(p.ParquetFile))
	return &staged
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{p.OutputDir}
	if p.MetricsTextfile != "" {
		directories = append(directories, filepath.Dir(p.MetricsTextfile))
	}
	if p.LogFile != "" {
		directories = append(directories, filepath.Dir(p.LogFile))
	}

	logger := slog.Default()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists",
			slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
