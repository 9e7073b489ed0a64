package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/config"
	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/internal/validation"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Options selects the outputs of a run
type Options struct {
	Console  bool
	Workbook bool
	CSV      bool
	Parquet  bool
	// ConsoleOut defaults to os.Stdout
	ConsoleOut io.Writer
}

// OptionsFromConfig maps the output section of the config
func OptionsFromConfig(cfg config.OutputConfig) Options {
	return Options{
		Console:  cfg.Console,
		Workbook: cfg.Workbook,
		CSV:      cfg.CSV,
		Parquet:  cfg.Parquet,
	}
}

// Result lists the files written by Export
type Result struct {
	Files       []string `json:"files"`
	ParquetRows int64    `json:"parquet_rows"`
}

// Exporter writes a report to every enabled output
type Exporter struct {
	paths     *config.Paths
	opts      Options
	logger    *slog.Logger
	workbook  *WorkbookWriter
	parquet   *ParquetWriter
	console   *ConsoleRenderer
	validator *validation.FileValidator
}

// New creates an exporter writing below paths.OutputDir
func New(paths *config.Paths, opts Options, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ConsoleOut == nil {
		opts.ConsoleOut = os.Stdout
	}
	return &Exporter{
		paths:     paths,
		opts:      opts,
		logger:    logger.With(slog.String("component", "exporter")),
		workbook:  NewWorkbookWriter(logger),
		parquet:   NewParquetWriter(logger),
		console:   NewConsoleRenderer(opts.ConsoleOut),
		validator: validation.NewFileValidator(logger),
	}
}

// Export renders the report. Files are written to a staging directory
// inside the output directory and moved into place only after every
// enabled output succeeded, so a failed export leaves the previous files
// untouched. The first failing output ends the export.
func (e *Exporter) Export(ctx context.Context, report *domain.Report) (*Result, error) {
	result := &Result{}

	if e.opts.Console {
		if err := e.console.Render(report); err != nil {
			return result, fmt.Errorf("console output failed: %w", err)
		}
	}

	if !e.opts.CSV && !e.opts.Workbook && !e.opts.Parquet {
		return result, nil
	}
	if err := e.validator.ValidateOutputDirectory(e.paths.OutputDir); err != nil {
		return result, err
	}

	stagingDir, err := os.MkdirTemp(e.paths.OutputDir, stagingPattern)
	if err != nil {
		return result, apperrors.NewStorageError("failed to create staging directory", err)
	}
	defer os.RemoveAll(stagingDir)

	staged := e.paths.Staged(stagingDir)
	var files []stagedFile

	if e.opts.CSV {
		csvWriter := NewCSVWriter(staged)
		for _, t := range SummaryTables(report) {
			path, err := csvWriter.WriteTable(t)
			if err != nil {
				return result, err
			}
			files = append(files, stagedFile{from: path, to: e.paths.GetCSVPath(t.Name)})
		}
		path, err := csvWriter.WriteMerged(report.Merged)
		if err != nil {
			return result, err
		}
		files = append(files, stagedFile{from: path, to: e.paths.GetCSVPath(TableMerged)})
	}

	if e.opts.Workbook {
		if err := e.workbook.Write(staged.WorkbookFile, report); err != nil {
			return result, err
		}
		files = append(files, stagedFile{from: staged.WorkbookFile, to: e.paths.WorkbookFile})
	}

	if e.opts.Parquet {
		rows, err := e.parquet.WriteMerged(staged.ParquetFile, report.Merged)
		if err != nil {
			return result, err
		}
		result.ParquetRows = rows
		files = append(files, stagedFile{from: staged.ParquetFile, to: e.paths.ParquetFile})
	}

	for _, f := range files {
		if err := os.Rename(f.from, f.to); err != nil {
			return result, apperrors.NewStorageError("failed to move "+filepath.Base(f.to)+" into place", err)
		}
		result.Files = append(result.Files, f.to)
	}

	e.logger.InfoContext(ctx, "report exported",
		slog.Int("files", len(result.Files)),
		slog.String("output_dir", e.paths.OutputDir))
	return result, nil
}

const stagingPattern = ".export-*"

type stagedFile struct {
	from, to string
}
