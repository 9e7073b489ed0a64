// Package exporter renders a finished report.
//
// The package contains four writers, driven together by Exporter:
//
// ConsoleRenderer: text tables with colored headings.
//
// CSVWriter: one CSV file per table plus the streamed merged dataset,
// prefixed with a UTF-8 BOM for Excel compatibility.
//
// WorkbookWriter: an .xlsx workbook with a sheet per summary table and a
// scatter chart with the fitted line for every regression.
//
// ParquetWriter: the merged dataset as SNAPPY-compressed Parquet.
//
// Example usage:
//
//	exp := exporter.New(paths, exporter.OptionsFromConfig(cfg.Output), logger)
//	result, err := exp.Export(ctx, report)
package exporter
