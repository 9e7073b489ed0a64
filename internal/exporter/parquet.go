package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	writerfile "github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

const parquetParallelism = 4

// ParquetWriter exports the merged dataset as a SNAPPY-compressed Parquet file
type ParquetWriter struct {
	logger *slog.Logger
}

// NewParquetWriter creates a new Parquet writer
func NewParquetWriter(logger *slog.Logger) *ParquetWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParquetWriter{logger: logger.With(slog.String("component", "parquet"))}
}

// WriteMerged writes one Parquet row per merged record and returns the row count
func (p *ParquetWriter) WriteMerged(path string, merged []domain.MergedRecord) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	pfw := writerfile.NewWriterFile(file)
	pw, err := writer.NewJSONWriter(mergedParquetSchema(), pfw, parquetParallelism)
	if err != nil {
		return 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	var rows int64
	for _, m := range merged {
		row, err := json.Marshal(parquetRow(m))
		if err != nil {
			_ = pw.WriteStop()
			return rows, fmt.Errorf("failed to encode row %d: %w", rows, err)
		}
		if err := pw.Write(string(row)); err != nil {
			_ = pw.WriteStop()
			return rows, fmt.Errorf("failed to write row %d: %w", rows, err)
		}
		rows++
	}
	if err := pw.WriteStop(); err != nil {
		return rows, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	if err := pfw.Close(); err != nil {
		return rows, err
	}

	p.logger.Info("parquet written", slog.String("path", path), slog.Int64("rows", rows))
	return rows, nil
}

// parquetType maps the cells produced by mergedRow to physical types
func parquetType(column string) string {
	switch column {
	case "school_id", "school_name", "county_name", "pov_cat":
		return "BYTE_ARRAY, convertedtype=UTF8"
	case "year":
		return "INT64"
	default:
		return "DOUBLE"
	}
}

func mergedParquetSchema() string {
	fields := make([]map[string]string, 0, len(MergedHeaders))
	for _, name := range MergedHeaders {
		fields = append(fields, map[string]string{
			"Tag": fmt.Sprintf("name=%s, type=%s, repetitiontype=OPTIONAL", name, parquetType(name)),
		})
	}
	out := map[string]any{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	}
	b, _ := json.Marshal(out)
	return string(b)
}

func parquetRow(m domain.MergedRecord) map[string]any {
	cells := mergedRow(m)
	row := make(map[string]any, len(cells))
	for i, name := range MergedHeaders {
		row[name] = cells[i]
	}
	return row
}
