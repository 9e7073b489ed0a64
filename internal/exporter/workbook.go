package exporter

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

const maxSheetName = 31

// WorkbookWriter renders the report as an .xlsx workbook: one sheet per
// summary table and one sheet with a scatter chart per fitted regression
type WorkbookWriter struct {
	logger *slog.Logger
}

// NewWorkbookWriter creates a new workbook writer
func NewWorkbookWriter(logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger.With(slog.String("component", "workbook"))}
}

// Write saves the workbook to path
func (w *WorkbookWriter) Write(path string, report *domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	first := f.GetSheetName(0)
	for i, t := range SummaryTables(report) {
		sheet := sheetName(t.Name)
		if i == 0 {
			if err := f.SetSheetName(first, sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, t, header); err != nil {
			return err
		}
	}

	charts := 0
	for _, r := range report.Regressions {
		if !r.Fitted() || len(r.Points) == 0 {
			continue
		}
		if err := w.addRegressionSheet(f, r, header); err != nil {
			return err
		}
		charts++
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	w.logger.Info("workbook written",
		slog.String("path", path),
		slog.Int("sheets", f.SheetCount),
		slog.Int("charts", charts))
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	headers := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers of %s: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style headers of %s: %w", sheet, err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}
	return nil
}

// addRegressionSheet writes the points in columns A:B, the two end points
// of the fitted line in D:E and a scatter chart of both next to them
func (w *WorkbookWriter) addRegressionSheet(f *excelize.File, r domain.Regression, headerStyle int) error {
	sheet := sheetName(r.ID)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	points := Table{Headers: []string{r.XLabel, r.YLabel}}
	for _, p := range r.Points {
		points.Rows = append(points.Rows, []any{p.X, p.Y})
		lo = math.Min(lo, p.X)
		hi = math.Max(hi, p.X)
	}
	if err := writeSheet(f, sheet, points, headerStyle); err != nil {
		return err
	}

	line := [][]any{
		{"fit_x", "fit_y"},
		{lo, r.Fit.Predict(lo)},
		{hi, r.Fit.Predict(hi)},
	}
	for i, row := range line {
		values := row
		if err := f.SetSheetRow(sheet, fmt.Sprintf("D%d", i+1), &values); err != nil {
			return fmt.Errorf("failed to write fitted line of %s: %w", sheet, err)
		}
	}

	n := len(r.Points) + 1
	title := fmt.Sprintf("%s (R² %s)", r.Title, formatCell(nullCell(r.Fit.RSquared), ConsolePrecision, MissingText))
	chart := &excelize.Chart{
		Type: excelize.Scatter,
		Series: []excelize.ChartSeries{
			{
				Name:       "observed",
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", sheet, n),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", sheet, n),
				Line:       excelize.ChartLine{Type: excelize.ChartLineNone},
				Marker:     excelize.ChartMarker{Symbol: "circle", Size: 4},
			},
			{
				Name:       "fitted",
				Categories: fmt.Sprintf("'%s'!$D$2:$D$3", sheet),
				Values:     fmt.Sprintf("'%s'!$E$2:$E$3", sheet),
				Line:       excelize.ChartLine{Type: excelize.ChartLineSolid, Width: 2},
				Marker:     excelize.ChartMarker{Symbol: "none"},
			},
		},
		Title:     []excelize.RichTextRun{{Text: title}},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: r.XLabel}}},
		YAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: r.YLabel}}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 640, Height: 400},
	}
	if err := f.AddChart(sheet, "G2", chart); err != nil {
		return fmt.Errorf("failed to add chart to %s: %w", sheet, err)
	}
	return nil
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
