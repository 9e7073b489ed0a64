package exporter

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// ConsolePrecision is the number of decimals printed on the console
const ConsolePrecision = 3

// ConsoleRenderer prints the report tables as text tables
type ConsoleRenderer struct {
	out     io.Writer
	heading *color.Color
	warning *color.Color
}

// NewConsoleRenderer creates a renderer writing to out
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{
		out:     out,
		heading: color.New(color.FgYellow, color.Bold),
		warning: color.New(color.FgRed),
	}
}

// Render prints every summary table followed by the regression results
func (c *ConsoleRenderer) Render(report *domain.Report) error {
	if report.Tables != nil {
		c.heading.Fprintf(c.out, "\nReference year: %d\n", report.Tables.ReferenceYear)
	}
	for _, t := range SummaryTables(report) {
		if t.Name == TableCountyYears {
			continue
		}
		if err := c.RenderTable(t); err != nil {
			return err
		}
	}

	for _, r := range report.Regressions {
		if !r.Fitted() {
			c.warning.Fprintf(c.out, "%s: skipped (%s)\n", r.Title, r.Skipped)
		}
	}
	return nil
}

// RenderTable prints one table under a colored heading
func (c *ConsoleRenderer) RenderTable(t Table) error {
	if _, err := c.heading.Fprintf(c.out, "\n%s\n", t.Title); err != nil {
		return fmt.Errorf("failed to write heading of %s: %w", t.Name, err)
	}
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(c.out, "(no rows)")
		return err
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader(t.Headers)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v, ConsolePrecision, MissingText)
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}
