package exporter

import (
	"fmt"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Table names, used as CSV file names, sheet names and preview routes
const (
	TableCounties    = "counties"
	TableCountyYears = "county_years"
	TableTiers       = "tiers"
	TableCutoffs     = "cutoffs"
	TableHighest     = "highest_poverty"
	TableLowest      = "lowest_poverty"
	TableRegressions = "regressions"
	TableMerged      = "merged"
)

// Table is a rendered report table. Cells are string, int, float64 or nil
// for missing values.
type Table struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Headers []string `json:"headers"`
	Rows    [][]any  `json:"rows"`
}

var countyHeaders = []string{
	"county_name", "schools", "total_enroll",
	"num_free_lunch", "num_reduced_lunch",
	"per_free_lunch", "per_reduced_lunch", "per_free_reduced_lunch",
	"county_per_poverty", "mean_ela_score", "mean_math_score",
}

// MergedHeaders are the columns of the merged dataset export
var MergedHeaders = []string{
	"school_id", "school_name", "county_name", "year", "total_enroll",
	"per_free_lunch", "per_reduced_lunch", "per_lep",
	"mean_ela_score", "mean_math_score",
	"z_mean_ela_score", "z_mean_math_score",
	"num_free_lunch", "num_reduced_lunch", "per_free_reduced_lunch",
	"county_per_poverty", "pov_cat",
}

// SummaryTables renders every summary table of the report in display order
func SummaryTables(report *domain.Report) []Table {
	t := report.Tables
	if t == nil {
		t = &domain.ReportTables{}
	}
	return []Table{
		countyTable(TableCounties, "County summary, all years", t.Counties, false),
		countyTable(TableCountyYears, "County summary by year", t.CountyYears, true),
		tierTable(t.Tiers),
		cutoffTable(t.Cutoffs),
		countyTable(TableHighest, fmt.Sprintf("Highest poverty counties, %d", t.Extremes.Year), t.Extremes.Highest, false),
		countyTable(TableLowest, fmt.Sprintf("Lowest poverty counties, %d", t.Extremes.Year), t.Extremes.Lowest, false),
		RegressionTable(report.Regressions),
	}
}

// LookupTable finds a table by name, including the merged dataset
func LookupTable(report *domain.Report, name string) (Table, bool) {
	if name == TableMerged {
		return MergedTable(report.Merged), true
	}
	for _, t := range SummaryTables(report) {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func countyTable(name, title string, rows []domain.CountySummary, withYear bool) Table {
	headers := countyHeaders
	if withYear {
		headers = append([]string{"county_name", "year"}, countyHeaders[1:]...)
	}

	out := Table{Name: name, Title: title, Headers: headers, Rows: make([][]any, 0, len(rows))}
	for _, c := range rows {
		row := []any{c.CountyName}
		if withYear {
			row = append(row, c.Year)
		}
		row = append(row,
			c.Schools,
			nullCell(c.TotalEnroll),
			nullCell(c.NumFreeLunch),
			nullCell(c.NumReducedLunch),
			nullCell(c.PerFreeLunch),
			nullCell(c.PerReducedLunch),
			nullCell(c.PerFreeReducedLunch),
			nullCell(c.CountyPerPoverty),
			nullCell(c.MeanELAScore),
			nullCell(c.MeanMathScore),
		)
		out.Rows = append(out.Rows, row)
	}
	return out
}

func tierTable(tiers []domain.TierSummary) Table {
	out := Table{
		Name:    TableTiers,
		Title:   "Standardized scores by poverty tier",
		Headers: []string{"pov_cat", "records", "z_mean_ela_score", "z_mean_math_score"},
	}
	for _, s := range tiers {
		out.Rows = append(out.Rows, []any{
			string(s.PovCat), s.Records, nullCell(s.ZMeanELAScore), nullCell(s.ZMeanMathScore),
		})
	}
	return out
}

func cutoffTable(cutoffs []domain.PovertyCutoffs) Table {
	out := Table{
		Name:    TableCutoffs,
		Title:   "Poverty tier cutoffs",
		Headers: []string{"year", "cutoff_low", "cutoff_high", "counties"},
	}
	for _, c := range cutoffs {
		out.Rows = append(out.Rows, []any{c.Year, c.CutoffLow, c.CutoffHigh, c.Counties})
	}
	return out
}

// RegressionTable lists the fit statistics of every regression.
// Skipped regressions keep their row with the reason filled in.
func RegressionTable(regressions []domain.Regression) Table {
	out := Table{
		Name:  TableRegressions,
		Title: "Regressions",
		Headers: []string{
			"id", "title", "n", "slope", "intercept",
			"slope_std_err", "intercept_std_err",
			"slope_t_stat", "intercept_t_stat",
			"r_squared", "skipped",
		},
	}
	for _, r := range regressions {
		if !r.Fitted() {
			out.Rows = append(out.Rows, []any{
				r.ID, r.Title, len(r.Points), nil, nil, nil, nil, nil, nil, nil, r.Skipped,
			})
			continue
		}
		f := r.Fit
		out.Rows = append(out.Rows, []any{
			r.ID, r.Title, f.N, f.Slope, f.Intercept,
			nullCell(f.SlopeStdErr), nullCell(f.InterceptStdErr),
			nullCell(f.SlopeTStat), nullCell(f.InterceptTStat),
			nullCell(f.RSquared), "",
		})
	}
	return out
}

// MergedTable renders the merged school-county dataset
func MergedTable(merged []domain.MergedRecord) Table {
	out := Table{
		Name:    TableMerged,
		Title:   "Schools joined to county poverty",
		Headers: MergedHeaders,
		Rows:    make([][]any, 0, len(merged)),
	}
	for _, m := range merged {
		out.Rows = append(out.Rows, mergedRow(m))
	}
	return out
}

func mergedRow(m domain.MergedRecord) []any {
	var povCat any
	if m.PovCat != "" {
		povCat = string(m.PovCat)
	}
	return []any{
		m.SchoolID, m.SchoolName, m.CountyName, m.Year,
		nullCell(m.TotalEnroll),
		nullCell(m.PerFreeLunch), nullCell(m.PerReducedLunch), nullCell(m.PerLEP),
		nullCell(m.MeanELAScore), nullCell(m.MeanMathScore),
		nullCell(m.ZMeanELAScore), nullCell(m.ZMeanMathScore),
		nullCell(m.NumFreeLunch), nullCell(m.NumReducedLunch), nullCell(m.PerFreeReducedLunch),
		nullCell(m.CountyPerPoverty), povCat,
	}
}
