package dataprocessing

import (
	"context"
	"log/slog"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/analytics"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Cleaning rule names, used in reports, logs and metrics
const (
	RuleDropMissingCounty  = "drop_missing_county"
	RuleSentinelToMissing  = "sentinel_to_missing"
	RuleRescalePercent     = "rescale_percent"
	RuleUnrecoverableLunch = "unrecoverable_lunch"
	RuleCombinedOverlap    = "combined_lunch_overlap"
)

// CleanerConfig holds the missing-data markers of the schools table
type CleanerConfig struct {
	Sentinel       float64
	CountySentinel string
}

// DefaultCleanerConfig returns the markers used by the source files
func DefaultCleanerConfig() CleanerConfig {
	return CleanerConfig{Sentinel: -99, CountySentinel: "-99"}
}

// CleaningReport counts what each rule changed
type CleaningReport struct {
	RowsIn  int `json:"rows_in"`
	RowsOut int `json:"rows_out"`
	// DroppedMissingCounty rows had the county sentinel.
	DroppedMissingCounty int `json:"dropped_missing_county"`
	// SentinelNulled counts sentinel replacements per column.
	SentinelNulled map[string]int `json:"sentinel_nulled"`
	// Rescaled counts lunch values divided by 100 per column.
	Rescaled map[string]int `json:"rescaled"`
	// Unrecoverable counts lunch values still out of range after rescaling.
	Unrecoverable map[string]int `json:"unrecoverable"`
	// CombinedOverlap counts rows whose combined fraction fell back to free lunch.
	CombinedOverlap int `json:"combined_overlap"`
}

func newCleaningReport() *CleaningReport {
	return &CleaningReport{
		SentinelNulled: make(map[string]int),
		Rescaled:       make(map[string]int),
		Unrecoverable:  make(map[string]int),
	}
}

// Nulled is the total number of values replaced by missing
func (r *CleaningReport) Nulled() int {
	n := 0
	for _, v := range r.SentinelNulled {
		n += v
	}
	for _, v := range r.Unrecoverable {
		n += v
	}
	return n
}

// Cleaner applies the cleaning rules to raw school records and derives
// z-scores, lunch counts and the combined lunch fraction
type Cleaner struct {
	logger *slog.Logger
	config CleanerConfig
}

// NewCleaner creates a new cleaner. A zero config selects DefaultCleanerConfig.
func NewCleaner(logger *slog.Logger, config CleanerConfig) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if config == (CleanerConfig{}) {
		config = DefaultCleanerConfig()
	}
	return &Cleaner{
		logger: logger.With(slog.String("component", "cleaner")),
		config: config,
	}
}

// Clean returns the enriched records. The input slice is not modified.
func (c *Cleaner) Clean(ctx context.Context, records []domain.SchoolRecord) ([]domain.EnrichedSchool, *CleaningReport) {
	report := newCleaningReport()
	report.RowsIn = len(records)

	kept := c.dropMissingCounty(records, report)

	out := make([]domain.EnrichedSchool, len(kept))
	for i, r := range kept {
		c.sentinelToMissing(&r, report)
		r.PerFreeLunch = rescaleLunch(ColPerFreeLunch, r.PerFreeLunch, report)
		r.PerReducedLunch = rescaleLunch(ColPerReducedLunch, r.PerReducedLunch, report)
		out[i] = domain.EnrichedSchool{SchoolRecord: r}
	}

	deriveZScores(out)
	for i := range out {
		e := &out[i]
		e.NumFreeLunch = analytics.RoundHalfEven(product(e.TotalEnroll, e.PerFreeLunch))
		e.NumReducedLunch = analytics.RoundHalfEven(product(e.TotalEnroll, e.PerReducedLunch))
		e.PerFreeReducedLunch = analytics.CombineLunch(e.PerFreeLunch, e.PerReducedLunch)
		if e.PerFreeReducedLunch.Valid && e.PerReducedLunch.Valid &&
			e.PerFreeLunch.Float64+e.PerReducedLunch.Float64 > 1 {
			report.CombinedOverlap++
		}
	}
	report.RowsOut = len(out)

	c.logger.InfoContext(ctx, "schools cleaned",
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("dropped_missing_county", report.DroppedMissingCounty),
		slog.Int("values_nulled", report.Nulled()),
		slog.Int("combined_overlap", report.CombinedOverlap))
	return out, report
}

func (c *Cleaner) dropMissingCounty(records []domain.SchoolRecord, report *CleaningReport) []domain.SchoolRecord {
	kept := make([]domain.SchoolRecord, 0, len(records))
	for _, r := range records {
		if r.CountyName == c.config.CountySentinel {
			report.DroppedMissingCounty++
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (c *Cleaner) sentinelToMissing(r *domain.SchoolRecord, report *CleaningReport) {
	metrics := []struct {
		col string
		v   *domain.NullFloat
	}{
		{ColTotalEnroll, &r.TotalEnroll},
		{ColPerFreeLunch, &r.PerFreeLunch},
		{ColPerReducedLunch, &r.PerReducedLunch},
		{ColPerLEP, &r.PerLEP},
		{ColMeanELAScore, &r.MeanELAScore},
		{ColMeanMathScore, &r.MeanMathScore},
	}
	for _, m := range metrics {
		if m.v.Equals(c.config.Sentinel) {
			*m.v = domain.Null()
			report.SentinelNulled[m.col]++
		}
	}
}

// rescaleLunch treats values above one as percentages. Values still above
// one, or negative, cannot be a fraction and become missing.
func rescaleLunch(col string, v domain.NullFloat, report *CleaningReport) domain.NullFloat {
	if !v.Valid {
		return v
	}
	f := v.Float64
	if f > 1 {
		f /= 100
		report.Rescaled[col]++
	}
	if f > 1 || f < 0 {
		report.Unrecoverable[col]++
		return domain.Null()
	}
	return domain.Some(f)
}

// deriveZScores standardizes test scores within each year's cohort
func deriveZScores(records []domain.EnrichedSchool) {
	years := make([]int, len(records))
	ela := make([]domain.NullFloat, len(records))
	math := make([]domain.NullFloat, len(records))
	for i, r := range records {
		years[i] = r.Year
		ela[i] = r.MeanELAScore
		math[i] = r.MeanMathScore
	}

	zELA := analytics.ZScores(years, ela)
	zMath := analytics.ZScores(years, math)
	for i := range records {
		records[i].ZMeanELAScore = zELA[i]
		records[i].ZMeanMathScore = zMath[i]
	}
}

func product(a, b domain.NullFloat) domain.NullFloat {
	if !a.Valid || !b.Valid {
		return domain.Null()
	}
	return domain.Some(a.Float64 * b.Float64)
}
