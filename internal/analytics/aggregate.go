package analytics

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// AggregatorConfig holds the aggregation parameters
type AggregatorConfig struct {
	TopN int
}

// Aggregator builds the report's summary tables from merged records
type Aggregator struct {
	logger *slog.Logger
	config AggregatorConfig
}

// NewAggregator creates a new aggregator
func NewAggregator(logger *slog.Logger, config AggregatorConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopN <= 0 {
		config.TopN = 5
	}
	return &Aggregator{
		logger: logger.With(slog.String("component", "aggregator")),
		config: config,
	}
}

// Aggregate produces every summary table for the given reference year
func (a *Aggregator) Aggregate(ctx context.Context, merged []domain.MergedRecord, counties []domain.EnrichedCounty, cutoffs []domain.PovertyCutoffs, refYear int) *domain.ReportTables {
	tables := &domain.ReportTables{
		ReferenceYear: refYear,
		Counties:      CountySummaries(merged),
		CountyYears:   CountyYearSummaries(merged),
		Tiers:         PovertyTierSummaries(merged),
		Cutoffs:       cutoffs,
		Extremes:      SelectExtremeCounties(merged, counties, refYear, a.config.TopN),
	}

	a.logger.InfoContext(ctx, "summary tables built",
		slog.Int("reference_year", refYear),
		slog.Int("counties", len(tables.Counties)),
		slog.Int("county_years", len(tables.CountyYears)),
		slog.Int("highest", len(tables.Extremes.Highest)),
		slog.Int("lowest", len(tables.Extremes.Lowest)))

	return tables
}

// ResolveReferenceYear returns configured when set, otherwise the latest
// year in the county data. The second result is false if neither exists.
func ResolveReferenceYear(configured int, counties []domain.EnrichedCounty) (int, bool) {
	if configured > 0 {
		return configured, true
	}
	latest := 0
	for _, c := range counties {
		if c.Year > latest {
			latest = c.Year
		}
	}
	return latest, latest > 0
}

// CountySummaries groups records by county across all years, ordered by
// county name. Poverty is averaged over the county's distinct years.
func CountySummaries(merged []domain.MergedRecord) []domain.CountySummary {
	groups := make(map[string][]domain.MergedRecord)
	for _, r := range merged {
		groups[r.CountyName] = append(groups[r.CountyName], r)
	}

	out := make([]domain.CountySummary, 0, len(groups))
	for name, rows := range groups {
		out = append(out, summarize(name, 0, rows))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CountyName < out[j].CountyName })
	return out
}

// CountyYearSummaries groups records by (county, year) and adds the
// within-year mean test scores.
func CountyYearSummaries(merged []domain.MergedRecord) []domain.CountySummary {
	groups := make(map[domain.CountyYearKey][]domain.MergedRecord)
	for _, r := range merged {
		k := r.CountyYearKey()
		groups[k] = append(groups[k], r)
	}

	out := make([]domain.CountySummary, 0, len(groups))
	for k, rows := range groups {
		out = append(out, summarize(k.CountyName, k.Year, rows))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CountyName != out[j].CountyName {
			return out[i].CountyName < out[j].CountyName
		}
		return out[i].Year < out[j].Year
	})
	return out
}

// PovertyTierSummaries averages z-scores per poverty tier, in tier order.
// Records without a tier are excluded.
func PovertyTierSummaries(merged []domain.MergedRecord) []domain.TierSummary {
	ela := make(map[domain.PovertyCategory][]domain.NullFloat)
	math := make(map[domain.PovertyCategory][]domain.NullFloat)
	for _, r := range merged {
		if r.PovCat == "" {
			continue
		}
		ela[r.PovCat] = append(ela[r.PovCat], r.ZMeanELAScore)
		math[r.PovCat] = append(math[r.PovCat], r.ZMeanMathScore)
	}

	out := make([]domain.TierSummary, 0, len(domain.PovertyCategories))
	for _, cat := range domain.PovertyCategories {
		out = append(out, domain.TierSummary{
			PovCat:         cat,
			Records:        len(ela[cat]),
			ZMeanELAScore:  Mean(ela[cat]),
			ZMeanMathScore: Mean(math[cat]),
		})
	}
	return out
}

// SelectExtremeCounties picks the n highest and n lowest poverty counties
// of year from the county table and summarizes their schools that year.
// Ties in poverty are broken by county name.
func SelectExtremeCounties(merged []domain.MergedRecord, counties []domain.EnrichedCounty, year, n int) domain.ExtremeCounties {
	candidates := make([]domain.EnrichedCounty, 0)
	for _, c := range counties {
		if c.Year == year && c.CountyPerPoverty.Valid {
			candidates = append(candidates, c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := candidates[i].CountyPerPoverty.Float64, candidates[j].CountyPerPoverty.Float64
		if pi != pj {
			return pi > pj
		}
		return candidates[i].CountyName < candidates[j].CountyName
	})

	rows := make(map[string][]domain.MergedRecord)
	for _, r := range merged {
		if r.Year == year {
			rows[r.CountyName] = append(rows[r.CountyName], r)
		}
	}

	build := func(c domain.EnrichedCounty) domain.CountySummary {
		s := summarize(c.CountyName, year, rows[c.CountyName])
		s.CountyPerPoverty = c.CountyPerPoverty
		return s
	}

	k := n
	if k > len(candidates) {
		k = len(candidates)
	}
	result := domain.ExtremeCounties{
		Year:    year,
		Highest: make([]domain.CountySummary, 0, k),
		Lowest:  make([]domain.CountySummary, 0, k),
	}
	for i := 0; i < k; i++ {
		result.Highest = append(result.Highest, build(candidates[i]))
		result.Lowest = append(result.Lowest, build(candidates[len(candidates)-1-i]))
	}
	return result
}

// summarize reduces one group of records. When year is 0 the group spans
// several years and test scores are left missing.
func summarize(name string, year int, rows []domain.MergedRecord) domain.CountySummary {
	s := domain.CountySummary{CountyName: name, Year: year}

	schools := make(map[string]struct{})
	var enroll, free, reduced []domain.NullFloat
	var freeEnroll, reducedEnroll []domain.NullFloat
	poverty := make(map[int]domain.NullFloat)
	var ela, math []domain.NullFloat

	for _, r := range rows {
		schools[r.SchoolID] = struct{}{}
		enroll = append(enroll, r.TotalEnroll)
		free = append(free, r.NumFreeLunch)
		reduced = append(reduced, r.NumReducedLunch)
		if r.NumFreeLunch.Valid {
			freeEnroll = append(freeEnroll, r.TotalEnroll)
		}
		if r.NumReducedLunch.Valid {
			reducedEnroll = append(reducedEnroll, r.TotalEnroll)
		}
		if r.CountyPerPoverty.Valid {
			poverty[r.Year] = r.CountyPerPoverty
		}
		ela = append(ela, r.MeanELAScore)
		math = append(math, r.MeanMathScore)
	}
	s.Schools = len(schools)
	s.TotalEnroll = Total(enroll)
	s.NumFreeLunch = Total(free)
	s.NumReducedLunch = Total(reduced)
	s.PerFreeLunch = ratio(s.NumFreeLunch, Total(freeEnroll))
	s.PerReducedLunch = ratio(s.NumReducedLunch, Total(reducedEnroll))
	s.PerFreeReducedLunch = CombineLunch(s.PerFreeLunch, s.PerReducedLunch)

	years := make([]int, 0, len(poverty))
	for y := range poverty {
		years = append(years, y)
	}
	sort.Ints(years)
	perYear := make([]domain.NullFloat, 0, len(years))
	for _, y := range years {
		perYear = append(perYear, poverty[y])
	}
	s.CountyPerPoverty = Mean(perYear)

	if year != 0 {
		s.MeanELAScore = Mean(ela)
		s.MeanMathScore = Mean(math)
	}
	return s
}

func ratio(num, den domain.NullFloat) domain.NullFloat {
	if !num.Valid || !den.Valid || den.Float64 <= 0 {
		return domain.Null()
	}
	return domain.Some(num.Float64 / den.Float64)
}

// CombineLunch adds free and reduced fractions. A sum above one means the
// categories overlap, so the free fraction alone is used.
func CombineLunch(free, reduced domain.NullFloat) domain.NullFloat {
	if !free.Valid || !reduced.Valid {
		return domain.Null()
	}
	sum := free.Float64 + reduced.Float64
	if sum > 1 {
		return free
	}
	return domain.Some(sum)
}
