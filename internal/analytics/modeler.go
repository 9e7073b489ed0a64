package analytics

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Regression identifiers
const (
	RegressionELAvsLunch            = "ela_vs_lunch"
	RegressionMathVsLunch           = "math_vs_lunch"
	RegressionDeltaELAvsDeltaLunch  = "delta_z_ela_vs_delta_lunch"
	RegressionZELAvsPoverty         = "z_ela_vs_poverty"
	RegressionZELAvsPovertyLowEnrol = "z_ela_vs_poverty_low_enrollment"
	RegressionPovertyVsCountyLunch  = "poverty_vs_county_lunch"
)

// ModelerConfig holds the regression parameters
type ModelerConfig struct {
	LowEnrollmentMax float64
}

// Modeler fits the report's simple linear regressions
type Modeler struct {
	logger *slog.Logger
	config ModelerConfig
}

// NewModeler creates a new modeler
func NewModeler(logger *slog.Logger, config ModelerConfig) *Modeler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Modeler{
		logger: logger.With(slog.String("component", "modeler")),
		config: config,
	}
}

type pairSpec struct {
	id, title, xLabel, yLabel string
	points                    []domain.Point
}

// FitAll fits every standard regression. A pair without enough usable
// points is reported as skipped rather than failing the run.
func (m *Modeler) FitAll(ctx context.Context, merged []domain.MergedRecord, countyYears []domain.CountySummary, refYear int) []domain.Regression {
	specs := []pairSpec{
		{
			id: RegressionELAvsLunch, title: "Mean ELA score vs free/reduced lunch",
			xLabel: "per_free_reduced_lunch", yLabel: "mean_ela_score",
			points: CrossSection(merged, refYear, scoreELA),
		},
		{
			id: RegressionMathVsLunch, title: "Mean math score vs free/reduced lunch",
			xLabel: "per_free_reduced_lunch", yLabel: "mean_math_score",
			points: CrossSection(merged, refYear, scoreMath),
		},
		{
			id: RegressionDeltaELAvsDeltaLunch, title: "Change in z ELA score vs change in free/reduced lunch",
			xLabel: "diff_per_free_reduced_lunch", yLabel: "diff_z_mean_ela_score",
			points: LagDifferences(merged),
		},
		{
			id: RegressionZELAvsPoverty, title: "z ELA score vs county poverty",
			xLabel: "county_per_poverty", yLabel: "z_mean_ela_score",
			points: PovertyPoints(merged, nil),
		},
		{
			id: RegressionZELAvsPovertyLowEnrol, title: "z ELA score vs county poverty, low-enrollment counties",
			xLabel: "county_per_poverty", yLabel: "z_mean_ela_score",
			points: PovertyPoints(merged, LowEnrollmentCounties(countyYears, m.config.LowEnrollmentMax)),
		},
		{
			id: RegressionPovertyVsCountyLunch, title: "County poverty vs county free/reduced lunch",
			xLabel: "county_per_free_reduced_lunch", yLabel: "county_per_poverty",
			points: CountyLunchPoints(countyYears),
		},
	}

	out := make([]domain.Regression, 0, len(specs))
	for _, s := range specs {
		reg := domain.Regression{
			ID:     s.id,
			Title:  s.title,
			XLabel: s.xLabel,
			YLabel: s.yLabel,
			Points: s.points,
		}
		fit, err := FitOLS(s.points)
		if err != nil {
			reg.Skipped = err.Error()
			m.logger.WarnContext(ctx, "regression skipped",
				slog.String("regression", s.id),
				slog.Int("points", len(s.points)),
				slog.String("error", err.Error()))
		} else {
			reg.Fit = fit
			m.logger.InfoContext(ctx, "regression fitted",
				slog.String("regression", s.id),
				slog.Int("n", fit.N),
				slog.Float64("slope", fit.Slope),
				slog.Float64("intercept", fit.Intercept),
				slog.String("r_squared", fit.RSquared.Format(4)))
		}
		out = append(out, reg)
	}
	return out
}

func scoreELA(r domain.MergedRecord) domain.NullFloat  { return r.MeanELAScore }
func scoreMath(r domain.MergedRecord) domain.NullFloat { return r.MeanMathScore }

// CrossSection pairs combined lunch fraction with a raw score within one
// year. Raw scores are only comparable inside a single year.
func CrossSection(merged []domain.MergedRecord, year int, score func(domain.MergedRecord) domain.NullFloat) []domain.Point {
	var xs, ys []domain.NullFloat
	for _, r := range merged {
		if r.Year != year {
			continue
		}
		xs = append(xs, r.PerFreeReducedLunch)
		ys = append(ys, score(r))
	}
	return Pairs(xs, ys)
}

// LagDifferences orders records by (school_id, year) and differences each
// row against the previous row of the same school. The x value is the
// change in combined lunch fraction and the y value the change in z ELA.
// Only consecutive years are paired: a gap or a repeated year for the same
// school yields no point.
func LagDifferences(merged []domain.MergedRecord) []domain.Point {
	rows := make([]domain.MergedRecord, len(merged))
	copy(rows, merged)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SchoolID != rows[j].SchoolID {
			return rows[i].SchoolID < rows[j].SchoolID
		}
		return rows[i].Year < rows[j].Year
	})

	var xs, ys []domain.NullFloat
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		if prev.SchoolID != cur.SchoolID || cur.Year-prev.Year != 1 {
			continue
		}
		xs = append(xs, diff(cur.PerFreeReducedLunch, prev.PerFreeReducedLunch))
		ys = append(ys, diff(cur.ZMeanELAScore, prev.ZMeanELAScore))
	}
	return Pairs(xs, ys)
}

func diff(a, b domain.NullFloat) domain.NullFloat {
	if !a.Valid || !b.Valid {
		return domain.Null()
	}
	return domain.Some(a.Float64 - b.Float64)
}

// LowEnrollmentCounties returns the county-years whose total enrollment is
// at most limit. County-years with no known enrollment are left out.
func LowEnrollmentCounties(countyYears []domain.CountySummary, limit float64) map[domain.CountyYearKey]bool {
	keep := make(map[domain.CountyYearKey]bool)
	for _, s := range countyYears {
		if s.TotalEnroll.Valid && s.TotalEnroll.Float64 <= limit {
			keep[domain.CountyYearKey{CountyName: s.CountyName, Year: s.Year}] = true
		}
	}
	return keep
}

// PovertyPoints pairs county poverty with z ELA score for every school,
// optionally restricted to the given county-years.
func PovertyPoints(merged []domain.MergedRecord, only map[domain.CountyYearKey]bool) []domain.Point {
	var xs, ys []domain.NullFloat
	for _, r := range merged {
		if only != nil && !only[r.CountyYearKey()] {
			continue
		}
		xs = append(xs, r.CountyPerPoverty)
		ys = append(ys, r.ZMeanELAScore)
	}
	return Pairs(xs, ys)
}

// CountyLunchPoints pairs each county-year's aggregate lunch fraction with
// its poverty rate.
func CountyLunchPoints(countyYears []domain.CountySummary) []domain.Point {
	var xs, ys []domain.NullFloat
	for _, s := range countyYears {
		xs = append(xs, s.PerFreeReducedLunch)
		ys = append(ys, s.CountyPerPoverty)
	}
	return Pairs(xs, ys)
}
