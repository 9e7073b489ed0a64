package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

func withLunch(combined domain.NullFloat) recordOpt {
	return func(r *domain.MergedRecord) { r.PerFreeReducedLunch = combined }
}

func withZELA(z domain.NullFloat) recordOpt {
	return func(r *domain.MergedRecord) { r.ZMeanELAScore = z }
}

func TestLagDifferences(t *testing.T) {
	records := []domain.MergedRecord{
		merged("b", "X", 2015, withLunch(nf(0.5)), withZELA(nf(0.2))),
		merged("a", "X", 2016, withLunch(nf(0.6)), withZELA(nf(-0.4))),
		merged("a", "X", 2014, withLunch(nf(0.3)), withZELA(nf(0.1))),
		merged("a", "X", 2015, withLunch(nf(0.4)), withZELA(nf(-0.1))),
		merged("b", "X", 2016, withLunch(na), withZELA(nf(0.0))),
		merged("c", "X", 2016, withLunch(nf(0.9)), withZELA(nf(1.0))),
	}

	got := LagDifferences(records)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.1, got[0].X, 1e-12)
	assert.InDelta(t, -0.2, got[0].Y, 1e-12)
	assert.InDelta(t, 0.2, got[1].X, 1e-12)
	assert.InDelta(t, -0.3, got[1].Y, 1e-12)

	// input order is untouched
	assert.Equal(t, "b", records[0].SchoolID)
}

func TestLagDifferencesPairsConsecutiveYearsOnly(t *testing.T) {
	records := []domain.MergedRecord{
		merged("gap", "X", 2014, withLunch(nf(0.2)), withZELA(nf(0.1))),
		merged("gap", "X", 2016, withLunch(nf(0.6)), withZELA(nf(0.5))),
		merged("dup", "X", 2015, withLunch(nf(0.3)), withZELA(nf(0.0))),
		merged("dup", "X", 2015, withLunch(nf(0.4)), withZELA(nf(0.2))),
		merged("dup", "X", 2016, withLunch(nf(0.5)), withZELA(nf(0.6))),
	}

	got := LagDifferences(records)
	require.Len(t, got, 1, "only the 2015 to 2016 step of dup is a one-year lag")
	assert.InDelta(t, 0.1, got[0].X, 1e-12)
	assert.InDelta(t, 0.4, got[0].Y, 1e-12)
}

func TestCrossSectionFiltersYear(t *testing.T) {
	records := []domain.MergedRecord{
		merged("a", "X", 2015, withLunch(nf(0.2)), scores(nf(300), nf(310), na, na)),
		merged("b", "X", 2016, withLunch(nf(0.4)), scores(nf(280), nf(290), na, na)),
		merged("c", "X", 2016, withLunch(nf(0.6)), scores(na, nf(270), na, na)),
	}

	ela := CrossSection(records, 2016, scoreELA)
	assert.Equal(t, []domain.Point{{X: 0.4, Y: 280}}, ela)

	math := CrossSection(records, 2016, scoreMath)
	assert.Len(t, math, 2)
}

func TestLowEnrollmentCounties(t *testing.T) {
	countyYears := []domain.CountySummary{
		{CountyName: "Small", Year: 2015, TotalEnroll: nf(9000)},
		{CountyName: "Edge", Year: 2015, TotalEnroll: nf(10000)},
		{CountyName: "Large", Year: 2015, TotalEnroll: nf(50000)},
		{CountyName: "Unknown", Year: 2015},
	}

	keep := LowEnrollmentCounties(countyYears, 10000)
	assert.True(t, keep[domain.CountyYearKey{CountyName: "Small", Year: 2015}])
	assert.True(t, keep[domain.CountyYearKey{CountyName: "Edge", Year: 2015}])
	assert.False(t, keep[domain.CountyYearKey{CountyName: "Large", Year: 2015}])
	assert.False(t, keep[domain.CountyYearKey{CountyName: "Unknown", Year: 2015}], "unknown size is not low enrollment")
}

func TestModelerFitAll(t *testing.T) {
	var records []domain.MergedRecord
	lunch := []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	for i, x := range lunch {
		id := string(rune('a' + i))
		county := "Large"
		if i < 2 {
			county = "Small"
		}
		p := 0.05 + 0.2*x
		// perfect negative relationship in 2016, noisier in 2015
		records = append(records,
			merged(id, county, 2016, enroll(1000, 1000*x, 0), poverty(p, domain.PovertyMedium),
				scores(nf(320-80*x), nf(330-60*x), nf(1-2*x), na)),
			merged(id, county, 2015, enroll(1000, 1000*x*0.9, 0), poverty(p, domain.PovertyMedium),
				scores(nf(300), nf(300), nf(0.5-x), na)),
		)
	}
	countyYears := CountyYearSummaries(records)

	m := NewModeler(nil, ModelerConfig{LowEnrollmentMax: 2000})
	regs := m.FitAll(context.Background(), records, countyYears, 2016)
	require.Len(t, regs, 6)

	byID := make(map[string]domain.Regression)
	for _, r := range regs {
		byID[r.ID] = r
	}

	ela := byID[RegressionELAvsLunch]
	require.True(t, ela.Fitted(), ela.Skipped)
	assert.Equal(t, 5, ela.Fit.N)
	assert.InDelta(t, -80, ela.Fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, ela.Fit.RSquared.Float64, 1e-12)

	mth := byID[RegressionMathVsLunch]
	assert.InDelta(t, -60, mth.Fit.Slope, 1e-9)

	delta := byID[RegressionDeltaELAvsDeltaLunch]
	require.True(t, delta.Fitted(), delta.Skipped)
	assert.Equal(t, 5, delta.Fit.N)

	all := byID[RegressionZELAvsPoverty]
	require.True(t, all.Fitted(), all.Skipped)
	assert.Equal(t, 10, all.Fit.N)

	low := byID[RegressionZELAvsPovertyLowEnrol]
	require.True(t, low.Fitted(), low.Skipped)
	assert.Equal(t, 4, low.Fit.N)

	county := byID[RegressionPovertyVsCountyLunch]
	require.True(t, county.Fitted(), county.Skipped)
	assert.Equal(t, "county_per_poverty", county.YLabel)
}

func TestModelerSkipsUnfittablePairs(t *testing.T) {
	records := []domain.MergedRecord{
		merged("a", "X", 2016, withLunch(nf(0.2)), scores(nf(300), nf(300), na, na)),
	}

	regs := NewModeler(nil, ModelerConfig{LowEnrollmentMax: 1}).FitAll(context.Background(), records, nil, 2016)
	require.Len(t, regs, 6)
	for _, r := range regs {
		assert.False(t, r.Fitted(), r.ID)
		assert.Contains(t, r.Skipped, "need at least 2 points")
	}
}
