package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

func TestFitOLSPerfectNegativeLine(t *testing.T) {
	// score = 320 - 80 * lunch
	var points []domain.Point
	for _, x := range []float64{0.05, 0.2, 0.35, 0.5, 0.65, 0.8, 0.95} {
		points = append(points, domain.Point{X: x, Y: 320 - 80*x})
	}

	fit, err := FitOLS(points)
	require.NoError(t, err)

	assert.Equal(t, 7, fit.N)
	assert.Equal(t, 5, fit.DegreesOfFreedom)
	assert.InDelta(t, -80, fit.Slope, 1e-9)
	assert.InDelta(t, 320, fit.Intercept, 1e-9)
	require.True(t, fit.RSquared.Valid)
	assert.InDelta(t, 1.0, fit.RSquared.Float64, 1e-12)
	assert.InDelta(t, 0, fit.ResidualStdErr.Float64, 1e-9)
}

func TestFitOLSKnownValues(t *testing.T) {
	points := []domain.Point{{X: 1, Y: 2}, {X: 2, Y: 4}, {X: 3, Y: 5}, {X: 4, Y: 4}, {X: 5, Y: 5}}

	fit, err := FitOLS(points)
	require.NoError(t, err)

	assert.InDelta(t, 0.6, fit.Slope, 1e-12)
	assert.InDelta(t, 2.2, fit.Intercept, 1e-12)
	assert.InDelta(t, 0.6, fit.RSquared.Float64, 1e-12)
	assert.InDelta(t, math.Sqrt(0.8), fit.ResidualStdErr.Float64, 1e-12)
	assert.InDelta(t, math.Sqrt(0.08), fit.SlopeStdErr.Float64, 1e-12)
	assert.InDelta(t, math.Sqrt(0.88), fit.InterceptStdErr.Float64, 1e-12)
	assert.InDelta(t, 0.6/math.Sqrt(0.08), fit.SlopeTStat.Float64, 1e-9)
	assert.InDelta(t, 2.2/math.Sqrt(0.88), fit.InterceptTStat.Float64, 1e-9)
	assert.InDelta(t, 2.2+0.6*10, fit.Predict(10), 1e-12)
}

func TestFitOLSTwoPoints(t *testing.T) {
	fit, err := FitOLS([]domain.Point{{X: 0, Y: 1}, {X: 1, Y: 3}})
	require.NoError(t, err)

	assert.InDelta(t, 2, fit.Slope, 1e-12)
	assert.Equal(t, 0, fit.DegreesOfFreedom)
	assert.False(t, fit.SlopeStdErr.Valid)
	assert.False(t, fit.SlopeTStat.Valid)
	require.True(t, fit.RSquared.Valid)
	assert.InDelta(t, 1, fit.RSquared.Float64, 1e-12)
}

func TestFitOLSConstantResponse(t *testing.T) {
	fit, err := FitOLS([]domain.Point{{X: 0, Y: 4}, {X: 1, Y: 4}, {X: 2, Y: 4}})
	require.NoError(t, err)

	assert.InDelta(t, 0, fit.Slope, 1e-12)
	assert.False(t, fit.RSquared.Valid)
}

func TestFitOLSErrors(t *testing.T) {
	tests := []struct {
		name    string
		points  []domain.Point
		wantMsg string
	}{
		{"no points", nil, "need at least 2 points, got 0"},
		{"one point", []domain.Point{{X: 1, Y: 1}}, "need at least 2 points, got 1"},
		{"constant predictor", []domain.Point{{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3}}, "predictor has zero variance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitOLS(tt.points)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeModel))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPairsDropsIncomplete(t *testing.T) {
	xs := []domain.NullFloat{nf(1), na, nf(3), nf(4)}
	ys := []domain.NullFloat{nf(10), nf(20), na, nf(40)}

	assert.Equal(t, []domain.Point{{X: 1, Y: 10}, {X: 4, Y: 40}}, Pairs(xs, ys))
}
