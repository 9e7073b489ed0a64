package analytics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// FitOLS fits y = a + b*x by ordinary least squares. The coefficients and
// R² come from gonum; standard errors and t statistics are derived here.
//
// Standard errors use the residual variance with n-2 degrees of freedom,
// so they are missing for two-point fits. R² is missing when y has no
// variance.
func FitOLS(points []domain.Point) (domain.RegressionFit, error) {
	n := len(points)
	if n < 2 {
		return domain.RegressionFit{}, apperrors.NewModelError(
			fmt.Sprintf("need at least 2 points, got %d", n), nil)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}

	meanX, varX := stat.MeanVariance(xs, nil)
	if varX == 0 {
		return domain.RegressionFit{}, apperrors.NewModelError("predictor has zero variance", nil).
			WithContext("n", n)
	}
	sxx := varX * float64(n-1)

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)

	var sse float64
	for i := range xs {
		r := ys[i] - (intercept + slope*xs[i])
		sse += r * r
	}

	fit := domain.RegressionFit{
		N:                n,
		Slope:            slope,
		Intercept:        intercept,
		DegreesOfFreedom: n - 2,
	}
	if stat.Variance(ys, nil) > 0 {
		fit.RSquared = domain.Some(math.Max(0, stat.RSquared(xs, ys, nil, intercept, slope)))
	}
	if fit.DegreesOfFreedom > 0 {
		variance := sse / float64(fit.DegreesOfFreedom)
		fit.ResidualStdErr = domain.Some(math.Sqrt(variance))
		fit.SlopeStdErr = domain.Some(math.Sqrt(variance / sxx))
		fit.InterceptStdErr = domain.Some(math.Sqrt(variance * (1/float64(n) + meanX*meanX/sxx)))
		fit.SlopeTStat = tStat(slope, fit.SlopeStdErr)
		fit.InterceptTStat = tStat(intercept, fit.InterceptStdErr)
	}
	return fit, nil
}

func tStat(coef float64, se domain.NullFloat) domain.NullFloat {
	if !se.Valid || se.Float64 == 0 {
		return domain.Null()
	}
	return domain.Some(coef / se.Float64)
}

// Pairs builds the points where both coordinates are present.
func Pairs(xs, ys []domain.NullFloat) []domain.Point {
	points := make([]domain.Point, 0, len(xs))
	for i := range xs {
		if xs[i].Valid && ys[i].Valid {
			points = append(points, domain.Point{X: xs[i].Float64, Y: ys[i].Float64})
		}
	}
	return points
}
