package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// present returns the non-missing values in order
func present(values []domain.NullFloat) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// Quantile returns the q-th quantile of values using linear interpolation
// between order statistics (h = q*(n-1)). stat.Quantile with LinInterp
// places h at q*n and would put the lower quartile of five values between
// the first two. The second result is false when values is empty.
func Quantile(values []float64, q float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantileSorted(sorted, q), true
}

func quantileSorted(sorted []float64, q float64) float64 {
	n := len(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}

	index := q * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Total adds the present values. Missing when none are present.
func Total(values []domain.NullFloat) domain.NullFloat {
	xs := present(values)
	if len(xs) == 0 {
		return domain.Null()
	}
	return domain.Some(floats.Sum(xs))
}

// Mean averages the present values. Missing when none are present.
func Mean(values []domain.NullFloat) domain.NullFloat {
	xs := present(values)
	if len(xs) == 0 {
		return domain.Null()
	}
	return domain.Some(stat.Mean(xs, nil))
}

// StdDev is the sample standard deviation (n-1) of the present values.
// Missing when fewer than two values are present.
func StdDev(values []domain.NullFloat) domain.NullFloat {
	xs := present(values)
	if len(xs) < 2 {
		return domain.Null()
	}
	return domain.Some(stat.StdDev(xs, nil))
}

// ZScores standardizes values within the group given by keys[i]. Each
// group is centered on its own mean and scaled by its own sample standard
// deviation. Missing inputs stay missing, and groups with fewer than two
// values or no spread yield missing scores.
func ZScores[K comparable](keys []K, values []domain.NullFloat) []domain.NullFloat {
	groups := make(map[K][]float64)
	for i, k := range keys {
		if values[i].Valid {
			groups[k] = append(groups[k], values[i].Float64)
		}
	}

	type moments struct{ mean, sd float64 }
	scales := make(map[K]moments, len(groups))
	for k, g := range groups {
		if len(g) < 2 {
			continue
		}
		mean, sd := stat.MeanStdDev(g, nil)
		if sd == 0 || math.IsNaN(sd) {
			continue
		}
		scales[k] = moments{mean: mean, sd: sd}
	}

	out := make([]domain.NullFloat, len(values))
	for i, v := range values {
		m, ok := scales[keys[i]]
		if !v.Valid || !ok {
			continue
		}
		out[i] = domain.Some(stat.StdScore(v.Float64, m.mean, m.sd))
	}
	return out
}

// RoundHalfEven rounds to the nearest integer, ties to even.
func RoundHalfEven(v domain.NullFloat) domain.NullFloat {
	if !v.Valid {
		return v
	}
	return domain.Some(math.RoundToEven(v.Float64))
}
