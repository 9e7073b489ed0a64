package domain

// Point is one (x, y) observation of a scatter plot.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegressionFit is the result of a simple OLS fit y = Intercept + Slope*x.
// Statistics that are undefined for the data, such as standard errors of
// an exact fit, are missing.
type RegressionFit struct {
	N                int       `json:"n"`
	Slope            float64   `json:"slope"`
	Intercept        float64   `json:"intercept"`
	SlopeStdErr      NullFloat `json:"slope_std_err"`
	InterceptStdErr  NullFloat `json:"intercept_std_err"`
	SlopeTStat       NullFloat `json:"slope_t_stat"`
	InterceptTStat   NullFloat `json:"intercept_t_stat"`
	RSquared         NullFloat `json:"r_squared"`
	ResidualStdErr   NullFloat `json:"residual_std_err"`
	DegreesOfFreedom int       `json:"degrees_of_freedom"`
}

// Predict evaluates the fitted line at x.
func (f RegressionFit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// Regression is a named fit together with the points it was fit on.
// Skipped holds the reason when the pair could not be fit.
type Regression struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	XLabel  string        `json:"x_label"`
	YLabel  string        `json:"y_label"`
	Fit     RegressionFit `json:"fit"`
	Points  []Point       `json:"points"`
	Skipped string        `json:"skipped,omitempty"`
}

// Fitted reports whether the regression produced a fit.
func (r Regression) Fitted() bool {
	return r.Skipped == ""
}
