// Package analytics holds the descriptive statistics and regressions of the
// schools and poverty report.
//
// # Components
//
//   - stats.go: quantiles, means, sample standard deviation and grouped z-scores
//   - ols.go: simple ordinary least squares with standard errors and R²
//   - aggregate.go: county, county-year, poverty tier and extreme-county tables
//   - modeler.go: the standard regression pairs of the report
//
// Every function treats missing values by exclusion. Nothing in this
// package mutates its inputs; grouped computations take the grouping key
// as an argument.
package analytics
