package dataprocessing

import (
	"context"
	"log/slog"
	"sort"

	"github.com/Sara-ShiHo/schools-and-poverty/internal/analytics"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// CategorizerConfig holds the quantiles that bound the medium tier
type CategorizerConfig struct {
	LowQuantile  float64
	HighQuantile float64
}

// DefaultCategorizerConfig returns quartile cutoffs
func DefaultCategorizerConfig() CategorizerConfig {
	return CategorizerConfig{LowQuantile: 0.25, HighQuantile: 0.75}
}

// Categorizer assigns poverty tiers to counties year by year
type Categorizer struct {
	logger *slog.Logger
	config CategorizerConfig
}

// NewCategorizer creates a new categorizer. A zero config selects quartiles.
func NewCategorizer(logger *slog.Logger, config CategorizerConfig) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config == (CategorizerConfig{}) {
		config = DefaultCategorizerConfig()
	}
	return &Categorizer{
		logger: logger.With(slog.String("component", "categorizer")),
		config: config,
	}
}

// Categorize computes the per-year cutoffs and tiers every county
func (c *Categorizer) Categorize(ctx context.Context, counties []domain.CountyRecord) ([]domain.EnrichedCounty, []domain.PovertyCutoffs) {
	cutoffs := ComputeCutoffs(counties, c.config.LowQuantile, c.config.HighQuantile)
	enriched := Categorize(counties, cutoffs)

	for _, co := range cutoffs {
		c.logger.DebugContext(ctx, "poverty cutoffs",
			slog.Int("year", co.Year),
			slog.Float64("cutoff_low", co.CutoffLow),
			slog.Float64("cutoff_high", co.CutoffHigh),
			slog.Int("counties", co.Counties))
	}
	c.logger.InfoContext(ctx, "counties categorized",
		slog.Int("counties", len(enriched)),
		slog.Int("years", len(cutoffs)))
	return enriched, cutoffs
}

// ComputeCutoffs returns the low and high quantiles of county poverty for
// each year, ordered by year. Years without any poverty value are omitted.
func ComputeCutoffs(counties []domain.CountyRecord, lowQ, highQ float64) []domain.PovertyCutoffs {
	byYear := make(map[int][]float64)
	for _, c := range counties {
		if c.CountyPerPoverty.Valid {
			byYear[c.Year] = append(byYear[c.Year], c.CountyPerPoverty.Float64)
		}
	}

	out := make([]domain.PovertyCutoffs, 0, len(byYear))
	for year, values := range byYear {
		low, _ := analytics.Quantile(values, lowQ)
		high, _ := analytics.Quantile(values, highQ)
		out = append(out, domain.PovertyCutoffs{
			Year:       year,
			CutoffLow:  low,
			CutoffHigh: high,
			Counties:   len(values),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Categorize tiers each county against its own year's cutoffs. Values equal
// to a cutoff are medium. Counties with missing poverty stay untiered.
func Categorize(counties []domain.CountyRecord, cutoffs []domain.PovertyCutoffs) []domain.EnrichedCounty {
	byYear := make(map[int]domain.PovertyCutoffs, len(cutoffs))
	for _, c := range cutoffs {
		byYear[c.Year] = c
	}

	out := make([]domain.EnrichedCounty, len(counties))
	for i, c := range counties {
		out[i] = domain.EnrichedCounty{CountyRecord: c}
		co, ok := byYear[c.Year]
		if !ok || !c.CountyPerPoverty.Valid {
			continue
		}
		out[i].PovCat = co.Classify(c.CountyPerPoverty.Float64)
	}
	return out
}
