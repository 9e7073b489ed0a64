package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/Sara-ShiHo/schools-and-poverty/internal/errors"
	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// Join left-joins schools to counties on (county_name, year). Every school
// appears exactly once, in input order. A county key that occurs more than
// once is rejected.
func Join(schools []domain.EnrichedSchool, counties []domain.EnrichedCounty) ([]domain.MergedRecord, error) {
	index, err := indexCounties(counties)
	if err != nil {
		return nil, err
	}

	out := make([]domain.MergedRecord, len(schools))
	for i, s := range schools {
		out[i] = domain.MergedRecord{EnrichedSchool: s}
		c, ok := index[domain.CountyYearKey{CountyName: s.CountyName, Year: s.Year}]
		if !ok {
			continue
		}
		out[i].CountyMatched = true
		out[i].CountyPerPoverty = c.CountyPerPoverty
		out[i].PovCat = c.PovCat
	}
	return out, nil
}

func indexCounties(counties []domain.EnrichedCounty) (map[domain.CountyYearKey]domain.EnrichedCounty, error) {
	index := make(map[domain.CountyYearKey]domain.EnrichedCounty, len(counties))
	for _, c := range counties {
		k := c.Key()
		if _, dup := index[k]; dup {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("duplicate county row for %s in %d", k.CountyName, k.Year)).
				WithContext("county_name", k.CountyName).
				WithContext("year", k.Year)
		}
		index[k] = c
	}
	return index, nil
}

// Joiner wraps Join with logging of the match rate
type Joiner struct {
	logger *slog.Logger
}

// NewJoiner creates a new joiner
func NewJoiner(logger *slog.Logger) *Joiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Joiner{logger: logger.With(slog.String("component", "joiner"))}
}

// Join merges the tables and logs how many schools found a county row
func (j *Joiner) Join(ctx context.Context, schools []domain.EnrichedSchool, counties []domain.EnrichedCounty) ([]domain.MergedRecord, error) {
	merged, err := Join(schools, counties)
	if err != nil {
		j.logger.ErrorContext(ctx, "join failed", slog.String("error", err.Error()))
		return nil, err
	}

	matched := 0
	for _, m := range merged {
		if m.CountyMatched {
			matched++
		}
	}
	j.logger.InfoContext(ctx, "schools joined to counties",
		slog.Int("rows", len(merged)),
		slog.Int("matched", matched),
		slog.Int("unmatched", len(merged)-matched))
	return merged, nil
}
