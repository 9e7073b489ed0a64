package domain

// PovertyCategory is the poverty tier assigned to a county in a year.
type PovertyCategory string

const (
	PovertyLow    PovertyCategory = "low"
	PovertyMedium PovertyCategory = "medium"
	PovertyHigh   PovertyCategory = "high"
)

// PovertyCategories lists the tiers in report order.
var PovertyCategories = []PovertyCategory{PovertyLow, PovertyMedium, PovertyHigh}

// IsValid reports whether c is one of the known tiers.
func (c PovertyCategory) IsValid() bool {
	switch c {
	case PovertyLow, PovertyMedium, PovertyHigh:
		return true
	}
	return false
}

// CountyRecord is one county-year row from the poverty file.
type CountyRecord struct {
	CountyName       string    `json:"county_name"`
	Year             int       `json:"year"`
	CountyPerPoverty NullFloat `json:"county_per_poverty"`
}

// Key returns the join key of the record.
func (c CountyRecord) Key() CountyYearKey {
	return CountyYearKey{CountyName: c.CountyName, Year: c.Year}
}

// CountyYearKey is the natural key shared by school and county rows.
type CountyYearKey struct {
	CountyName string
	Year       int
}

// PovertyCutoffs are the per-year quantile thresholds.
type PovertyCutoffs struct {
	Year       int     `json:"year"`
	CutoffLow  float64 `json:"cutoff_low"`
	CutoffHigh float64 `json:"cutoff_high"`
	Counties   int     `json:"counties"`
}

// Classify assigns a tier. Values equal to a cutoff are medium.
func (p PovertyCutoffs) Classify(poverty float64) PovertyCategory {
	switch {
	case poverty < p.CutoffLow:
		return PovertyLow
	case poverty > p.CutoffHigh:
		return PovertyHigh
	default:
		return PovertyMedium
	}
}

// EnrichedCounty is a CountyRecord with its poverty tier.
// PovCat is empty when the county's poverty value is missing.
type EnrichedCounty struct {
	CountyRecord
	PovCat PovertyCategory `json:"pov_cat,omitempty"`
}
