package domain

// MergedRecord is an enriched school joined to its county-year row.
// County fields stay missing when no county row matched.
type MergedRecord struct {
	EnrichedSchool

	CountyMatched    bool            `json:"county_matched"`
	CountyPerPoverty NullFloat       `json:"county_per_poverty"`
	PovCat           PovertyCategory `json:"pov_cat,omitempty"`
}

// CountyYearKey returns the join key of the underlying school row.
func (m MergedRecord) CountyYearKey() CountyYearKey {
	return CountyYearKey{CountyName: m.CountyName, Year: m.Year}
}
