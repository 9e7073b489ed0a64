package domain

// CountySummary aggregates a county's schools, either across all years
// (Year is 0) or within one year.
// Lunch fractions are recomputed from summed counts. A count is missing
// when none of the county's rows had it.
type CountySummary struct {
	CountyName          string    `json:"county_name"`
	Year                int       `json:"year,omitempty"`
	Schools             int       `json:"schools"`
	TotalEnroll         NullFloat `json:"total_enroll"`
	NumFreeLunch        NullFloat `json:"num_free_lunch"`
	NumReducedLunch     NullFloat `json:"num_reduced_lunch"`
	PerFreeLunch        NullFloat `json:"per_free_lunch"`
	PerReducedLunch     NullFloat `json:"per_reduced_lunch"`
	PerFreeReducedLunch NullFloat `json:"per_free_reduced_lunch"`
	CountyPerPoverty    NullFloat `json:"county_per_poverty"`
	MeanELAScore        NullFloat `json:"mean_ela_score"`
	MeanMathScore       NullFloat `json:"mean_math_score"`
}

// TierSummary compares standardized scores across poverty tiers.
type TierSummary struct {
	PovCat         PovertyCategory `json:"pov_cat"`
	Records        int             `json:"records"`
	ZMeanELAScore  NullFloat       `json:"z_mean_ela_score"`
	ZMeanMathScore NullFloat       `json:"z_mean_math_score"`
}

// ExtremeCounties holds the highest and lowest poverty counties of a year.
type ExtremeCounties struct {
	Year    int             `json:"year"`
	Highest []CountySummary `json:"highest"`
	Lowest  []CountySummary `json:"lowest"`
}

// ReportTables are the summary tables of one run.
type ReportTables struct {
	ReferenceYear int              `json:"reference_year"`
	Counties      []CountySummary  `json:"counties"`
	CountyYears   []CountySummary  `json:"county_years"`
	Tiers         []TierSummary    `json:"tiers"`
	Cutoffs       []PovertyCutoffs `json:"cutoffs"`
	Extremes      ExtremeCounties  `json:"extremes"`
}
