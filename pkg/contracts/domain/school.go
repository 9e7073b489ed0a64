package domain

// SchoolRecord is one school-year row as loaded from the schools file.
// Percentages are fractions in [0,1] once cleaned.
type SchoolRecord struct {
	SchoolID        string    `json:"school_id"`
	SchoolName      string    `json:"school_name"`
	CountyName      string    `json:"county_name"`
	Year            int       `json:"year"`
	TotalEnroll     NullFloat `json:"total_enroll"`
	PerFreeLunch    NullFloat `json:"per_free_lunch"`
	PerReducedLunch NullFloat `json:"per_reduced_lunch"`
	PerLEP          NullFloat `json:"per_lep"`
	MeanELAScore    NullFloat `json:"mean_ela_score"`
	MeanMathScore   NullFloat `json:"mean_math_score"`
}

// EnrichedSchool is a cleaned SchoolRecord with derived fields.
type EnrichedSchool struct {
	SchoolRecord

	ZMeanELAScore       NullFloat `json:"z_mean_ela_score"`
	ZMeanMathScore      NullFloat `json:"z_mean_math_score"`
	NumFreeLunch        NullFloat `json:"num_free_lunch"`
	NumReducedLunch     NullFloat `json:"num_reduced_lunch"`
	PerFreeReducedLunch NullFloat `json:"per_free_reduced_lunch"`
}

// SchoolYearKey identifies a school in a given year.
type SchoolYearKey struct {
	SchoolID string
	Year     int
}
