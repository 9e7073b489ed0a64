package domain

import "time"

// Report is everything one pipeline run produces.
type Report struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Tables      *ReportTables  `json:"tables"`
	Regressions []Regression   `json:"regressions"`
	Merged      []MergedRecord `json:"-"`
}

// Regression returns the regression with the given ID.
func (r *Report) Regression(id string) (Regression, bool) {
	for _, reg := range r.Regressions {
		if reg.ID == id {
			return reg, true
		}
	}
	return Regression{}, false
}
