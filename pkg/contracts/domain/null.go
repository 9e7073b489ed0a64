package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// NullFloat is a float64 that may be missing.
// The zero value is missing.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some returns a present value. NaN and Inf are treated as missing.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Null returns a missing value.
func Null() NullFloat {
	return NullFloat{}
}

// Get returns the value and whether it is present.
func (n NullFloat) Get() (float64, bool) {
	return n.Float64, n.Valid
}

// Equals reports whether the value is present and exactly v.
func (n NullFloat) Equals(v float64) bool {
	return n.Valid && n.Float64 == v
}

// Format formats the value with the given precision, or "NA".
func (n NullFloat) Format(precision int) string {
	if !n.Valid {
		return "NA"
	}
	return strconv.FormatFloat(n.Float64, 'f', precision, 64)
}

// String implements fmt.Stringer.
func (n NullFloat) String() string {
	if !n.Valid {
		return "NA"
	}
	return strconv.FormatFloat(n.Float64, 'g', -1, 64)
}

// MarshalJSON encodes missing values as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON decodes null as missing.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
