package exporter

import (
	"strconv"

	"github.com/Sara-ShiHo/schools-and-poverty/pkg/contracts/domain"
)

// MissingText is how missing values are printed on the console
const MissingText = "NA"

// nullCell converts a NullFloat to a table cell; missing becomes nil
func nullCell(n domain.NullFloat) any {
	if !n.Valid {
		return nil
	}
	return n.Float64
}

// formatFloat formats a float64 with the given precision.
// A negative precision uses the shortest exact representation.
func formatFloat(f float64, precision int) string {
	if precision < 0 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', precision, 64)
}

// formatCell formats a table cell. Missing cells format as missing.
func formatCell(v any, precision int, missing string) string {
	switch x := v.(type) {
	case nil:
		return missing
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return formatFloat(x, precision)
	case bool:
		return formatBool(x)
	default:
		return missing
	}
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
