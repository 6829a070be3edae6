package engine

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Absent is the marker rendered in place of a missing value.
const Absent = "—"

// MixedUnits labels a chart whose rows do not share one unit.
const MixedUnits = "mixed units"

// FormatNumber renders integers without decimals and everything else with
// exactly two, rounding halves away from zero (0.125 -> "0.13").
func FormatNumber(v float64) string {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	if !math.IsInf(v, 0) && v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	if r := math.Round(v*100) / 100; !math.IsInf(r, 0) && !math.IsNaN(r) {
		v = r
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatValue renders "<number> <unit>" with an optional " (<aggregation>)"
// suffix, or Absent when the value is missing.
func FormatValue(value *float64, unit string, aggregation *string) string {
	if value == nil {
		return Absent
	}
	var b strings.Builder
	b.WriteString(FormatNumber(*value))
	if unit != "" {
		b.WriteByte(' ')
		b.WriteString(unit)
	}
	if aggregation != nil && *aggregation != "" {
		b.WriteString(" (")
		b.WriteString(*aggregation)
		b.WriteByte(')')
	}
	return b.String()
}

// TitleCase upper-cases the first letter of s.
func TitleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// OrDash returns *s, or Absent when s is nil or empty.
func OrDash(s *string) string {
	if s == nil || *s == "" {
		return Absent
	}
	return *s
}
