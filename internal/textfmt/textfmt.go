// Package textfmt holds the small formatting helpers shared by the module
// formatters: number rendering that matches what upstream APIs return
// (shortest form, no trailing zeros), fixed-precision rendering, and the
// timestamp layouts used in forecast listings.
package textfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Nordic zones without a system zoneinfo
)

// Num renders v in its shortest exact form: 3 -> "3", 12.5 -> "12.5".
func Num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NumPtr renders v, or fallback when v is nil.
func NumPtr(v *float64, fallback string) string {
	if v == nil {
		return fallback
	}
	return Num(*v)
}

// Fixed renders v with exactly digits decimals, rounding half away from zero.
func Fixed(v float64, digits int) string {
	p := math.Pow(10, float64(digits))
	r := math.Round(v*p) / p
	if r == 0 {
		r = 0 // no "-0.00"
	}
	return strconv.FormatFloat(r, 'f', digits, 64)
}

// Int renders an integral value without decimals.
func Int(v float64) string {
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// Thousands renders n with comma separators: 12345 -> "12,345".
func Thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Layouts for forecast listings
const (
	HourLayout = "Mon 2 Jan 15:04"
	DayLayout  = "Monday 2 January"
)

// Hour renders t as a listing row label, e.g. "Tue 15 Oct 14:00".
func Hour(t time.Time) string {
	return t.Format(HourLayout)
}

// Day renders t as a daily heading, e.g. "Tuesday 15 October".
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// ParseLocal parses an Open-Meteo / Energi Data Service wall-clock timestamp
// ("2006-01-02T15:04", optionally with seconds, or a bare date) as-is.
func ParseLocal(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// InZone loads a named zone, falling back to UTC when it is unavailable.
func InZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Lines collects output lines, skipping empty optional ones.
type Lines []string

// Add appends every line
func (l *Lines) Add(lines ...string) {
	*l = append(*l, lines...)
}

// AddIf appends line when cond holds
func (l *Lines) AddIf(cond bool, line string) {
	if cond {
		*l = append(*l, line)
	}
}

// String joins the lines with newlines
func (l Lines) String() string {
	return strings.Join(l, "\n")
}

// Str renders a loosely typed JSON value the way it reads in the upstream
// document: strings verbatim, numbers in shortest form, nil as "".
func Str(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return Num(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// Truthy reports whether a JSON value counts as set: non-empty strings,
// non-zero numbers, true, and any array or object (even an empty one).
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case []interface{}:
		return true
	case map[string]interface{}:
		return true
	default:
		return true
	}
}

// Or returns s, or fallback when s is empty.
func Or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
