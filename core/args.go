package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args are the validated arguments of one tool call, with schema defaults
// already applied. Getters never fail: a missing or mistyped value yields
// the zero value, since validation ran before the handler.
type Args map[string]interface{}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the string value of key, trimmed, or "".
func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Float returns the numeric value of key and whether it was present.
func (a Args) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns key truncated to an integer, or def when absent.
func (a Args) Int(key string, def int) int {
	f, ok := a.Float(key)
	if !ok {
		return def
	}
	return int(math.Trunc(f))
}

// Bool returns key as a boolean, or def when absent.
func (a Args) Bool(key string, def bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}
