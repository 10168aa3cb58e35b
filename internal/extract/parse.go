package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseFloat converts a JSON-ish value to a float. Strings may carry "$",
// "," and surrounding whitespace. Booleans, blanks, NaN and Inf fail.
func ParseFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(t)
		s = strings.ReplaceAll(s, "$", "")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseInt converts like ParseFloat and truncates toward zero.
func ParseInt(v any) (int, bool) {
	f, ok := ParseFloat(v)
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseBool accepts booleans, yes/no style strings and numbers.
func ParseBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "true", "y", "t", "1":
			return true, true
		case "no", "false", "n", "f", "0":
			return false, true
		}
		return false, false
	default:
		f, ok := ParseFloat(v)
		if !ok {
			return false, false
		}
		return f != 0, true
	}
}

// ParseScore reads a confidence score in [0, 100]. Anything non-numeric or
// out of range is absent.
func ParseScore(v any) (float64, bool) {
	f, ok := ParseFloat(v)
	if !ok || f < 0 || f > 100 {
		return 0, false
	}
	return f, true
}

// ParseString renders scalars as trimmed strings. Containers and nil fail.
func ParseString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
