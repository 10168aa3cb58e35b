package extract

import (
	"encoding/json"
	"strings"
)

// IsPresent classifies a resolved value: nil, blank strings, empty lists and
// empty mappings are missing. Every other scalar is present, including
// numeric zero and false.
func IsPresent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []map[string]any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// IsPresentFor applies the field's policies on top of IsPresent. A limit
// structure counts present when it is a non-empty mapping; ZeroIsMissing
// turns a numeric zero into missing.
func IsPresentFor(v any, spec FieldSpec) bool {
	if spec.LimitStructure {
		if m, ok := v.(map[string]any); ok {
			return len(m) > 0
		}
	}
	if spec.ZeroIsMissing && isNumericZero(v) {
		return false
	}
	return IsPresent(v)
}

func isNumericZero(v any) bool {
	switch t := v.(type) {
	case float64:
		return t == 0
	case float32:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case int32:
		return t == 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}
