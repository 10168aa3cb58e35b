package extract

import (
	"github.com/sells-group/intake-cli/internal/jsonpath"
	"github.com/sells-group/intake-cli/internal/model"
)

// Extract resolves every field in mapping against data. Fields that do not
// resolve are returned with Found and Present false; extraction never fails.
func Extract(data any, mapping Mapping) model.Fields {
	out := make(model.Fields, len(mapping))
	for name, spec := range mapping {
		out[name] = ExtractField(data, name, spec)
	}
	return out
}

// ExtractField resolves a single field. Only the first path that resolves
// is used; later paths are not consulted.
func ExtractField(data any, name string, spec FieldSpec) model.ExtractedField {
	f := model.ExtractedField{Name: name, Source: model.SourceOriginal}
	for _, p := range spec.Paths {
		v, ok := jsonpath.Resolve(data, p)
		if !ok {
			continue
		}
		f.Found = true
		f.Path = p
		f.Value = selectSubKey(v, spec.SubKey)
		if sp, ok := ScorePath(p); ok {
			if raw, ok := jsonpath.Resolve(data, sp); ok {
				if s, ok := ParseScore(raw); ok {
					f.Score = &s
				}
			}
		}
		break
	}
	f.Present = f.Found && IsPresentFor(f.Value, spec)
	return f
}

// selectSubKey returns element 0's sub-key when v is a non-empty array of
// mappings. Any other value is returned unchanged.
func selectSubKey(v any, subKey string) any {
	if subKey == "" {
		return v
	}
	first, ok := firstMapping(v)
	if !ok {
		return v
	}
	return ValueOf(first[subKey])
}

func firstMapping(v any) (map[string]any, bool) {
	switch s := v.(type) {
	case []any:
		if len(s) == 0 {
			return nil, false
		}
		m, ok := s[0].(map[string]any)
		return m, ok
	case []map[string]any:
		if len(s) == 0 {
			return nil, false
		}
		return s[0], true
	}
	return nil, false
}

// ValueOf unwraps a {value, score} node to its value. Anything else is
// returned as-is.
func ValueOf(v any) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m[ValueMarker]; ok {
			return inner
		}
	}
	return v
}

// ScoreOf returns the parsed score of a {value, score} node.
func ScoreOf(v any) (float64, bool) {
	if m, ok := v.(map[string]any); ok {
		return ParseScore(m[ScoreMarker])
	}
	return 0, false
}
