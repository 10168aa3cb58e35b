package jsonpath

// Resolve walks p through root. It returns (nil, false) as soon as a step
// does not apply to the current value: a key on a non-mapping, a missing
// key, an index on a non-sequence, or an out-of-range index. A present JSON
// null resolves as (nil, true).
func Resolve(root any, p Path) (any, bool) {
	cur := root
	for _, seg := range p {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Exists reports whether p resolves in root.
func Exists(root any, p Path) bool {
	_, ok := Resolve(root, p)
	return ok
}

func step(cur any, seg Segment) (any, bool) {
	switch seg.Kind {
	case KindKey:
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[seg.Key]
			return v, ok
		case map[any]any:
			v, ok := m[seg.Key]
			return v, ok
		}
	case KindIndex:
		if seg.Index < 0 {
			return nil, false
		}
		switch s := cur.(type) {
		case []any:
			if seg.Index < len(s) {
				return s[seg.Index], true
			}
		case []map[string]any:
			if seg.Index < len(s) {
				return s[seg.Index], true
			}
		}
	}
	return nil, false
}

// Set writes v at p inside root, creating intermediate mappings for missing
// keys. Sequences are never grown: an out-of-range index fails. It reports
// whether the value was written.
func Set(root any, p Path, v any) bool {
	if len(p) == 0 {
		return false
	}
	cur := root
	for i, seg := range p {
		last := i == len(p)-1
		switch seg.Kind {
		case KindKey:
			m, ok := cur.(map[string]any)
			if !ok {
				return false
			}
			if last {
				m[seg.Key] = v
				return true
			}
			next, exists := m[seg.Key]
			if !exists || next == nil {
				if p[i+1].Kind != KindKey {
					return false
				}
				next = map[string]any{}
				m[seg.Key] = next
			}
			cur = next
		case KindIndex:
			s, ok := cur.([]any)
			if !ok || seg.Index < 0 || seg.Index >= len(s) {
				return false
			}
			if last {
				s[seg.Index] = v
				return true
			}
			cur = s[seg.Index]
		}
	}
	return false
}

// Clone deep-copies a decoded JSON-like value. Mappings and sequences are
// copied; scalars are shared.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}
