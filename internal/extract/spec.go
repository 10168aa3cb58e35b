// Package extract pulls logical fields out of nested submission documents
// using ordered path lists, and classifies what it finds as present or
// missing.
package extract

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/jsonpath"
)

// Marker segments for {value, score} leaf nodes.
const (
	ValueMarker = "value"
	ScoreMarker = "score"
)

// FieldSpec describes how to locate one logical field.
type FieldSpec struct {
	// Paths are tried in order; the first that resolves wins.
	Paths []jsonpath.Path `yaml:"paths" json:"paths"`

	// SubKey selects a member of element 0 when the value is a non-empty
	// array of mappings (e.g. "desc" out of a NAICS code list).
	SubKey string `yaml:"sub_key,omitempty" json:"sub_key,omitempty"`

	// LimitStructure marks mappings that count as present whenever they are
	// non-empty, whatever their contents.
	LimitStructure bool `yaml:"limit_structure,omitempty" json:"limit_structure,omitempty"`

	// ZeroIsMissing classifies a numeric zero as missing.
	ZeroIsMissing bool `yaml:"zero_is_missing,omitempty" json:"zero_is_missing,omitempty"`
}

// Spec is shorthand for a FieldSpec with the given paths.
func Spec(paths ...jsonpath.Path) FieldSpec {
	return FieldSpec{Paths: paths}
}

// Mapping maps a field name to its spec.
type Mapping map[string]FieldSpec

// Merge returns a new mapping with override applied key by key. Fields not
// named in override keep their existing spec.
func (m Mapping) Merge(override Mapping) Mapping {
	out := make(Mapping, len(m)+len(override))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Names returns the mapped field names in sorted order.
func (m Mapping) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every field has at least one non-empty path.
func (m Mapping) Validate() error {
	var errs []string
	for _, name := range m.Names() {
		spec := m[name]
		if len(spec.Paths) == 0 {
			errs = append(errs, name+": no paths")
			continue
		}
		for i, p := range spec.Paths {
			if len(p) == 0 {
				errs = append(errs, eris.Errorf("%s: path %d is empty", name, i).Error())
			}
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("extract: invalid mapping: %v", errs)
	}
	return nil
}

// ScorePath derives the parallel score path for a value path, or returns
// false when the path does not end in the value marker.
func ScorePath(p jsonpath.Path) (jsonpath.Path, bool) {
	last, ok := p.Last()
	if !ok || !last.IsKey(ValueMarker) {
		return nil, false
	}
	return p.WithLast(jsonpath.Key(ScoreMarker)), true
}
