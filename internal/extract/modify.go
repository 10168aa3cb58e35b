package extract

import (
	"sort"

	"github.com/sells-group/intake-cli/internal/jsonpath"
	"github.com/sells-group/intake-cli/internal/model"
)

// UserScore is the confidence given to user-supplied values.
const UserScore = 100.0

// ApplyModifications returns a deep copy of doc with each modification
// written into the document, and the sorted names of the fields it applied.
// The input document is not changed. Fields unknown to the mapping, or
// whose paths cannot be written, are skipped. Applying the same
// modifications again yields the same document.
func ApplyModifications(doc any, mods map[string]any, mapping Mapping) (any, []string) {
	out := jsonpath.Clone(doc)
	if len(mods) == 0 {
		return out, nil
	}
	var applied []string
	for name, val := range mods {
		spec, ok := mapping[name]
		if !ok {
			continue
		}
		if writeModification(out, spec, val) {
			applied = append(applied, name)
		}
	}
	sort.Strings(applied)
	return out, applied
}

// writeModification writes val at the field's resolved path, falling back to
// its declared paths in order when nothing resolves yet. Value-node paths get
// a fresh {value, score: null} node.
func writeModification(doc any, spec FieldSpec, val any) bool {
	var candidates []jsonpath.Path
	for _, p := range spec.Paths {
		if jsonpath.Exists(doc, p) {
			candidates = append(candidates, p)
			break
		}
	}
	candidates = append(candidates, spec.Paths...)

	for _, p := range candidates {
		if spec.SubKey != "" {
			if cur, ok := jsonpath.Resolve(doc, p); ok {
				if _, ok := firstMapping(cur); ok {
					if jsonpath.Set(doc, p.Append(jsonpath.Index(0), jsonpath.Key(spec.SubKey)), val) {
						return true
					}
				}
			}
		}
		if _, ok := ScorePath(p); ok {
			node := map[string]any{ValueMarker: val, ScoreMarker: nil}
			if jsonpath.Set(doc, p.Parent(), node) {
				return true
			}
			continue
		}
		if jsonpath.Set(doc, p, val) {
			return true
		}
	}
	return false
}

// ExtractWithModifications applies mods to a copy of doc, extracts every
// field, and marks modified fields as user-sourced with full confidence.
func ExtractWithModifications(doc any, mods map[string]any, mapping Mapping) (model.Fields, []string) {
	modified, applied := ApplyModifications(doc, mods, mapping)
	fields := Extract(modified, mapping)
	for _, name := range applied {
		f := fields[name]
		score := UserScore
		f.Score = &score
		f.Source = model.SourceUserModified
		fields[name] = f
	}
	return fields, applied
}
