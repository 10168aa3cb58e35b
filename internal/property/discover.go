package property

import (
	"sort"

	"github.com/sells-group/intake-cli/internal/extract"
	"github.com/sells-group/intake-cli/internal/jsonpath"
)

// Sections of the structured property layout.
var (
	standardSections = []string{"Property"}
	advancedSections = []string{"Advanced Property", "Advanced_Property"}
)

// listPaths are tried, in order, when no structured section exists.
var listPaths = []jsonpath.Path{
	jsonpath.P("properties"),
	jsonpath.P("submission", "properties"),
	jsonpath.P("data", "properties"),
	jsonpath.P("locations"),
	jsonpath.P("submission", "locations"),
	jsonpath.P("data", "locations"),
	jsonpath.P("buildings"),
	jsonpath.P("submission", "buildings"),
	jsonpath.P("data", "buildings"),
	jsonpath.P("statement_of_values"),
	jsonpath.P("submission", "statement_of_values"),
	jsonpath.P("data", "statement_of_values"),
	jsonpath.P("sov"),
}

// singlePropertyKeys mark a document that is itself one property.
var singlePropertyKeys = []string{"building_value", "square_footage", "address", "construction"}

// Discovered holds the raw records found in a document by section.
type Discovered struct {
	Standard []Raw
	Advanced []Raw
}

// Empty reports whether nothing was found.
func (d Discovered) Empty() bool {
	return len(d.Standard) == 0 && len(d.Advanced) == 0
}

// Discover finds property records in doc. It tries the structured
// Property / Advanced Property sections under submission_data and at the
// root, then generic property lists, then the document itself. Nothing
// found is not an error.
func Discover(doc any) Discovered {
	for _, root := range roots(doc) {
		if d := discoverSections(root); !d.Empty() {
			return d
		}
	}
	for _, root := range roots(doc) {
		if raws := discoverLists(root); len(raws) > 0 {
			return Discovered{Standard: raws}
		}
	}

	switch d := doc.(type) {
	case []any:
		return Discovered{Standard: rawList(d)}
	case map[string]any:
		for _, k := range singlePropertyKeys {
			if _, ok := d[k]; ok {
				return Discovered{Standard: []Raw{flatten(d)}}
			}
		}
		return Discovered{Standard: rawMap(d, true)}
	}
	return Discovered{}
}

func roots(doc any) []map[string]any {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	if sd, ok := m["submission_data"].(map[string]any); ok {
		out = append(out, sd)
	}
	return append(out, m)
}

func discoverSections(root map[string]any) Discovered {
	var d Discovered
	for _, name := range standardSections {
		for _, item := range mappings(root[name]) {
			if r := flattenStandard(item); len(r) > 0 {
				d.Standard = append(d.Standard, r)
			}
		}
	}
	for _, name := range advancedSections {
		for _, item := range mappings(root[name]) {
			if r := flattenAdvanced(item); len(r) > 0 {
				d.Advanced = append(d.Advanced, r)
			}
		}
	}
	return d
}

func discoverLists(root map[string]any) []Raw {
	for _, p := range listPaths {
		v, ok := jsonpath.Resolve(root, p)
		if !ok {
			continue
		}
		var raws []Raw
		switch t := v.(type) {
		case []any:
			raws = rawList(t)
		case map[string]any:
			raws = rawMap(t, false)
		}
		if len(raws) > 0 {
			return raws
		}
	}
	return nil
}

func mappings(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func rawList(list []any) []Raw {
	var out []Raw
	for _, m := range mappings(list) {
		if _, ok := m["standard_facts"]; ok {
			out = append(out, flattenStandard(m))
			continue
		}
		if r := flatten(m); len(r) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// rawMap treats each mapping value as a property keyed by its id. With
// strict set, values must carry at least one known property field.
func rawMap(m map[string]any, strict bool) []Raw {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Raw
	for _, k := range keys {
		item, ok := m[k].(map[string]any)
		if !ok {
			if strict {
				return nil
			}
			continue
		}
		r := flatten(item)
		if strict && !looksLikeProperty(r) {
			return nil
		}
		if _, ok := r["id"]; !ok {
			if _, ok := r["property_id"]; !ok {
				r["property_id"] = k
			}
		}
		out = append(out, r)
	}
	return out
}

func looksLikeProperty(r Raw) bool {
	for field, keys := range Aliases {
		if field == "id" {
			continue
		}
		for _, k := range keys {
			if _, ok := r[k]; ok {
				return true
			}
		}
	}
	return false
}

// flatten copies m, unwrapping {value, score} nodes.
func flatten(m map[string]any) Raw {
	out := make(Raw, len(m))
	for k, v := range m {
		out[k] = extract.ValueOf(v)
	}
	return out
}

// flattenInto copies the scalar members of src into dst, unwrapping value
// nodes and overwriting existing keys.
func flattenInto(dst Raw, src any) {
	m, ok := src.(map[string]any)
	if !ok {
		return
	}
	for k, v := range m {
		dst[k] = extract.ValueOf(v)
	}
}

func topLevelScalars(item map[string]any) Raw {
	out := make(Raw)
	for k, v := range item {
		switch t := v.(type) {
		case map[string]any:
			if _, isNode := t[extract.ValueMarker]; isNode {
				out[k] = extract.ValueOf(t)
			}
		case []any:
		default:
			out[k] = v
		}
	}
	return out
}

// flattenStandard merges standard_facts, the 100% limit as building value,
// and building_details, later sections overwriting earlier ones.
func flattenStandard(item map[string]any) Raw {
	r := topLevelScalars(item)
	flattenInto(r, item["standard_facts"])
	if limits, ok := item["limits"].(map[string]any); ok {
		if v, ok := limits["100_pct_limit"]; ok {
			r["building_value"] = extract.ValueOf(v)
		}
	}
	flattenInto(r, item["building_details"])
	return r
}

func flattenAdvanced(item map[string]any) Raw {
	r := topLevelScalars(item)
	flattenInto(r, item["advanced_facts"])
	return r
}
