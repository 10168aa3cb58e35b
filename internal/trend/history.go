// Package trend analyzes how property valuations move across policy
// periods.
package trend

import (
	"sort"
	"strings"

	"github.com/sells-group/intake-cli/internal/extract"
)

// UnknownLabel fills missing address, construction and location labels.
const UnknownLabel = "Unknown"

// PropertyHistory is one property's reported values by period.
type PropertyHistory struct {
	ID               string
	Address          string
	ConstructionType string
	Location         string
	Values           map[string]float64
	Calculated       map[string]float64
	CurrentRiskScore float64
}

// History is the normalized historical input.
type History struct {
	Periods    []string
	Properties map[string]*PropertyHistory
}

// IDs returns the property ids in sorted order.
func (h History) IDs() []string {
	ids := make([]string, 0, len(h.Properties))
	for id := range h.Properties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether h has nothing to analyze.
func (h History) Empty() bool {
	return len(h.Periods) == 0 || len(h.Properties) == 0
}

var valueKeys = []string{"building_value", "reported_value", "value"}

// ParseHistory reads one of the supported shapes, keeping at most
// maxPeriods most recent periods:
//
//	{"periods": [...], "properties": {id: {"values": {period: v}}}}
//	[{"year": "2023", "properties": [{property_id, building_value}]}, ...]
//	{"2023": {"properties": [...]}, "2024": {...}}
func ParseHistory(data any, maxPeriods int) History {
	h := History{Properties: map[string]*PropertyHistory{}}
	switch d := data.(type) {
	case map[string]any:
		if _, ok := d["periods"]; ok {
			if _, ok := d["properties"]; ok {
				parsePeriodTable(&h, d, maxPeriods)
				return h
			}
		}
		parseYearKeys(&h, d, maxPeriods)
	case []any:
		parseYearList(&h, d, maxPeriods)
	}
	return h
}

func parsePeriodTable(h *History, d map[string]any, maxPeriods int) {
	raw, _ := d["periods"].([]any)
	var periods []string
	for _, p := range raw {
		if s, ok := extract.ParseString(p); ok {
			periods = append(periods, s)
		}
	}
	h.Periods = lastN(periods, maxPeriods)

	add := func(id string, m map[string]any) {
		if id == "" {
			return
		}
		ph := newHistory(id, m)
		values, _ := m["values"].(map[string]any)
		for _, p := range h.Periods {
			if f, ok := extract.ParseFloat(extract.ValueOf(values[p])); ok {
				ph.Values[p] = f
			}
		}
		h.Properties[id] = ph
	}
	switch props := d["properties"].(type) {
	case map[string]any:
		for id, v := range props {
			if m, ok := v.(map[string]any); ok {
				add(id, m)
			}
		}
	case []any:
		for _, v := range props {
			if m, ok := v.(map[string]any); ok {
				id, _ := extract.ParseString(m["property_id"])
				add(id, m)
			}
		}
	}
}

func parseYearList(h *History, items []any, maxPeriods int) {
	type entry struct {
		year  string
		props []any
	}
	var entries []entry
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return
		}
		year, ok := extract.ParseString(m["year"])
		if !ok {
			return
		}
		props, _ := m["properties"].([]any)
		entries = append(entries, entry{year, props})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].year < entries[j].year })
	if maxPeriods > 0 && len(entries) > maxPeriods {
		entries = entries[len(entries)-maxPeriods:]
	}
	for _, e := range entries {
		h.Periods = append(h.Periods, e.year)
		addPeriod(h, e.year, e.props)
	}
}

func parseYearKeys(h *History, d map[string]any, maxPeriods int) {
	var years []string
	for k := range d {
		if isDigits(k) || strings.HasPrefix(k, "20") {
			years = append(years, k)
		}
	}
	sort.Strings(years)
	h.Periods = lastN(years, maxPeriods)
	for _, y := range h.Periods {
		if m, ok := d[y].(map[string]any); ok {
			props, _ := m["properties"].([]any)
			addPeriod(h, y, props)
		}
	}
}

func addPeriod(h *History, period string, props []any) {
	for _, p := range props {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		id, ok := extract.ParseString(m["property_id"])
		if !ok {
			continue
		}
		ph, ok := h.Properties[id]
		if !ok {
			ph = newHistory(id, m)
			if loc, ok := extract.ParseString(m["state"]); ok {
				ph.Location = loc
			}
			h.Properties[id] = ph
		}
		if f, ok := firstValue(m); ok {
			ph.Values[period] = f
		}
	}
}

func newHistory(id string, m map[string]any) *PropertyHistory {
	return &PropertyHistory{
		ID:               id,
		Address:          label(m["address"]),
		ConstructionType: label(m["construction_type"]),
		Location:         label(m["location"]),
		Values:           map[string]float64{},
	}
}

func firstValue(m map[string]any) (float64, bool) {
	for _, k := range valueKeys {
		if f, ok := extract.ParseFloat(extract.ValueOf(m[k])); ok {
			return f, true
		}
	}
	return 0, false
}

func label(v any) string {
	if s, ok := extract.ParseString(extract.ValueOf(v)); ok {
		return s
	}
	return UnknownLabel
}

func lastN(s []string, n int) []string {
	if n > 0 && len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
