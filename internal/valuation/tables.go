// Package valuation estimates building replacement cost and flags
// valuation risks for property records.
package valuation

import (
	"bytes"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AgeBracket applies Factor to buildings up to MaxAge years old. A MaxAge
// of 0 on the last bracket means no upper bound.
type AgeBracket struct {
	Label  string  `yaml:"label" json:"label"`
	MaxAge int     `yaml:"max_age" json:"max_age"`
	Factor float64 `yaml:"factor" json:"factor"`
}

// Tables are the cost reference data. They are read-only after
// construction and safe to share.
type Tables struct {
	ConstructionCosts map[string]float64 `yaml:"construction_costs" json:"construction_costs"`
	StateMultipliers  map[string]float64 `yaml:"state_multipliers" json:"state_multipliers"`
	OccupancyFactors  map[string]float64 `yaml:"occupancy_factors" json:"occupancy_factors"`
	AgeBrackets       []AgeBracket       `yaml:"age_brackets" json:"age_brackets"`
	SprinklerFactor   float64            `yaml:"sprinkler_factor" json:"sprinkler_factor"`
	UnknownAge        int                `yaml:"unknown_age" json:"unknown_age"`

	// Order of the taxonomy entries; the first entry is the fallback match.
	ConstructionOrder []string `yaml:"construction_order" json:"construction_order"`
	OccupancyOrder    []string `yaml:"occupancy_order" json:"occupancy_order"`
}

// DefaultBaseCost is used when a construction class has no cost entry.
const DefaultBaseCost = 125.0

var defaultConstruction = []struct {
	name string
	cost float64
}{
	{"Frame", 125},
	{"Joisted Masonry", 145},
	{"Noncombustible", 170},
	{"Masonry Noncombustible", 190},
	{"Modified Fire Resistive", 220},
	{"Fire Resistive", 250},
	{"Wood Frame", 125},
	{"Masonry", 145},
	{"Steel", 170},
	{"Concrete", 190},
	{"Reinforced Concrete", 250},
}

var defaultOccupancy = []struct {
	name   string
	factor float64
}{
	{"Office", 1.0},
	{"Retail", 1.1},
	{"Warehouse", 0.85},
	{"Manufacturing", 1.15},
	{"Healthcare", 1.3},
	{"Hospitality", 1.2},
	{"Education", 1.25},
	{"Restaurant", 1.15},
	{"Industrial", 1.10},
	{"Residential", 1.05},
	{"Mixed Use", 1.08},
	{"Apartment", 1.05},
	{"Shopping Center", 1.12},
	{"Hotel", 1.2},
	{"Medical", 1.25},
	{"Storage", 0.85},
}

var defaultStates = map[string]float64{
	"AL": 0.87, "AK": 1.23, "AZ": 0.92, "AR": 0.85, "CA": 1.25,
	"CO": 1.05, "CT": 1.15, "DE": 1.07, "FL": 0.95, "GA": 0.90,
	"HI": 1.30, "ID": 0.92, "IL": 1.03, "IN": 0.95, "IA": 0.93,
	"KS": 0.90, "KY": 0.93, "LA": 0.88, "ME": 1.02, "MD": 1.08,
	"MA": 1.18, "MI": 1.00, "MN": 1.03, "MS": 0.85, "MO": 0.95,
	"MT": 0.95, "NE": 0.90, "NV": 1.05, "NH": 1.05, "NJ": 1.15,
	"NM": 0.90, "NY": 1.20, "NC": 0.90, "ND": 0.95, "OH": 0.98,
	"OK": 0.87, "OR": 1.08, "PA": 1.05, "RI": 1.10, "SC": 0.88,
	"SD": 0.90, "TN": 0.88, "TX": 0.90, "UT": 0.95, "VT": 1.03,
	"VA": 0.95, "WA": 1.10, "WV": 0.97, "WI": 1.02, "WY": 0.95,
	"DC": 1.15,
}

// DefaultTables returns a fresh copy of the built-in reference data.
func DefaultTables() Tables {
	t := Tables{
		ConstructionCosts: make(map[string]float64, len(defaultConstruction)),
		StateMultipliers:  make(map[string]float64, len(defaultStates)),
		OccupancyFactors:  make(map[string]float64, len(defaultOccupancy)),
		AgeBrackets: []AgeBracket{
			{Label: "0-10", MaxAge: 10, Factor: 1.0},
			{Label: "11-25", MaxAge: 25, Factor: 1.05},
			{Label: "26-50", MaxAge: 50, Factor: 1.10},
			{Label: "51-75", MaxAge: 75, Factor: 1.15},
			{Label: "76+", Factor: 1.20},
		},
		SprinklerFactor: 0.95,
		UnknownAge:      20,
	}
	for _, c := range defaultConstruction {
		t.ConstructionCosts[c.name] = c.cost
		t.ConstructionOrder = append(t.ConstructionOrder, c.name)
	}
	for _, o := range defaultOccupancy {
		t.OccupancyFactors[o.name] = o.factor
		t.OccupancyOrder = append(t.OccupancyOrder, o.name)
	}
	for k, v := range defaultStates {
		t.StateMultipliers[k] = v
	}
	return t
}

// Merge returns t with o applied key by key. New taxonomy entries are
// appended to the order; a non-empty bracket list replaces the brackets;
// non-zero scalars replace t's.
func (t Tables) Merge(o Tables) Tables {
	out := Tables{
		ConstructionCosts: mergeFactors(t.ConstructionCosts, o.ConstructionCosts),
		StateMultipliers:  mergeFactors(t.StateMultipliers, nil),
		OccupancyFactors:  mergeFactors(t.OccupancyFactors, o.OccupancyFactors),
		AgeBrackets:       append([]AgeBracket(nil), t.AgeBrackets...),
		SprinklerFactor:   t.SprinklerFactor,
		UnknownAge:        t.UnknownAge,
		ConstructionOrder: mergeOrder(t.ConstructionOrder, o.ConstructionOrder, o.ConstructionCosts),
		OccupancyOrder:    mergeOrder(t.OccupancyOrder, o.OccupancyOrder, o.OccupancyFactors),
	}
	for k, v := range o.StateMultipliers {
		out.StateMultipliers[strings.ToUpper(k)] = v
	}
	if len(o.AgeBrackets) > 0 {
		out.AgeBrackets = append([]AgeBracket(nil), o.AgeBrackets...)
	}
	if o.SprinklerFactor != 0 {
		out.SprinklerFactor = o.SprinklerFactor
	}
	if o.UnknownAge != 0 {
		out.UnknownAge = o.UnknownAge
	}
	return out
}

func mergeFactors(base, override map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// mergeOrder keeps base's order, moves an explicit order to the front, and
// appends keys new to base in sorted order.
func mergeOrder(base, explicit []string, added map[string]float64) []string {
	seen := make(map[string]bool, len(base)+len(added))
	var out []string
	push := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range explicit {
		push(k)
	}
	for _, k := range base {
		push(k)
	}
	var fresh []string
	for k := range added {
		if !seen[k] {
			fresh = append(fresh, k)
		}
	}
	sort.Strings(fresh)
	for _, k := range fresh {
		push(k)
	}
	return out
}

// Validate checks that every factor is positive and the brackets ascend.
func (t Tables) Validate() error {
	var errs []string
	check := func(table string, m map[string]float64) {
		for k, v := range m {
			if v <= 0 {
				errs = append(errs, table+"."+k+" must be positive")
			}
		}
	}
	check("construction_costs", t.ConstructionCosts)
	check("state_multipliers", t.StateMultipliers)
	check("occupancy_factors", t.OccupancyFactors)
	if len(t.ConstructionOrder) == 0 || len(t.OccupancyOrder) == 0 {
		errs = append(errs, "construction and occupancy taxonomies must not be empty")
	}
	for _, k := range t.ConstructionOrder {
		if _, ok := t.ConstructionCosts[k]; !ok {
			errs = append(errs, "construction_order names unknown class "+k)
		}
	}
	for _, k := range t.OccupancyOrder {
		if _, ok := t.OccupancyFactors[k]; !ok {
			errs = append(errs, "occupancy_order names unknown occupancy "+k)
		}
	}
	if len(t.AgeBrackets) == 0 {
		errs = append(errs, "age_brackets must not be empty")
	}
	prev := -1
	for i, b := range t.AgeBrackets {
		if b.Factor <= 0 {
			errs = append(errs, "age bracket "+b.Label+" factor must be positive")
		}
		last := i == len(t.AgeBrackets)-1
		if !last && b.MaxAge <= prev {
			errs = append(errs, "age brackets must ascend")
		}
		prev = b.MaxAge
	}
	if t.SprinklerFactor <= 0 || t.SprinklerFactor > 1 {
		errs = append(errs, "sprinkler_factor must be in (0, 1]")
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("valuation: invalid tables: %s", strings.Join(errs, "; "))
	}
	return nil
}

// AgeFactor returns the bracket factor and label for a building age.
func (t Tables) AgeFactor(age int) (float64, string) {
	for i, b := range t.AgeBrackets {
		if age <= b.MaxAge || (i == len(t.AgeBrackets)-1) {
			return b.Factor, b.Label
		}
	}
	return 1.0, ""
}

// LoadTables reads a YAML or JSON tables override and merges it over
// DefaultTables.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, eris.Wrapf(err, "valuation: read tables %s", path)
	}
	var o Tables
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		return Tables{}, eris.Wrapf(err, "valuation: parse tables %s", path)
	}
	t := DefaultTables().Merge(o)
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}
