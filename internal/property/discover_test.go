package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		doc      any
		standard int
		advanced int
	}{
		{"structured under submission_data", map[string]any{
			"submission_data": map[string]any{
				"Property":          []any{map[string]any{"standard_facts": map[string]any{"location_address": "1 A St"}}},
				"Advanced_Property": []any{map[string]any{"advanced_facts": map[string]any{"roof_age": 3}}, "junk"},
			},
		}, 1, 1},
		{"structured at root", map[string]any{
			"Property": []any{
				map[string]any{"standard_facts": map[string]any{"location_address": "1 A St"}},
				map[string]any{"standard_facts": map[string]any{"location_address": "2 B St"}},
			},
		}, 2, 0},
		{"properties list", map[string]any{
			"properties": []any{map[string]any{"address": "1 A St", "building_value": 10}},
		}, 1, 0},
		{"nested locations", map[string]any{
			"data": map[string]any{"locations": []any{map[string]any{"address": "1 A St"}, map[string]any{"address": "2 B St"}}},
		}, 2, 0},
		{"sov keyed by id", map[string]any{
			"sov": map[string]any{"LOC-1": map[string]any{"sqft": 100}, "LOC-2": map[string]any{"sqft": 200}},
		}, 2, 0},
		{"document is one property", map[string]any{"address": "1 A St", "square_footage": 100}, 1, 0},
		{"document is a list", []any{map[string]any{"address": "1 A St"}}, 1, 0},
		{"dict of properties", map[string]any{
			"HQ":        map[string]any{"address": "1 A St", "building_value": 5},
			"Warehouse": map[string]any{"address": "2 B St", "building_value": 6},
		}, 2, 0},
		{"dict of unrelated mappings", map[string]any{"Common": map[string]any{"Firmographics": map[string]any{}}}, 0, 0},
		{"scalar", "hello", 0, 0},
		{"nil", nil, 0, 0},
		{"empty sections", map[string]any{"Property": []any{}, "Advanced Property": "n/a"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Discovered
			require.NotPanics(t, func() { d = Discover(tt.doc) })
			assert.Len(t, d.Standard, tt.standard)
			assert.Len(t, d.Advanced, tt.advanced)
		})
	}
}

func TestDiscover_KeyedMapAssignsIDs(t *testing.T) {
	d := Discover(map[string]any{
		"sov": map[string]any{
			"LOC-2": map[string]any{"sqft": 200},
			"LOC-1": map[string]any{"sqft": 100, "id": "custom"},
		},
	})
	require.Len(t, d.Standard, 2)
	assert.Equal(t, "custom", d.Standard[0]["id"])
	assert.Equal(t, "LOC-2", d.Standard[1]["property_id"])

	recs := Collect(map[string]any{"sov": map[string]any{"LOC-2": map[string]any{"sqft": 200}}}, Options{})
	require.Len(t, recs, 1)
	assert.Equal(t, "LOC-2", recs[0].ID)
	assert.Equal(t, 200.0, recs[0].SquareFootage)
}

func TestRaw_Normalize(t *testing.T) {
	r := Raw{
		"street":       "77 River Rd",
		"city":         "Austin",
		"state_code":   "tx",
		"zip":          78701,
		"sq_ft":        "12,500",
		"value":        map[string]any{"value": "$2,000,000", "score": 80},
		"year":         "1975",
		"construction": "Joisted Masonry",
		"use":          "Warehouse",
		"sprinkler":    "yes",
		"roof":         "Built-up",
		"roof_year":    2001,
		"bi":           "not a number",
		"income":       50000,
	}
	rec := r.Normalize(SectionSOV)

	assert.Equal(t, "77 River Rd, Austin, tx, 78701", rec.Address)
	assert.Equal(t, "TX", rec.State)
	assert.Equal(t, 12500.0, rec.SquareFootage)
	assert.Equal(t, 2000000.0, rec.BuildingValue)
	assert.Equal(t, 1975, rec.YearBuilt)
	assert.Equal(t, "Joisted Masonry", rec.ConstructionType)
	assert.Equal(t, "Warehouse", rec.Occupancy)
	assert.True(t, rec.IsSprinklered())
	assert.Equal(t, "Built-up", rec.RoofType)
	assert.Zero(t, rec.RoofAge)
	assert.Equal(t, 2001, rec.RoofYear)
	assert.Equal(t, 50000.0, rec.BusinessIncomeValue, "unparseable aliases are skipped")
	assert.Equal(t, []Section{SectionSOV}, rec.Sections)
}

func TestRaw_NormalizeNumericRoof(t *testing.T) {
	rec := Raw{"roof": 14}.Normalize(SectionStandard)
	assert.Equal(t, 14, rec.RoofAge)
	assert.Empty(t, rec.RoofType)
	assert.Equal(t, UnknownAddress, rec.Address)
	assert.Empty(t, rec.State)
}

func TestCollect_DefaultStateAndSOV(t *testing.T) {
	doc := map[string]any{"properties": []any{map[string]any{"address": "1 Unknown Way", "sqft": 100}}}
	extra := FromSOV([]map[string]string{
		{"Address": "500 Commerce St, Dallas, TX 75202", "Square Feet": "20,000", "Notes": " "},
		{"Address": "", "Notes": ""},
	})
	require.Len(t, extra, 1)

	recs := Collect(doc, Options{DefaultState: "OH", Extra: extra})
	require.Len(t, recs, 2)
	assert.Equal(t, "OH", recs[0].State)
	assert.Equal(t, "TX", recs[1].State)
	assert.Equal(t, 20000.0, recs[1].SquareFootage)
	assert.Equal(t, []Section{SectionSOV}, recs[1].Sections)
}
