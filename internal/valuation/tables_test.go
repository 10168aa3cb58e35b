package valuation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables_AgeFactor(t *testing.T) {
	tables := DefaultTables()
	tests := []struct {
		age    int
		factor float64
		label  string
	}{
		{0, 1.0, "0-10"},
		{10, 1.0, "0-10"},
		{11, 1.05, "11-25"},
		{25, 1.05, "11-25"},
		{26, 1.10, "26-50"},
		{50, 1.10, "26-50"},
		{51, 1.15, "51-75"},
		{75, 1.15, "51-75"},
		{76, 1.20, "76+"},
		{200, 1.20, "76+"},
	}
	for _, tt := range tests {
		f, label := tables.AgeFactor(tt.age)
		assert.Equal(t, tt.factor, f, "age %d", tt.age)
		assert.Equal(t, tt.label, label, "age %d", tt.age)
	}
}

func TestTables_MergeByKey(t *testing.T) {
	base := DefaultTables()
	merged := base.Merge(Tables{
		ConstructionCosts: map[string]float64{"Frame": 130, "Log": 110},
		StateMultipliers:  map[string]float64{"il": 1.1},
		OccupancyFactors:  map[string]float64{"Office": 1.02},
	})

	assert.Equal(t, 130.0, merged.ConstructionCosts["Frame"])
	assert.Equal(t, 145.0, merged.ConstructionCosts["Masonry"])
	assert.Equal(t, 110.0, merged.ConstructionCosts["Log"])
	assert.Equal(t, "Frame", merged.ConstructionOrder[0])
	assert.Equal(t, "Log", merged.ConstructionOrder[len(merged.ConstructionOrder)-1])
	assert.Len(t, merged.OccupancyOrder, len(base.OccupancyOrder))
	assert.Equal(t, 1.1, merged.StateMultipliers["IL"])
	assert.Equal(t, 1.25, merged.StateMultipliers["CA"])
	assert.Equal(t, 1.02, merged.OccupancyFactors["Office"])
	assert.Equal(t, base.AgeBrackets, merged.AgeBrackets)
	assert.Equal(t, 0.95, merged.SprinklerFactor)
	require.NoError(t, merged.Validate())

	assert.Equal(t, 125.0, base.ConstructionCosts["Frame"], "base is not mutated")
	assert.Equal(t, 1.03, DefaultTables().StateMultipliers["IL"])
}

func TestTables_MergeExplicitOrder(t *testing.T) {
	merged := DefaultTables().Merge(Tables{
		OccupancyOrder:   []string{"Warehouse"},
		AgeBrackets:      []AgeBracket{{Label: "new", MaxAge: 30, Factor: 1}, {Label: "old", Factor: 1.3}},
		SprinklerFactor:  0.9,
		UnknownAge:       30,
		OccupancyFactors: map[string]float64{},
	})
	assert.Equal(t, "Warehouse", merged.OccupancyOrder[0])
	assert.Equal(t, "Office", merged.OccupancyOrder[1])
	f, label := merged.AgeFactor(31)
	assert.Equal(t, 1.3, f)
	assert.Equal(t, "old", label)
	assert.Equal(t, 0.9, merged.SprinklerFactor)
	assert.Equal(t, 30, merged.UnknownAge)
}

func TestTables_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{"zero state multiplier", func(t *Tables) { t.StateMultipliers["CA"] = 0 }},
		{"order names unknown class", func(t *Tables) { t.ConstructionOrder = append(t.ConstructionOrder, "Adobe") }},
		{"empty occupancy order", func(t *Tables) { t.OccupancyOrder = nil }},
		{"brackets descend", func(t *Tables) {
			t.AgeBrackets = []AgeBracket{{Label: "a", MaxAge: 20, Factor: 1}, {Label: "b", MaxAge: 10, Factor: 1}, {Label: "c", Factor: 1}}
		}},
		{"zero bracket factor", func(t *Tables) { t.AgeBrackets[0].Factor = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := DefaultTables()
			tt.mutate(&tables)
			assert.Error(t, tables.Validate())
		})
	}
	assert.NoError(t, DefaultTables().Validate())
}

func TestLoadTables(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	tables, err := LoadTables(write("ok.yaml", "construction_costs:\n  Frame: 140\nstate_multipliers:\n  tx: 0.95\nsprinkler_factor: 0.9\n"))
	require.NoError(t, err)
	assert.Equal(t, 140.0, tables.ConstructionCosts["Frame"])
	assert.Equal(t, 0.95, tables.StateMultipliers["TX"])
	assert.Equal(t, 0.9, tables.SprinklerFactor)

	tables, err = LoadTables(write("ok.json", `{"occupancy_factors": {"Data Center": 1.4}}`))
	require.NoError(t, err)
	assert.Equal(t, 1.4, tables.OccupancyFactors["Data Center"])
	assert.Contains(t, tables.OccupancyOrder, "Data Center")

	_, err = LoadTables(write("unknown.yaml", "bogus: 1\n"))
	assert.Error(t, err)

	_, err = LoadTables(write("invalid.yaml", "sprinkler_factor: 2\n"))
	assert.Error(t, err)

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
