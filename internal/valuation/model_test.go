package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/property"
)

func fixedNow() time.Time { return time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC) }

func newTestModel(t *testing.T, mutate ...func(*Config)) *Model {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Now = fixedNow
	for _, fn := range mutate {
		fn(&cfg)
	}
	m, err := NewModel(cfg)
	require.NoError(t, err)
	return m
}

func officeIL(building float64) property.Record {
	return property.Record{
		ID:               "P1",
		Address:          "100 Main St, Chicago, IL 60601",
		State:            "IL",
		BuildingValue:    building,
		SquareFootage:    10000,
		YearBuilt:        2020,
		ConstructionType: "Frame",
		Occupancy:        "Office",
	}
}

func TestEstimate_MissingSquareFootageSkipsFormula(t *testing.T) {
	m := newTestModel(t)
	res := m.Estimate(property.Record{ID: "P9", BuildingValue: 500000, ConstructionType: "Frame", State: "IL"})

	assert.Equal(t, 500000.0, res.CalculatedValue)
	assert.Equal(t, []Flag{FlagMissingSquareFootage}, res.RiskFlags)
	assert.Nil(t, res.Calculation)
	assert.Empty(t, res.Citations)
	assert.Zero(t, res.VariancePercentage)
	// missing data 10 plus the unknown-age contribution 20/100*15
	assert.Equal(t, 13.0, res.RiskScore)
	assert.Equal(t, []string{"Verify square footage - current value is missing or zero"}, res.Recommendations)
}

func TestEstimate_FormulaIsExact(t *testing.T) {
	m := newTestModel(t)
	sqft := 10000.0
	want := sqft * 125 * 1.03 * 1.0 * 1.0 * 1.0

	res := m.Estimate(officeIL(want))

	assert.Equal(t, want, res.CalculatedValue)
	require.NotNil(t, res.Calculation)
	assert.Equal(t, "Frame", res.Calculation.ConstructionClass)
	assert.Equal(t, 125.0, res.Calculation.BaseCostPerSqft)
	assert.Equal(t, 1.03, res.Calculation.RegionalMultiplier)
	assert.Equal(t, "Office", res.Calculation.OccupancyClass)
	assert.Equal(t, "0-10", res.Calculation.AgeBracket)
	assert.Equal(t, 1.0, res.Calculation.SprinklerFactor)
	assert.Equal(t, 5, res.Details.BuildingAge)
	assert.Empty(t, res.RiskFlags)
	assert.Zero(t, res.VariancePercentage)
	assert.Equal(t, 0.75, res.RiskScore)
	assert.Len(t, res.Citations, 4)
	assert.Equal(t, "Age factor for building 5 years old (bracket: 0-10)", res.Citations[3].Description)

	again := m.Estimate(officeIL(want))
	assert.Equal(t, res.CalculatedValue, again.CalculatedValue)
}

func TestEstimate_Flags(t *testing.T) {
	yes := true
	tests := []struct {
		name      string
		rec       property.Record
		flags     []Flag
		score     float64
		variance  float64
		recsCount int
		contains  []string
	}{
		{
			name:      "underinsured",
			rec:       officeIL(500000),
			flags:     []Flag{FlagHighVariance, FlagPotentialUnderinsurance},
			score:     55.75,
			variance:  157.5,
			recsCount: 2,
			contains:  []string{"$787,500", "157.5%", "Schedule a professional appraisal"},
		},
		{
			name:      "overinsured",
			rec:       officeIL(2575000),
			flags:     []Flag{FlagHighVariance, FlagPotentialOverinsurance},
			score:     40.75,
			variance:  -50,
			recsCount: 1,
			contains:  []string{"overinsured by approximately $1,287,500", "50.0%"},
		},
		{
			name:      "missing building value with footage",
			rec:       officeIL(0),
			flags:     []Flag{FlagMissingBuildingValue},
			score:     10.75,
			recsCount: 1,
			contains:  []string{"estimated replacement cost is $1,287,500"},
		},
		{
			name: "old building, aging roof, low contents",
			rec: func() property.Record {
				r := officeIL(1400000)
				r.YearBuilt = 1960
				r.Sprinklered = &yes
				r.RoofAge = 30
				r.ContentValue = 100000
				return r
			}(),
			flags:     []Flag{FlagOlderConstruction, FlagAgingRoof, FlagLowContentRatio},
			score:     24.75,
			variance:  0.47,
			recsCount: 4,
			contains:  []string{"(65 years old)", "Roof age (30 years)", "may be underreported"},
		},
		{
			name: "high contents",
			rec: func() property.Record {
				r := officeIL(1287500)
				r.ContentValue = 1100000
				return r
			}(),
			flags:     []Flag{FlagHighContentRatio},
			score:     5.75,
			recsCount: 1,
			contains:  []string{"unusually high"},
		},
		{
			name: "roof age from roof year",
			rec: func() property.Record {
				r := officeIL(1287500)
				r.RoofYear = 2000
				return r
			}(),
			flags:     []Flag{FlagAgingRoof},
			score:     10.75,
			recsCount: 1,
			contains:  []string{"Roof age (25 years)"},
		},
	}
	m := newTestModel(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Estimate(tt.rec)
			assert.Equal(t, tt.flags, res.RiskFlags)
			assert.InDelta(t, tt.score, res.RiskScore, 1e-9)
			assert.InDelta(t, tt.variance, res.VariancePercentage, 1e-9)
			require.Len(t, res.Recommendations, tt.recsCount)
			joined := ""
			for _, r := range res.Recommendations {
				joined += r + "\n"
			}
			for _, s := range tt.contains {
				assert.Contains(t, joined, s)
			}
		})
	}
}

func TestEstimate_RiskScoreCapped(t *testing.T) {
	m := newTestModel(t, func(c *Config) { c.Weights.Underinsurance = 90 })
	r := officeIL(100000)
	r.YearBuilt = 1900
	r.RoofAge = 40
	r.ContentValue = 90000
	res := m.Estimate(r)
	assert.Equal(t, 100.0, res.RiskScore)
}

func TestEstimate_FreeTextClassesFollowTaxonomyOrder(t *testing.T) {
	m := newTestModel(t)
	rec := officeIL(1000000)
	rec.ConstructionType = "Reinforced Concrete structure"
	rec.Occupancy = "Retail Shopping Center"

	res := m.Estimate(rec)
	require.NotNil(t, res.Calculation)
	assert.Equal(t, "Concrete", res.Calculation.ConstructionClass)
	assert.Equal(t, 190.0, res.Calculation.BaseCostPerSqft)
	assert.Equal(t, "Retail", res.Calculation.OccupancyClass)
	assert.Equal(t, 1.1, res.Calculation.OccupancyFactor)
}

func TestModel_Match(t *testing.T) {
	m := newTestModel(t)
	unknown := newTestModel(t, func(c *Config) { c.Fallback = FallbackUnknown })
	construction := m.tables.ConstructionOrder
	occupancy := m.tables.OccupancyOrder

	tests := []struct {
		name     string
		text     string
		taxonomy []string
		want     string
		unknown  string
	}{
		{"exact any case", "masonry", construction, "Masonry", "Masonry"},
		{"exact beats earlier contained entry", "Masonry Noncombustible", construction, "Masonry Noncombustible", "Masonry Noncombustible"},
		{"first contained entry in order", "Wood frame construction", construction, "Frame", "Frame"},
		{"plain concrete precedes reinforced", "Reinforced Concrete structure", construction, "Concrete", "Concrete"},
		{"noncombustible precedes masonry noncombustible", "Masonry Noncombustible bldg", construction, "Noncombustible", "Noncombustible"},
		{"text inside entry", "reinforced", construction, "Reinforced Concrete", "Reinforced Concrete"},
		{"entry inside text", "fire resistive construction", construction, "Fire Resistive", "Fire Resistive"},
		{"occupancy in order", "Retail Shopping Center", occupancy, "Retail", "Retail"},
		{"office precedes medical", "Medical Office", occupancy, "Office", "Office"},
		{"unmatched", "geodesic dome", construction, "Frame", Unknown},
		{"blank", "  ", occupancy, "Office", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.match(tt.text, tt.taxonomy))
			assert.Equal(t, tt.unknown, unknown.match(tt.text, tt.taxonomy))
		})
	}
}

func TestEstimate_UnknownFallbackIsNeutral(t *testing.T) {
	m := newTestModel(t, func(c *Config) { c.Fallback = FallbackUnknown })
	r := officeIL(0)
	r.ConstructionType = "geodesic dome"
	r.Occupancy = "observatory"
	r.State = "ZZ"

	res := m.Estimate(r)
	require.NotNil(t, res.Calculation)
	assert.Equal(t, Unknown, res.Calculation.ConstructionClass)
	assert.Equal(t, DefaultBaseCost, res.Calculation.BaseCostPerSqft)
	assert.Equal(t, 1.0, res.Calculation.OccupancyFactor)
	assert.Equal(t, 1.0, res.Calculation.RegionalMultiplier)
	assert.Equal(t, 10000*DefaultBaseCost, res.CalculatedValue)
}

func TestNewModel_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad fallback", func(c *Config) { c.Fallback = "closest" }},
		{"bad sprinkler factor", func(c *Config) { c.Tables.SprinklerFactor = 1.5 }},
		{"negative cost", func(c *Config) { c.Tables.ConstructionCosts["Frame"] = -1 }},
		{"thresholds inverted", func(c *Config) { c.Thresholds.Overinsurance = 50 }},
		{"empty brackets", func(c *Config) { c.Tables.AgeBrackets = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewModel(cfg)
			assert.Error(t, err)
		})
	}

	m, err := NewModel(Config{Tables: DefaultTables(), Thresholds: DefaultThresholds(), Weights: DefaultWeights()})
	require.NoError(t, err)
	assert.Equal(t, FallbackFirst, m.fb)
	assert.NotNil(t, m.now)
}
