package valuation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/property"
)

func TestPortfolio(t *testing.T) {
	results := []Result{
		{PropertyID: "A", ReportedValue: 1000000, CalculatedValue: 1100000, RiskScore: 10,
			Details: Details{ContentValue: 200000, BusinessIncomeValue: 50000}},
		{PropertyID: "B", ReportedValue: 500000, CalculatedValue: 800000, RiskScore: 40,
			RiskFlags: []Flag{FlagHighVariance}, Details: Details{ContentValue: 100000}},
		{PropertyID: "C", ReportedValue: 500000, CalculatedValue: 600000, RiskScore: 60},
		{PropertyID: "D", ReportedValue: 0, CalculatedValue: 0, RiskScore: 13,
			RiskFlags: []Flag{FlagMissingSquareFootage}},
	}
	p := Portfolio(results)

	assert.Equal(t, 4, p.Summary.TotalProperties)
	assert.Equal(t, 3, p.Summary.PropertiesWithRiskFlags)
	require.Len(t, p.Anomalies, 3)
	assert.Equal(t, []string{"C", "B", "D"}, []string{p.Anomalies[0].PropertyID, p.Anomalies[1].PropertyID, p.Anomalies[2].PropertyID})

	assert.Equal(t, 2000000.0, p.Totals.ReportedTotal)
	assert.Equal(t, 2500000.0, p.Totals.CalculatedTotal)
	assert.Equal(t, 500000.0, p.Totals.VarianceAmount)
	assert.Equal(t, 25.0, p.Totals.VariancePercentage)
	assert.Equal(t, 80.0, p.Totals.InsuranceToValueRatio)
	assert.Equal(t, 500000.0, p.Summary.AvgPropertyValue)
	assert.Equal(t, 300000.0, p.Summary.TotalContentValue)
	assert.Equal(t, 50000.0, p.Summary.TotalBusinessIncomeValue)
	assert.Equal(t, QualityPoor, p.Summary.ValuationQuality)
}

func TestPortfolio_Empty(t *testing.T) {
	p := Portfolio(nil)
	assert.Equal(t, QualityUnknown, p.Summary.ValuationQuality)
	assert.NotNil(t, p.Anomalies)
	assert.Zero(t, p.Totals.InsuranceToValueRatio)
}

func TestQuality(t *testing.T) {
	tests := []struct {
		variance  float64
		anomalies int
		total     int
		want      string
	}{
		{5, 0, 10, QualityExcellent},
		{-9.99, 0, 20, QualityExcellent},
		{5, 1, 10, QualityGood},
		{14, 1, 10, QualityGood},
		{20, 2, 10, QualityFair},
		{24, 0, 10, QualityFair},
		{25, 0, 10, QualityPoor},
		{0, 3, 10, QualityPoor},
		{0, 0, 0, QualityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Quality(tt.variance, tt.anomalies, tt.total), "%v %d/%d", tt.variance, tt.anomalies, tt.total)
	}
}

func newTestTool(t *testing.T) *Tool {
	t.Helper()
	return NewTool(newTestModel(t))
}

func TestTool_Analyze(t *testing.T) {
	doc := map[string]any{
		"submission_data": map[string]any{
			"Property": []any{
				map[string]any{
					"standard_facts": map[string]any{
						"location_address":               map[string]any{"value": "100 Main St, Chicago, IL 60601", "score": 95},
						"total_building_area_sqft":       map[string]any{"value": "10,000", "score": 90},
						"location_occupancy_description": "Office",
					},
					"limits":           map[string]any{"100_pct_limit": map[string]any{"value": "$1,287,500"}},
					"building_details": map[string]any{"construction_type": "Frame", "year_built": 2020},
				},
				map[string]any{
					"standard_facts": map[string]any{
						"location_address": "9 Elm Ave, Peoria, IL 61602",
					},
					"limits": map[string]any{"100_pct_limit": map[string]any{"value": 400000}},
				},
			},
		},
	}

	rep := newTestTool(t).Analyze(doc, Options{})
	require.True(t, rep.OK())
	require.Len(t, rep.Valuations, 2)

	first := rep.Valuations[0]
	assert.Equal(t, "PROP_1", first.PropertyID)
	sqft := 10000.0
	assert.Equal(t, sqft*125*1.03*1.0*1.0*1.0, first.CalculatedValue)
	assert.Empty(t, first.RiskFlags)

	second := rep.Valuations[1]
	assert.Equal(t, "PROP_2", second.PropertyID)
	assert.Equal(t, []Flag{FlagMissingSquareFootage}, second.RiskFlags)
	assert.Equal(t, 400000.0, second.CalculatedValue)

	assert.Equal(t, 2, rep.Summary.TotalProperties)
	assert.Equal(t, 1, rep.Summary.PropertiesWithRiskFlags)
	assert.Equal(t, 1687500.0, rep.Totals.ReportedTotal)
	assert.Equal(t, 100.0, rep.Totals.InsuranceToValueRatio)
	require.NotNil(t, rep.Citations)
	assert.Equal(t, "RSMeans", rep.Citations.RegionalFactors.Name)
	assert.Empty(t, rep.Error)
}

func TestTool_AnalyzeOptions(t *testing.T) {
	doc := map[string]any{"properties": []any{
		map[string]any{"address": "1 Lake Rd", "sqft": 1000, "building_value": 1},
	}}
	extra := property.FromSOV([]map[string]string{{"Address": "2 Hill Rd, Austin, TX", "Square Feet": "500"}})

	rep := newTestTool(t).Analyze(doc, Options{SkipRecommendations: true, SkipCitations: true, DefaultState: "OH", Extra: extra})
	require.True(t, rep.OK())
	require.Len(t, rep.Valuations, 2)
	assert.Nil(t, rep.Citations)
	for _, v := range rep.Valuations {
		assert.Empty(t, v.Recommendations)
		assert.Nil(t, v.Citations)
	}
	assert.Equal(t, "OH", rep.Valuations[0].Details.State)
	assert.Equal(t, 0.98, rep.Valuations[0].Calculation.RegionalMultiplier)
	assert.Equal(t, "TX", rep.Valuations[1].Details.State)
}

func TestTool_AnalyzeFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		kind error
		msg  string
	}{
		{"nil", nil, ErrInputMissing, MsgNoSubmissionData},
		{"empty map", map[string]any{}, ErrInputMissing, MsgNoSubmissionData},
		{"no properties", map[string]any{"Common": map[string]any{"Firmographics": map[string]any{"company_name": "Acme"}}}, ErrNoProperties, MsgNoProperties},
		{"scalar", 42, ErrNoProperties, MsgNoProperties},
		{"wrong types", map[string]any{"properties": "many", "Property": 7}, ErrNoProperties, MsgNoProperties},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rep Report
			require.NotPanics(t, func() { rep = newTestTool(t).Analyze(tt.doc, Options{}) })
			assert.False(t, rep.OK())
			assert.True(t, errors.Is(rep.Err, tt.kind))
			assert.Equal(t, tt.msg, rep.Error)
			assert.NotNil(t, rep.Valuations)
			assert.NotNil(t, rep.Anomalies)
			assert.Zero(t, rep.Summary.TotalProperties)
		})
	}
}
