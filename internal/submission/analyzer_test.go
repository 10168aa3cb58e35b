package submission

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/completeness"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/quality"
	"github.com/sells-group/intake-cli/internal/recommend"
)

func vs(v any, score float64) map[string]any {
	return map[string]any{"value": v, "score": score}
}

// analyzerDoc builds a submission with every default field populated at
// the given confidence.
func analyzerDoc(score float64) map[string]any {
	return map[string]any{
		"submission_data": map[string]any{
			"Common": map[string]any{
				"Firmographics": map[string]any{
					"company_name":      vs("Acme Widgets LLC", score),
					"website":           vs("acme.example", score),
					"address_1":         vs("100 Main St", score),
					"city":              vs("Chicago", score),
					"state":             vs("IL", score),
					"postal_code":       vs("60601", score),
					"year_in_business":  vs(1998, score),
					"quote_target_date": vs("2026-11-01", score),
					"primary_naics_2017": []any{
						map[string]any{"code": "541511", "desc": "Custom Computer Programming Services"},
					},
					"primary_sic": []any{map[string]any{"code": "7371"}},
				},
				"Legal_Entity_Type": "LLC",
				"Product Details": map[string]any{
					"policy_inception_date":    vs("2026-12-01", score),
					"end_date":                 vs("2027-12-01", score),
					"document_date":            vs("2026-10-01", score),
					"lob":                      vs("General Liability", score),
					"submission_received_date": vs("2026-10-02", score),
					"target_premium":           vs(25000, score),
					"normalized_product":       "General Liability",
				},
				"Broker_Details": map[string]any{
					"broker_contact_points": vs("Jane Broker", score),
					"broker_name":           vs("Lakeside Brokerage", score),
					"broker_address":        vs("1 Wacker Dr", score),
					"broker_city":           vs("Chicago", score),
					"broker_postal_code":    vs("60606", score),
					"broker_state":          vs("IL", score),
					"broker_email":          vs("jane@lakeside.example", score),
				},
				"Limits_and_Coverages": map[string]any{
					"100_pct_limit": map[string]any{"amount": 1000000},
				},
			},
		},
	}
}

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(DefaultAnalyzerConfig())
	require.NoError(t, err)
	return a
}

func TestAnalyze_CompleteSubmission(t *testing.T) {
	res := newAnalyzer(t).Analyze(analyzerDoc(95))

	require.Equal(t, StatusSuccess, res.Status)
	require.NoError(t, res.Err)
	d := res.Data

	assert.Equal(t, 100.0, d.Completeness.Aggregate.Percentage)
	assert.Equal(t, 49, d.Completeness.Aggregate.Total)
	for _, c := range []completeness.Category{completeness.Triage, completeness.Appetite, completeness.Clearance} {
		assert.Equal(t, 100.0, d.Completeness.Percentage(c), c.Label())
	}

	assert.Equal(t, quality.TierHigh, d.Quality.Tier)
	assert.Equal(t, 95.0, d.Quality.AverageScore)
	assert.Equal(t, recommend.ReadyNarrative, d.RiskReadiness)
	assert.Equal(t, []string{recommend.ProceedMessage}, d.NextSteps)
	assert.Empty(t, d.MissingElements["triage"])

	// Array and raw paths carry no score and stay out of field-level accuracy.
	for _, fa := range d.FieldLevelAccuracy {
		assert.NotEqual(t, "primary_naics_code", fa.Field)
		assert.NotEqual(t, "coverages", fa.Field)
		assert.Equal(t, quality.IndicatorHigh, fa.Indicator)
	}
	require.NotEmpty(t, d.FieldLevelAccuracy)
	assert.Equal(t, "company_name", d.FieldLevelAccuracy[0].Field)

	assert.Equal(t, "Custom Computer Programming Services", d.Fields["primary_naics_description"].Value)
}

func TestAnalyze_MissingBrokerSection(t *testing.T) {
	doc := analyzerDoc(95)
	delete(doc["submission_data"].(map[string]any)["Common"].(map[string]any), "Broker_Details")

	res := newAnalyzer(t).Analyze(doc)
	require.Equal(t, StatusSuccess, res.Status)
	d := res.Data

	tri, _ := d.Completeness.Category(completeness.Triage)
	assert.Equal(t, 70.83, tri.Percentage)
	assert.Equal(t, 17, tri.Present)
	assert.Equal(t, 24, tri.Total)

	assert.Equal(t, 100.0, d.Completeness.Percentage(completeness.Appetite))
	assert.Equal(t, 60.0, d.Completeness.Percentage(completeness.Clearance))
	assert.Equal(t, 73.47, d.Completeness.Aggregate.Percentage)

	assert.Equal(t, quality.TierGood, d.Quality.Tier)
	assert.Equal(t, recommend.IncompleteNarrative, d.RiskReadiness)

	require.Len(t, d.NextSteps, 2)
	assert.Equal(t, "Complete triage information: broker_contact_points, broker_name, broker_address, broker_city, broker_post_code, broker_state, broker_email", d.NextSteps[0])
	assert.Contains(t, d.NextSteps[1], "Provide clearance details: broker_name")
	assert.Equal(t, []string{"broker_name", "broker_address", "broker_city", "broker_post_code", "broker_state", "broker_email"}, d.MissingElements["clearance"])
}

func TestAnalyze_CompletenessGateDominatesScore(t *testing.T) {
	doc := analyzerDoc(99)
	common := doc["submission_data"].(map[string]any)["Common"].(map[string]any)
	delete(common, "Broker_Details")
	delete(common, "Product Details")

	res := newAnalyzer(t).Analyze(doc)
	require.Equal(t, StatusSuccess, res.Status)
	assert.Less(t, res.Data.Completeness.Aggregate.Percentage, quality.GoodCompletenessGate)
	assert.Equal(t, 99.0, res.Data.Quality.AverageScore)
	assert.Equal(t, quality.TierNeedsImprovement, res.Data.Quality.Tier)
}

func TestAnalyze_RootCommonAndSpaceSpelling(t *testing.T) {
	doc := analyzerDoc(85)
	common := doc["submission_data"].(map[string]any)["Common"].(map[string]any)
	common["Broker Details"] = common["Broker_Details"]
	delete(common, "Broker_Details")

	res := newAnalyzer(t).Analyze(map[string]any{"Common": common})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 100.0, res.Data.Completeness.Aggregate.Percentage)
	assert.Equal(t, quality.TierGood, res.Data.Quality.Tier)
	assert.Equal(t, recommend.PreliminaryNarrative, res.Data.RiskReadiness)
}

func TestAnalyze_Failures(t *testing.T) {
	a := newAnalyzer(t)

	tests := []struct {
		name string
		doc  any
		kind error
		msg  string
	}{
		{"nil", nil, ErrInputMissing, MsgNoSubmissionData},
		{"empty map", map[string]any{}, ErrInputMissing, MsgNoSubmissionData},
		{"unrelated document", map[string]any{"foo": "bar"}, ErrNoExtractableData, MsgNoExtractable},
		{"scalar root", 42, ErrNoExtractableData, MsgNoExtractable},
		{"wrong types", map[string]any{"submission_data": map[string]any{"Common": []any{1, 2}}}, ErrNoExtractableData, MsgNoExtractable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res Result
			require.NotPanics(t, func() { res = a.Analyze(tt.doc) })
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, tt.msg, res.Message)
			assert.ErrorIs(t, res.Err, tt.kind)
			assert.Equal(t, tt.kind, Kind(res.Err))

			require.NotNil(t, res.Data)
			assert.Equal(t, 0.0, res.Data.Completeness.Aggregate.Percentage)
			assert.NotNil(t, res.Data.NextSteps)
			assert.Len(t, res.Data.Completeness.Categories, 3)

			_, err := json.Marshal(res)
			assert.NoError(t, err)
		})
	}
}

func TestAnalyzeWithModifications(t *testing.T) {
	doc := analyzerDoc(60)
	res := newAnalyzer(t).AnalyzeWithModifications(doc, map[string]any{
		"company_name": "Acme Widgets Holdings LLC",
		"not_a_field":  "ignored",
	})
	require.Equal(t, StatusSuccess, res.Status)

	f := res.Data.Fields["company_name"]
	assert.Equal(t, "Acme Widgets Holdings LLC", f.Value)
	require.NotNil(t, f.Score)
	assert.Equal(t, 100.0, *f.Score)
	assert.Equal(t, model.SourceUserModified, f.Source)
	assert.Equal(t, []string{"company_name"}, res.Data.UserModified)

	// The caller's document is untouched.
	orig := doc["submission_data"].(map[string]any)["Common"].(map[string]any)["Firmographics"].(map[string]any)["company_name"]
	assert.Equal(t, "Acme Widgets LLC", orig.(map[string]any)["value"])
}

func TestAnalyzerConfig_Apply(t *testing.T) {
	high, good := 95.0, 85.0
	cfg := DefaultAnalyzerConfig().Apply(Overrides{
		Requirements: map[string][]string{"appetite": {"company_name"}, "clearance": {}},
		Thresholds:   ThresholdOverrides{High: &high, Good: &good},
		MaxNextSteps: 1,
	})

	assert.Equal(t, []string{"company_name"}, cfg.Requirements.Fields(completeness.Appetite))
	assert.Empty(t, cfg.Requirements.Fields(completeness.Clearance))
	assert.Equal(t, DefaultTriageFields, cfg.Requirements.Fields(completeness.Triage))
	assert.Equal(t, quality.Thresholds{High: 95, Good: 85}, cfg.Thresholds)
	assert.Equal(t, 1, cfg.MaxNextSteps)

	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	res := a.Analyze(analyzerDoc(90))
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 100.0, res.Data.Completeness.Percentage(completeness.Clearance), "an emptied category is vacuously complete")
	assert.Equal(t, quality.TierGood, res.Data.Quality.Tier)
}

func TestNewAnalyzer_InvalidConfig(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	cfg.Thresholds = quality.Thresholds{High: 70, Good: 80}
	_, err := NewAnalyzer(cfg)
	assert.Error(t, err)
}
