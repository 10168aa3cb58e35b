package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/completeness"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/quality"
	"github.com/sells-group/intake-cli/internal/recommend"
)

type fakeSource struct {
	docs  map[string]map[string]any
	err   error
	calls int
}

func (f *fakeSource) LatestSubmission(_ context.Context, txID string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[txID], nil
}

// checkerDoc is a stored submission body rooted at Common.
func checkerDoc(score float64) map[string]any {
	return map[string]any{
		"Common": map[string]any{
			"Firmographics": map[string]any{
				"company_name":     vs("Acme Widgets LLC", score),
				"website":          vs("acme.example", score),
				"address_1":        vs("100 Main St", score),
				"city":             vs("Chicago", score),
				"state":            vs("IL", score),
				"postal_code":      vs("60601", score),
				"year_in_business": vs(1998, score),
				"primary_naics_2017": vs([]any{
					map[string]any{"code": "541511", "naics_desc": "Custom Computer Programming Services"},
				}, score),
				"primary_sic": vs([]any{map[string]any{"code": "7371"}}, score),
			},
			"Legal_Entity_Type": "LLC",
			"Product_Details": map[string]any{
				"policy_inception_date": vs("2026-12-01", score),
				"end_date":              vs("2027-12-01", score),
				"normalized_product":    vs("General Liability", score),
			},
			"Limits_and_Coverages": map[string]any{
				"normalized_coverage": vs("Commercial General Liability", score),
				"100_pct_limit":       map[string]any{"amount": 1000000},
			},
			"Broker_Details": map[string]any{
				"broker_name":        vs("Lakeside Brokerage", score),
				"broker_address":     vs("1 Wacker Dr", score),
				"broker_city":        vs("Chicago", score),
				"broker_postal_code": vs("60606", score),
				"broker_state":       vs("IL", score),
				"broker_email":       vs("jane@lakeside.example", score),
			},
		},
	}
}

func newChecker(t *testing.T, src DocumentSource) *Checker {
	t.Helper()
	c, err := NewChecker(src, DefaultCheckerConfig())
	require.NoError(t, err)
	return c
}

func TestDefaultCheckerRequirements(t *testing.T) {
	rs := DefaultCheckerRequirements()
	assert.Equal(t, []completeness.Category{completeness.Triage, completeness.Appetite, completeness.Clearance}, rs.Categories())
	assert.Len(t, rs.Fields(completeness.Triage), 22)
	assert.Len(t, rs.Fields(completeness.Appetite), 11)
	assert.Len(t, rs.Fields(completeness.Clearance), 14)
	for _, c := range rs.Categories() {
		assert.Contains(t, rs.Fields(c), "website", "website is required everywhere")
	}
}

func TestCheck_CompleteSubmission(t *testing.T) {
	src := &fakeSource{docs: map[string]map[string]any{"tx-1": checkerDoc(95)}}
	rep := newChecker(t, src).Check(context.Background(), "tx-1", nil)

	require.Equal(t, StatusSuccess, rep.Status)
	assert.Empty(t, rep.Error)
	assert.Equal(t, "tx-1", rep.TransactionID)
	assert.Equal(t, 100.0, rep.Completeness["triage"].Percentage)
	assert.Equal(t, 100.0, rep.Completeness["appetite"].Percentage)
	assert.Equal(t, 100.0, rep.Completeness["clearance"].Percentage)

	assert.Equal(t, Summary{
		OverallStatus: "Excellent - Ready for Processing",
		QualityScore:  98.5,
		IsInitialRun:  true,
	}, rep.Summary)

	assert.Empty(t, rep.QualityTiers.MissingRequired)
	assert.Empty(t, rep.QualityTiers.NeedsImprovement)
	assert.Len(t, rep.QualityTiers.Unscored, 2)
	assert.Equal(t, recommend.LevelHigh, rep.RiskAssessment.Readiness)
	assert.Equal(t, recommend.LevelLow, rep.NextSteps.Urgency)
	assert.Empty(t, rep.NextSteps.PriorityActions)

	require.Len(t, rep.FieldDetails, 22)
	var naics FieldDetail
	for _, d := range rep.FieldDetails {
		assert.Equal(t, FieldComplete, d.Status, d.FieldName)
		if d.FieldName == "naics_desc" {
			naics = d
		}
	}
	assert.Equal(t, "Custom Computer Programming Services", naics.Value)
	assert.Equal(t, []completeness.Category{completeness.Triage, completeness.Clearance}, naics.Categories)
}

func TestCheck_GapsAndLowConfidence(t *testing.T) {
	doc := checkerDoc(95)
	common := doc["Common"].(map[string]any)
	delete(common, "Broker_Details")
	delete(common["Limits_and_Coverages"].(map[string]any), "normalized_coverage")
	firm := common["Firmographics"].(map[string]any)
	firm["city"] = vs("Chicago", 70)
	firm["state"] = vs("IL", 75)

	rep := newChecker(t, &fakeSource{docs: map[string]map[string]any{"tx-2": doc}}).
		Check(context.Background(), "tx-2", nil)
	require.Equal(t, StatusSuccess, rep.Status)

	assert.Equal(t, 68.18, rep.Completeness["triage"].Percentage)
	assert.Equal(t, 90.91, rep.Completeness["appetite"].Percentage)
	assert.Equal(t, 57.14, rep.Completeness["clearance"].Percentage)

	assert.Equal(t, []string{
		"coverages", "broker_name", "broker_address", "broker_city",
		"broker_postal_code", "broker_state", "broker_email",
	}, rep.QualityTiers.MissingRequired)
	require.Len(t, rep.QualityTiers.NeedsImprovement, 2)
	assert.Equal(t, "city", rep.QualityTiers.NeedsImprovement[0].Field)

	assert.Equal(t, []string{"coverages"}, rep.RiskAssessment.CriticalMissing)
	assert.Equal(t, recommend.LevelLow, rep.RiskAssessment.Readiness)

	assert.Equal(t, []string{
		"Obtain critical missing data: coverages",
		"Verify low-confidence data: city, state",
		"Complete triage requirements for submission processing",
	}, rep.NextSteps.PriorityActions)
	assert.Equal(t, recommend.LevelHigh, rep.NextSteps.Urgency)

	assert.Equal(t, 79.73, rep.Summary.QualityScore)
	assert.Equal(t, "Poor - Significant Data Collection Required", rep.Summary.OverallStatus)
}

func TestCheck_UserModifications(t *testing.T) {
	doc := checkerDoc(95)
	common := doc["Common"].(map[string]any)
	delete(common["Limits_and_Coverages"].(map[string]any), "normalized_coverage")
	common["Firmographics"].(map[string]any)["company_name"] = vs("Acme", 40)

	src := &fakeSource{docs: map[string]map[string]any{"tx-3": doc}}
	c := newChecker(t, src)
	mods := map[string]any{"coverages": "General Liability", "company_name": "Acme Widgets LLC"}

	rep := c.Check(context.Background(), "tx-3", mods)
	require.Equal(t, StatusSuccess, rep.Status)
	assert.False(t, rep.Summary.IsInitialRun)
	assert.Equal(t, 2, rep.Summary.UserModificationsApplied)
	assert.Equal(t, 100.0, rep.Completeness["triage"].Percentage)

	require.Len(t, rep.QualityTiers.UserModified, 2)
	assert.Equal(t, "company_name", rep.QualityTiers.UserModified[0].Field)
	assert.Equal(t, "coverages", rep.QualityTiers.UserModified[1].Field)
	for _, e := range rep.QualityTiers.UserModified {
		require.NotNil(t, e.Score)
		assert.Equal(t, 100.0, *e.Score)
		assert.Equal(t, model.SourceUserModified, e.Source)
	}

	again := c.Check(context.Background(), "tx-3", mods)
	assert.Equal(t, rep.Summary, again.Summary)
	assert.Equal(t, rep.FieldDetails, again.FieldDetails)

	// The stored document is not rewritten.
	_, stillMissing := common["Limits_and_Coverages"].(map[string]any)["normalized_coverage"]
	assert.False(t, stillMissing)
}

func TestCheck_EmptyModsIsUpdateRun(t *testing.T) {
	src := &fakeSource{docs: map[string]map[string]any{"tx": checkerDoc(90)}}
	rep := newChecker(t, src).Check(context.Background(), "tx", map[string]any{})
	assert.False(t, rep.Summary.IsInitialRun)
	assert.Equal(t, 0, rep.Summary.UserModificationsApplied)
}

func TestCheck_Failures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name    string
		src     *fakeSource
		txID    string
		kind    error
		message string
		calls   int
	}{
		{"empty id", &fakeSource{}, "  ", ErrInputMissing, MsgNoTransactionID, 0},
		{"not found", &fakeSource{docs: map[string]map[string]any{}}, "tx-9", ErrDocumentNotFound, MsgDocumentNotFound("tx-9"), 1},
		{"empty document", &fakeSource{docs: map[string]map[string]any{"tx-9": {}}}, "tx-9", ErrDocumentNotFound, MsgDocumentNotFound("tx-9"), 1},
		{"lookup error", &fakeSource{err: boom}, "tx-9", boom, "Error during submission analysis: connection refused", 1},
		{"nothing extractable", &fakeSource{docs: map[string]map[string]any{"tx-9": {"foo": "bar"}}}, "tx-9", ErrNoExtractableData, MsgNoExtractable, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := newChecker(t, tt.src).Check(context.Background(), tt.txID, nil)
			assert.Equal(t, StatusError, rep.Status)
			assert.Equal(t, tt.message, rep.Error)
			assert.ErrorIs(t, rep.Err, tt.kind)
			assert.Equal(t, tt.calls, tt.src.calls)

			assert.Equal(t, 0.0, rep.Completeness["triage"].Percentage)
			assert.NotNil(t, rep.FieldDetails)
			assert.NotNil(t, rep.QualityTiers.MissingRequired)
		})
	}
}

func TestCheck_ModificationsRescueUnrelatedDocument(t *testing.T) {
	src := &fakeSource{docs: map[string]map[string]any{"tx": {"foo": "bar"}}}
	rep := newChecker(t, src).Check(context.Background(), "tx", map[string]any{"company_name": "Acme Widgets LLC"})
	require.Equal(t, StatusSuccess, rep.Status)
	assert.Equal(t, 1, rep.Summary.UserModificationsApplied)
}

func TestNewChecker_Validation(t *testing.T) {
	_, err := NewChecker(nil, DefaultCheckerConfig())
	assert.Error(t, err)

	cfg := DefaultCheckerConfig()
	cfg.Thresholds = quality.Thresholds{High: 101, Good: 80}
	_, err = NewChecker(&fakeSource{}, cfg)
	assert.Error(t, err)
}

func TestCheckerConfig_Apply(t *testing.T) {
	cfg := DefaultCheckerConfig().Apply(Overrides{
		Requirements: map[string][]string{"T": {"company_name", "website"}},
	})
	assert.Equal(t, []string{"company_name", "website"}, cfg.Requirements.Fields(completeness.Triage))
	assert.Len(t, cfg.Requirements.Fields(completeness.Appetite), 11)
}
