package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func doc(name string) map[string]any {
	return map[string]any{"Common": map[string]any{"Firmographics": map[string]any{"company_name": name}}}
}

func companyName(t *testing.T, d map[string]any) string {
	t.Helper()
	require.NotNil(t, d)
	return d["Common"].(map[string]any)["Firmographics"].(map[string]any)["company_name"].(string)
}

func TestSQLite_LatestSubmission_Miss(t *testing.T) {
	st := newTestSQLiteStore(t)

	d, err := st.LatestSubmission(context.Background(), "TX-none")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestSQLite_LatestSubmission_HighestSequenceWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Sequence: 3, Data: doc("third")})
	require.NoError(t, err)
	_, err = st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Sequence: 1, Data: doc("first")})
	require.NoError(t, err)
	_, err = st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-2", Sequence: 9, Data: doc("other")})
	require.NoError(t, err)

	d, err := st.LatestSubmission(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, "third", companyName(t, d))
}

func TestSQLite_PutSubmission_Append(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seq, err := st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("a")})
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	seq, err = st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Sequence: 5, Data: doc("b")})
	require.NoError(t, err)
	assert.Equal(t, 5, seq)

	seq, err = st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("c")})
	require.NoError(t, err)
	assert.Equal(t, 6, seq)

	seq, err = st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Sequence: 5, Data: doc("b2")})
	require.NoError(t, err)
	assert.Equal(t, 5, seq)

	versions, err := st.ListVersions(ctx, "TX-1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []int{1, 5, 6}, []int{versions[0].Sequence, versions[1].Sequence, versions[2].Sequence})
	assert.Equal(t, "b2", companyName(t, versions[1].Data))

	_, err = st.PutSubmission(ctx, SubmissionVersion{Data: doc("x")})
	assert.Error(t, err)
}

func TestSQLite_PutSubmissions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.PutSubmissions(ctx, []SubmissionVersion{
		{TransactionID: "TX-1", Sequence: 1, Data: doc("a")},
		{TransactionID: "TX-1", Sequence: 2, Data: doc("b")},
		{TransactionID: "TX-2", Sequence: 1, Data: doc("c")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	d, err := st.LatestSubmission(ctx, "TX-1")
	require.NoError(t, err)
	assert.Equal(t, "b", companyName(t, d))

	_, err = st.PutSubmissions(ctx, []SubmissionVersion{{TransactionID: "TX-3", Data: doc("d")}})
	assert.ErrorContains(t, err, "explicit sequence")
}

func TestSQLite_DeleteSubmission(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.PutSubmission(ctx, SubmissionVersion{TransactionID: "TX-1", Data: doc("a")})
	require.NoError(t, err)
	require.NoError(t, st.DeleteSubmission(ctx, "TX-1"))

	d, err := st.LatestSubmission(ctx, "TX-1")
	require.NoError(t, err)
	assert.Nil(t, d)

	err = st.DeleteSubmission(ctx, "TX-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Analyses(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	recs := []*AnalysisRecord{
		{Tool: ToolCompletenessChecker, TransactionID: "TX-1", Status: "success", QualityScore: 82.5, Tier: "High Quality", CreatedAt: base},
		{Tool: ToolCompletenessChecker, TransactionID: "TX-2", Status: "error", CreatedAt: base.Add(time.Hour)},
		{Tool: ToolValuation, Status: "success", Result: json.RawMessage(`{"ok":true}`), CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range recs {
		require.NoError(t, st.SaveAnalysis(ctx, r))
		assert.NotEmpty(t, r.ID)
	}

	all, err := st.ListAnalyses(ctx, AnalysisFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ToolValuation, all[0].Tool, "newest first")
	assert.JSONEq(t, `{"ok":true}`, string(all[0].Result))
	assert.True(t, base.Equal(all[2].CreatedAt))

	checks, err := st.ListAnalyses(ctx, AnalysisFilter{Tool: ToolCompletenessChecker, Status: "success"})
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, "TX-1", checks[0].TransactionID)
	assert.Equal(t, 82.5, checks[0].QualityScore)
	assert.Equal(t, "High Quality", checks[0].Tier)
	assert.Nil(t, checks[0].Result)

	recent, err := st.ListAnalyses(ctx, AnalysisFilter{Since: base.Add(30 * time.Minute), Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, ToolValuation, recent[0].Tool)

	assert.Error(t, st.SaveAnalysis(ctx, &AnalysisRecord{Status: "success"}))
	assert.Error(t, st.SaveAnalysis(ctx, nil))
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}
