// Package store persists submission documents and analysis records.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// ErrNotFound is returned by mutations that matched no rows.
var ErrNotFound = eris.New("store: not found")

// Tool names recorded on analysis records.
const (
	ToolSubmissionAnalyzer  = "insurance_submission_analyzer"
	ToolCompletenessChecker = "submission_completeness_checker"
	ToolValuation           = "property_valuation_analyzer"
	ToolTrends              = "valuation_trend_analyzer"
)

// SubmissionVersion is one entry of a transaction's submission history.
// A zero Sequence on PutSubmission means "next after the current latest".
type SubmissionVersion struct {
	TransactionID string         `json:"transaction_id"`
	Sequence      int            `json:"sequence"`
	Data          map[string]any `json:"submission_data"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AnalysisRecord is the stored outcome of one analyzer run.
type AnalysisRecord struct {
	ID            string          `json:"id"`
	Tool          string          `json:"tool"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	QualityScore  float64         `json:"quality_score"`
	Tier          string          `json:"tier,omitempty"`
	DurationMs    int64           `json:"duration_ms"`
	Result        json.RawMessage `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AnalysisFilter narrows ListAnalyses. Zero fields match everything.
type AnalysisFilter struct {
	Tool          string    `json:"tool,omitempty"`
	Status        string    `json:"status,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Since         time.Time `json:"since,omitempty"`
	Limit         int       `json:"limit,omitempty"`
	Offset        int       `json:"offset,omitempty"`
}

// DocumentStore resolves a transaction to its latest submission body.
// A miss returns (nil, nil).
type DocumentStore interface {
	LatestSubmission(ctx context.Context, txID string) (map[string]any, error)
}

// Store is the full persistence interface.
type Store interface {
	DocumentStore

	// Submission history
	PutSubmission(ctx context.Context, v SubmissionVersion) (int, error)
	PutSubmissions(ctx context.Context, vs []SubmissionVersion) (int64, error)
	ListVersions(ctx context.Context, txID string) ([]SubmissionVersion, error)
	DeleteSubmission(ctx context.Context, txID string) error

	// Analysis records
	SaveAnalysis(ctx context.Context, rec *AnalysisRecord) error
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]AnalysisRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func validateVersions(vs []SubmissionVersion) error {
	for i, v := range vs {
		if v.TransactionID == "" {
			return eris.Errorf("store: version %d: missing transaction id", i)
		}
		if v.Sequence <= 0 {
			return eris.Errorf("store: version %d (%s): bulk import needs an explicit sequence", i, v.TransactionID)
		}
	}
	return nil
}

// prepareRecord fills the id and timestamp of a record about to be saved.
func prepareRecord(rec *AnalysisRecord) error {
	if rec == nil {
		return eris.New("store: nil analysis record")
	}
	if rec.Tool == "" {
		return eris.New("store: analysis record missing tool")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

func decodeDocument(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrap(err, "store: decode submission")
	}
	return doc, nil
}
