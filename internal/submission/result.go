// Package submission scores insurance submission documents for
// completeness and data quality and recommends the next steps.
package submission

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Failure kinds reported in a result's message. Anything that fails to
// resolve inside a document is folded into the metrics instead.
var (
	ErrInputMissing      = eris.New("no submission data provided")
	ErrDocumentNotFound  = eris.New("submission document not found")
	ErrNoExtractableData = eris.New("no extractable data in submission")
)

// Status is the outcome flag carried by every result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Messages used in failed results.
const (
	MsgNoSubmissionData = "No submission data provided for analysis"
	MsgNoTransactionID  = "No transaction ID provided for analysis"
	MsgNoExtractable    = "No recognizable submission fields could be extracted"
)

// MsgDocumentNotFound formats the lookup-miss message for a transaction.
func MsgDocumentNotFound(txID string) string {
	return "No submission data found for transaction ID: " + txID
}

// Kind classifies err as one of the failure sentinels, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrInputMissing, ErrDocumentNotFound, ErrNoExtractableData} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// isEmptyDocument reports whether doc carries nothing to analyze.
func isEmptyDocument(doc any) bool {
	switch d := doc.(type) {
	case nil:
		return true
	case map[string]any:
		return len(d) == 0
	case []any:
		return len(d) == 0
	case string:
		return d == ""
	}
	return false
}
