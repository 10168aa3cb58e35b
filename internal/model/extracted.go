// Package model holds the field types shared by the extraction and scoring packages.
package model

import "github.com/sells-group/intake-cli/internal/jsonpath"

// Source records where an extracted value came from.
type Source string

const (
	SourceOriginal     Source = "original"
	SourceUserModified Source = "user_modified"
)

// ExtractedField is a single logical field pulled out of a submission.
type ExtractedField struct {
	Name    string        `json:"field_name"`
	Value   any           `json:"value"`
	Score   *float64      `json:"confidence_score"`
	Source  Source        `json:"source"`
	Found   bool          `json:"-"`
	Present bool          `json:"present"`
	Path    jsonpath.Path `json:"path,omitempty"`
}

// HasScore reports whether a confidence score is attached.
func (f ExtractedField) HasScore() bool {
	return f.Score != nil
}

// ScoreValue returns the confidence score or 0 when absent.
func (f ExtractedField) ScoreValue() float64 {
	if f.Score == nil {
		return 0
	}
	return *f.Score
}

// Fields is the set of extracted fields keyed by field name.
type Fields map[string]ExtractedField

// IsPresent reports whether the named field was extracted and classified present.
func (fs Fields) IsPresent(name string) bool {
	f, ok := fs[name]
	return ok && f.Present
}

// PresentCount counts fields classified present.
func (fs Fields) PresentCount() int {
	n := 0
	for _, f := range fs {
		if f.Present {
			n++
		}
	}
	return n
}
