package valuation

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/property"
)

// Failure kinds for a valuation run.
var (
	ErrInputMissing = eris.New("no submission data provided")
	ErrNoProperties = eris.New("no property data in submission")
)

// Messages used in failed reports.
const (
	MsgNoSubmissionData = "No submission data provided for analysis"
	MsgNoProperties     = "No property data found in submission"
)

// Options tune one valuation run.
type Options struct {
	SkipRecommendations bool
	SkipCitations       bool
	// DefaultState is assumed for properties that name no state.
	DefaultState string
	// Extra records, such as statement-of-values rows, valued alongside the
	// document's own properties.
	Extra []property.Raw
}

// Report is the outcome of a valuation run. A failed run carries zeroed
// metrics and Error.
type Report struct {
	Summary    Summary          `json:"analysis_summary"`
	Valuations []Result         `json:"property_valuations"`
	Anomalies  []Result         `json:"anomalies"`
	Totals     Totals           `json:"total_valuation"`
	Citations  *SourceCitations `json:"citations,omitempty"`
	Error      string           `json:"error,omitempty"`
	Err        error            `json:"-"`
}

// OK reports whether the run succeeded.
func (r Report) OK() bool { return r.Err == nil }

// Tool values every property in a submission document.
type Tool struct {
	model *Model
}

// NewTool wraps m.
func NewTool(m *Model) *Tool {
	return &Tool{model: m}
}

// Model returns the underlying cost model.
func (t *Tool) Model() *Model { return t.model }

// Analyze discovers, merges and values the properties in doc.
func (t *Tool) Analyze(doc any, opts Options) Report {
	if isEmpty(doc) && len(opts.Extra) == 0 {
		return failure(ErrInputMissing, MsgNoSubmissionData)
	}
	records := property.Collect(doc, property.Options{DefaultState: opts.DefaultState, Extra: opts.Extra})
	if len(records) == 0 {
		return failure(ErrNoProperties, MsgNoProperties)
	}

	results := make([]Result, 0, len(records))
	for _, rec := range records {
		r := t.model.Estimate(rec)
		if opts.SkipRecommendations {
			r.Recommendations = []string{}
		}
		if opts.SkipCitations {
			r.Citations = nil
		}
		results = append(results, r)
	}
	p := Portfolio(results)
	zap.L().Debug("valuation: analyzed properties",
		zap.Int("properties", len(results)),
		zap.Int("anomalies", len(p.Anomalies)),
		zap.String("quality", p.Summary.ValuationQuality),
	)

	rep := Report{
		Summary:    p.Summary,
		Valuations: results,
		Anomalies:  p.Anomalies,
		Totals:     p.Totals,
	}
	if !opts.SkipCitations {
		src := AllSources()
		rep.Citations = &src
	}
	return rep
}

func failure(kind error, msg string) Report {
	return Report{
		Valuations: []Result{},
		Anomalies:  []Result{},
		Error:      msg,
		Err:        eris.Wrap(kind, msg),
	}
}

func isEmpty(doc any) bool {
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
