package submission

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/completeness"
	"github.com/sells-group/intake-cli/internal/extract"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/quality"
	"github.com/sells-group/intake-cli/internal/recommend"
)

// AnalyzerConfig configures the submission analyzer.
type AnalyzerConfig struct {
	Requirements completeness.RequirementSet
	Mapping      extract.Mapping
	Thresholds   quality.Thresholds
	MaxNextSteps int
}

// DefaultAnalyzerConfig returns the built-in requirements, mapping and
// thresholds.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Requirements: DefaultRequirements(),
		Mapping:      DefaultMapping(),
		Thresholds:   quality.DefaultThresholds(),
		MaxNextSteps: recommend.DefaultMaxSteps,
	}
}

// Apply layers o over c: requirement lists replace per category, mapping
// entries replace per field, and set thresholds replace the defaults.
func (c AnalyzerConfig) Apply(o Overrides) AnalyzerConfig {
	out := c
	out.Requirements = c.Requirements.Override(o.requirementSet())
	if len(o.FieldMapping) > 0 {
		out.Mapping = c.Mapping.Merge(o.FieldMapping)
	}
	if o.Thresholds.High != nil {
		out.Thresholds.High = *o.Thresholds.High
	}
	if o.Thresholds.Good != nil {
		out.Thresholds.Good = *o.Thresholds.Good
	}
	if o.MaxNextSteps > 0 {
		out.MaxNextSteps = o.MaxNextSteps
	}
	return out
}

// Validate checks thresholds and mapping.
func (c AnalyzerConfig) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Mapping.Validate(); err != nil {
		return err
	}
	return nil
}

// Analyzer scores submission documents against triage, appetite and
// clearance requirements. It is safe for concurrent use.
type Analyzer struct {
	cfg AnalyzerConfig
}

// NewAnalyzer validates cfg and returns an Analyzer.
func NewAnalyzer(cfg AnalyzerConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "submission: invalid analyzer config")
	}
	return &Analyzer{cfg: cfg}, nil
}

// Config returns the analyzer's effective configuration.
func (a *Analyzer) Config() AnalyzerConfig { return a.cfg }

// Result is the analyzer's envelope. Failures carry StatusError, a message
// and zeroed data.
type Result struct {
	Status  Status    `json:"status"`
	Data    *Analysis `json:"data"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Analysis is the analyzer's payload.
type Analysis struct {
	Completeness       completeness.Report      `json:"overall_completeness"`
	Quality            quality.Score            `json:"data_quality_tier"`
	FieldLevelAccuracy []quality.FieldAccuracy  `json:"field_level_accuracy"`
	MissingElements    map[string][]string      `json:"missing_required_elements"`
	Methodology        recommend.Methodology    `json:"calculation_methodology"`
	RiskReadiness      string                   `json:"risk_assessment_readiness"`
	NextSteps          []string                 `json:"next_steps"`
	UserModified       []string                 `json:"user_modified_fields,omitempty"`
	Fields             map[string]FieldSnapshot `json:"-"`
}

// FieldSnapshot is the extracted state of one required field.
type FieldSnapshot struct {
	Value   any          `json:"value"`
	Score   *float64     `json:"score"`
	Present bool         `json:"present"`
	Source  model.Source `json:"source"`
}

// Analyze scores doc. It never panics and never returns a bare error:
// failures come back as a StatusError result.
func (a *Analyzer) Analyze(doc any) Result {
	return a.AnalyzeWithModifications(doc, nil)
}

// AnalyzeWithModifications applies user-supplied field values before
// scoring. Modified fields score 100 and are sourced user_modified.
func (a *Analyzer) AnalyzeWithModifications(doc any, mods map[string]any) Result {
	if isEmptyDocument(doc) {
		return a.failure(ErrInputMissing, MsgNoSubmissionData)
	}

	mapping := a.requiredMapping()
	fields, applied := extract.ExtractWithModifications(doc, mods, mapping)
	if !anyFound(fields) {
		return a.failure(ErrNoExtractableData, MsgNoExtractable)
	}

	analysis := a.score(fields)
	analysis.UserModified = applied
	return Result{Status: StatusSuccess, Data: analysis, Message: "Submission analyzed successfully"}
}

// requiredMapping narrows the mapping to required fields.
func (a *Analyzer) requiredMapping() extract.Mapping {
	out := make(extract.Mapping)
	for _, name := range a.cfg.Requirements.AllFields() {
		if spec, ok := a.cfg.Mapping[name]; ok {
			out[name] = spec
		}
	}
	return out
}

func (a *Analyzer) score(fields model.Fields) *Analysis {
	th := a.cfg.Thresholds
	rep := completeness.Aggregate(fields, a.cfg.Requirements)
	overall := rep.Aggregate.Percentage
	q := quality.Evaluate(fields, overall, th)

	missing := make(map[string][]string, len(rep.Categories))
	for _, cr := range rep.Categories {
		missing[cr.Category.Label()] = cr.Missing
	}

	snapshots := make(map[string]FieldSnapshot, len(fields))
	for name, f := range fields {
		snapshots[name] = FieldSnapshot{Value: f.Value, Score: f.Score, Present: f.Present, Source: f.Source}
	}

	return &Analysis{
		Completeness:       rep,
		Quality:            q,
		FieldLevelAccuracy: quality.FieldLevel(fields, a.cfg.Requirements.AllFields(), th),
		MissingElements:    missing,
		Methodology:        recommend.Explain(th),
		RiskReadiness:      recommend.Narrative(overall, q.AverageScore, th),
		NextSteps:          recommend.NextSteps(rep.MissingByCategory(), a.cfg.MaxNextSteps),
		Fields:             snapshots,
	}
}

func (a *Analyzer) failure(kind error, msg string) Result {
	return Result{
		Status:  StatusError,
		Data:    a.emptyAnalysis(),
		Message: msg,
		Err:     kind,
	}
}

// emptyAnalysis is the zeroed payload returned with failures.
func (a *Analyzer) emptyAnalysis() *Analysis {
	cats := make([]completeness.CategoryResult, 0, len(a.cfg.Requirements))
	missing := make(map[string][]string, len(a.cfg.Requirements))
	for _, r := range a.cfg.Requirements {
		cats = append(cats, completeness.CategoryResult{Category: r.Category, Result: completeness.Result{Missing: []string{}}})
		missing[r.Category.Label()] = []string{}
	}
	return &Analysis{
		Completeness:       completeness.Report{Categories: cats, Aggregate: completeness.Result{Missing: []string{}}},
		Quality:            quality.Score{Tier: quality.TierNeedsImprovement, Thresholds: a.cfg.Thresholds},
		FieldLevelAccuracy: []quality.FieldAccuracy{},
		MissingElements:    missing,
		Methodology:        recommend.Explain(a.cfg.Thresholds),
		NextSteps:          []string{},
	}
}

func anyFound(fields model.Fields) bool {
	for _, f := range fields {
		if f.Found {
			return true
		}
	}
	return false
}
