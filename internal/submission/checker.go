package submission

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/completeness"
	"github.com/sells-group/intake-cli/internal/extract"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/quality"
	"github.com/sells-group/intake-cli/internal/recommend"
)

// DocumentSource looks up the latest stored submission body for a
// transaction. A miss returns (nil, nil).
type DocumentSource interface {
	LatestSubmission(ctx context.Context, txID string) (map[string]any, error)
}

// CheckerConfig configures the completeness checker.
type CheckerConfig struct {
	Requirements   completeness.RequirementSet
	Mapping        extract.Mapping
	Thresholds     quality.Thresholds
	CriticalFields []string
}

// DefaultCheckerConfig returns the built-in checker configuration.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		Requirements:   DefaultCheckerRequirements(),
		Mapping:        DefaultCheckerMapping(),
		Thresholds:     quality.DefaultThresholds(),
		CriticalFields: recommend.CriticalFields,
	}
}

// Apply layers o over c the same way AnalyzerConfig.Apply does.
// MaxNextSteps has no meaning for the checker and is ignored.
func (c CheckerConfig) Apply(o Overrides) CheckerConfig {
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
	return out
}

// Validate checks thresholds and mapping.
func (c CheckerConfig) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	return c.Mapping.Validate()
}

// Checker scores stored submissions by transaction id, optionally after
// applying user corrections.
type Checker struct {
	cfg    CheckerConfig
	source DocumentSource
}

// NewChecker validates cfg and returns a Checker reading from source.
func NewChecker(source DocumentSource, cfg CheckerConfig) (*Checker, error) {
	if source == nil {
		return nil, eris.New("submission: checker requires a document source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "submission: invalid checker config")
	}
	return &Checker{cfg: cfg, source: source}, nil
}

// Summary is the headline of a completeness report.
type Summary struct {
	OverallStatus            string  `json:"overall_status"`
	QualityScore             float64 `json:"quality_score"`
	IsInitialRun             bool    `json:"is_initial_run"`
	UserModificationsApplied int     `json:"user_modifications_applied"`
}

// FieldStatus is "complete" or "missing".
type FieldStatus string

const (
	FieldComplete FieldStatus = "complete"
	FieldMissing  FieldStatus = "missing"
)

// FieldDetail is the per-field row of a completeness report.
type FieldDetail struct {
	FieldName       string                  `json:"field_name"`
	Categories      []completeness.Category `json:"categories"`
	Status          FieldStatus             `json:"status"`
	ConfidenceScore *float64                `json:"confidence_score"`
	Value           any                     `json:"value"`
	Source          model.Source            `json:"source"`
}

// Report is the completeness checker's result.
type Report struct {
	Status         Status                         `json:"status"`
	Summary        Summary                        `json:"analysis_summary"`
	Completeness   map[string]completeness.Result `json:"completeness_analysis"`
	QualityTiers   quality.Buckets                `json:"data_quality_tiers"`
	RiskAssessment recommend.RiskReadiness        `json:"risk_assessment"`
	NextSteps      recommend.Actions              `json:"next_steps"`
	FieldDetails   []FieldDetail                  `json:"field_details"`
	TransactionID  string                         `json:"transaction_id"`
	Error          string                         `json:"error,omitempty"`
	Err            error                          `json:"-"`
}

// Check loads the latest submission for txID and scores it. A nil mods map
// marks the initial run; a non-nil map, even an empty one, is an update.
func (c *Checker) Check(ctx context.Context, txID string, mods map[string]any) Report {
	txID = strings.TrimSpace(txID)
	if txID == "" {
		return c.failure("", ErrInputMissing, MsgNoTransactionID)
	}

	doc, err := c.source.LatestSubmission(ctx, txID)
	if err != nil {
		zap.L().Warn("checker: document lookup failed",
			zap.String("transaction_id", txID),
			zap.Error(err),
		)
		return c.failure(txID, eris.Wrapf(err, "submission: lookup %s", txID),
			"Error during submission analysis: "+err.Error())
	}
	if len(doc) == 0 {
		return c.failure(txID, ErrDocumentNotFound, MsgDocumentNotFound(txID))
	}

	return c.Evaluate(txID, doc, mods)
}

// Evaluate scores an already loaded document. A document in which no
// mapped field resolves fails with ErrNoExtractableData.
func (c *Checker) Evaluate(txID string, doc map[string]any, mods map[string]any) Report {
	fields, applied := extract.ExtractWithModifications(doc, mods, c.cfg.Mapping)
	if !anyFound(fields) {
		return c.failure(txID, ErrNoExtractableData, MsgNoExtractable)
	}
	rs := c.cfg.Requirements
	th := c.cfg.Thresholds
	all := rs.AllFields()

	rep := completeness.Aggregate(fields, rs)
	byLabel := make(map[string]completeness.Result, len(rep.Categories))
	for _, cr := range rep.Categories {
		byLabel[cr.Category.Label()] = cr.Result
	}

	buckets := quality.Bucket(fields, all, th)
	triage := rep.Percentage(completeness.Triage)
	appetite := rep.Percentage(completeness.Appetite)
	avg, _ := quality.Average(fields)

	critical := c.criticalMissing(fields, all)
	summary := Summary{
		OverallStatus:            recommend.OverallStatus(triage, len(buckets.MissingRequired) > 0),
		QualityScore:             quality.Overall(triage, avg, appetite),
		IsInitialRun:             mods == nil,
		UserModificationsApplied: len(applied),
	}

	return Report{
		Status:         StatusSuccess,
		Summary:        summary,
		Completeness:   byLabel,
		QualityTiers:   buckets,
		RiskAssessment: recommend.AssessReadiness(triage, critical),
		NextSteps:      recommend.PlanActions(critical, lowConfidence(fields, all, th), triage),
		FieldDetails:   c.details(fields, all),
		TransactionID:  txID,
	}
}

func (c *Checker) criticalMissing(fields model.Fields, required []string) []string {
	req := make(map[string]bool, len(required))
	for _, f := range required {
		req[f] = true
	}
	var out []string
	for _, name := range c.cfg.CriticalFields {
		if req[name] && !fields.IsPresent(name) {
			out = append(out, name)
		}
	}
	return out
}

// lowConfidence lists present, scored, original fields scoring under the
// good threshold.
func lowConfidence(fields model.Fields, order []string, t quality.Thresholds) []string {
	var out []string
	for _, name := range order {
		f, ok := fields[name]
		if !ok || !f.Present || !f.HasScore() || f.Source != model.SourceOriginal {
			continue
		}
		if *f.Score < t.Good {
			out = append(out, name)
		}
	}
	return out
}

func (c *Checker) details(fields model.Fields, order []string) []FieldDetail {
	cats := make(map[string][]completeness.Category, len(order))
	for _, r := range c.cfg.Requirements {
		for _, f := range r.Fields {
			cats[f] = append(cats[f], r.Category)
		}
	}

	out := make([]FieldDetail, 0, len(order))
	for _, name := range order {
		f := fields[name]
		d := FieldDetail{
			FieldName:  name,
			Categories: cats[name],
			Status:     FieldMissing,
			Source:     model.SourceOriginal,
		}
		if f.Present {
			d.Status = FieldComplete
			d.Value = f.Value
			d.ConfidenceScore = f.Score
			d.Source = f.Source
		}
		out = append(out, d)
	}
	return out
}

func (c *Checker) failure(txID string, kind error, msg string) Report {
	byLabel := make(map[string]completeness.Result, len(c.cfg.Requirements))
	for _, r := range c.cfg.Requirements {
		byLabel[r.Category.Label()] = completeness.Result{Missing: []string{}}
	}
	return Report{
		Status:       StatusError,
		Summary:      Summary{OverallStatus: "Error", IsInitialRun: true},
		Completeness: byLabel,
		QualityTiers: quality.Bucket(nil, nil, c.cfg.Thresholds),
		RiskAssessment: recommend.RiskReadiness{
			Status:          "Error",
			Readiness:       recommend.LevelLow,
			CriticalMissing: []string{},
		},
		NextSteps:     recommend.Actions{PriorityActions: []string{}, Urgency: recommend.LevelHigh},
		FieldDetails:  []FieldDetail{},
		TransactionID: txID,
		Error:         msg,
		Err:           kind,
	}
}
