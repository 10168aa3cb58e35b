package recommend

import (
	"fmt"
	"strings"

	"github.com/sells-group/intake-cli/internal/quality"
)

// Readiness narratives for the submission analyzer.
const (
	ReadyNarrative       = "Submission is ready for underwriting with comprehensive data available."
	PreliminaryNarrative = "Submission is suitable for preliminary assessment, but some data enrichment is recommended."
	IncompleteNarrative  = "Submission requires additional information before complete risk assessment can be performed."
	GapsNarrative        = "Significant data gaps prevent adequate risk assessment. Submission requires substantial enrichment."
)

// Narrative describes how ready a submission is for risk assessment from
// its overall completeness and average confidence.
func Narrative(overall, average float64, t quality.Thresholds) string {
	switch {
	case overall >= 90 && average >= t.High:
		return ReadyNarrative
	case overall >= 80 && average >= t.Good:
		return PreliminaryNarrative
	case overall >= 70:
		return IncompleteNarrative
	default:
		return GapsNarrative
	}
}

// Level is a coarse low/medium/high rating.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// RiskReadiness summarises whether risk assessment can start.
type RiskReadiness struct {
	Status          string   `json:"status"`
	Readiness       Level    `json:"readiness_level"`
	CriticalMissing []string `json:"critical_missing"`
	TriageScore     float64  `json:"triage_completeness"`
}

// CriticalFields must be present before risk assessment.
var CriticalFields = []string{"company_name", "primary_naics_2017", "policy_inception_date", "coverages"}

// AssessReadiness rates risk-assessment readiness from triage completeness
// and the critical fields still missing.
func AssessReadiness(triage float64, criticalMissing []string) RiskReadiness {
	r := RiskReadiness{CriticalMissing: nonNil(criticalMissing), TriageScore: triage}
	switch {
	case triage >= 90 && len(criticalMissing) == 0:
		r.Status, r.Readiness = "Ready for Risk Assessment", LevelHigh
	case triage >= 70 && len(criticalMissing) <= 1:
		r.Status, r.Readiness = "Mostly Ready - Minor Gaps", LevelMedium
	default:
		r.Status, r.Readiness = "Not Ready - Critical Gaps", LevelLow
	}
	return r
}

// Actions is the prioritized remediation plan of the completeness checker.
type Actions struct {
	PriorityActions []string `json:"priority_actions"`
	Urgency         Level    `json:"urgency"`
	Recommendation  string   `json:"recommendation"`
}

// PlanActions lists critical gaps first, then low-confidence values, then
// a triage reminder when triage completeness is below 90. Urgency follows
// triage completeness and the critical gaps.
func PlanActions(criticalMissing, lowConfidence []string, triage float64) Actions {
	var actions []string
	if len(criticalMissing) > 0 {
		actions = append(actions, "Obtain critical missing data: "+strings.Join(head(criticalMissing, 3), ", "))
	}
	if len(lowConfidence) > 0 {
		actions = append(actions, "Verify low-confidence data: "+strings.Join(head(lowConfidence, 2), ", "))
	}
	if triage < 90 {
		actions = append(actions, "Complete triage requirements for submission processing")
	}

	a := Actions{PriorityActions: nonNil(actions)}
	switch {
	case triage >= 90 && len(criticalMissing) == 0:
		a.Urgency, a.Recommendation = LevelLow, "Submission ready for underwriting review"
	case triage >= 70:
		a.Urgency, a.Recommendation = LevelMedium, "Address remaining gaps before underwriting"
	default:
		a.Urgency, a.Recommendation = LevelHigh, "Critical data collection required before proceeding"
	}
	return a
}

// OverallStatus labels the checker's overall verdict.
func OverallStatus(triage float64, anyMissing bool) string {
	switch {
	case triage >= 95 && !anyMissing:
		return "Excellent - Ready for Processing"
	case triage >= 85:
		return "Good - Minor Gaps Remain"
	case triage >= 70:
		return "Fair - Moderate Improvements Needed"
	default:
		return "Poor - Significant Data Collection Required"
	}
}

// Methodology explains how the analyzer's numbers are computed.
type Methodology struct {
	Completeness string `json:"completeness_calculation"`
	Category     string `json:"category_calculation"`
	Quality      string `json:"quality_calculation"`
	Tier         string `json:"tier_calculation"`
	Indicators   string `json:"field_indicators"`
}

// Explain renders the methodology block for the given thresholds.
func Explain(t quality.Thresholds) Methodology {
	return Methodology{
		Completeness: "Calculated as (total present fields / total required fields) * 100, counting a field once per category that requires it",
		Category:     "Each category is calculated as (present fields in category / required fields in category) * 100; a category with no required fields is 100% complete",
		Quality:      "Average of confidence scores across present fields that carry a score; unscored fields are excluded",
		Tier: fmt.Sprintf("High Quality: average >= %.0f and completeness >= %.0f%%; Good Quality: average >= %.0f and completeness >= %.0f%%; otherwise Needs Improvement",
			t.High, quality.HighCompletenessGate, t.Good, quality.GoodCompletenessGate),
		Indicators: fmt.Sprintf("%s score >= %.0f, %s score >= %.0f, %s below %.0f",
			quality.IndicatorHigh, t.High, quality.IndicatorMedium, t.Good, quality.IndicatorLow, t.Good),
	}
}

func head(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
