// Package quality turns per-field confidence scores into quality tiers.
package quality

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
)

// Tier is the overall quality classification of a submission.
type Tier string

const (
	TierHigh             Tier = "High Quality"
	TierGood             Tier = "Good Quality"
	TierNeedsImprovement Tier = "Needs Improvement"
)

// Completeness gates applied alongside the score thresholds.
const (
	HighCompletenessGate = 90.0
	GoodCompletenessGate = 70.0
)

// Indicator is the per-field display symbol.
type Indicator string

const (
	IndicatorHigh   Indicator = "✓"
	IndicatorMedium Indicator = "🟡"
	IndicatorLow    Indicator = "🔴"
)

// Thresholds are the confidence cut-offs for the high and good bands.
type Thresholds struct {
	High float64 `yaml:"high" json:"high" mapstructure:"high"`
	Good float64 `yaml:"good" json:"good" mapstructure:"good"`
}

// DefaultThresholds returns high=90, good=80.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 90, Good: 80}
}

// Validate checks that 0 <= good <= high <= 100.
func (t Thresholds) Validate() error {
	if t.Good < 0 || t.High > 100 || t.Good > t.High {
		return eris.Errorf("quality: thresholds must satisfy 0 <= good (%.2f) <= high (%.2f) <= 100", t.Good, t.High)
	}
	return nil
}

// Indicator maps a single score to its display symbol. No completeness
// gate applies here.
func (t Thresholds) Indicator(score float64) Indicator {
	switch {
	case score >= t.High:
		return IndicatorHigh
	case score >= t.Good:
		return IndicatorMedium
	default:
		return IndicatorLow
	}
}

// Tier decides the overall tier. Both the average score and the overall
// completeness must clear a band; otherwise the next band down is tried.
func (t Thresholds) Tier(average, completeness float64) Tier {
	switch {
	case average >= t.High && completeness >= HighCompletenessGate:
		return TierHigh
	case average >= t.Good && completeness >= GoodCompletenessGate:
		return TierGood
	default:
		return TierNeedsImprovement
	}
}

// Score is the quality summary of a submission.
type Score struct {
	Tier         Tier       `json:"tier"`
	AverageScore float64    `json:"average_score"`
	ScoredFields int        `json:"scored_fields"`
	Thresholds   Thresholds `json:"thresholds"`
}

// Average is the mean confidence over present fields that carry a score.
// Unscored fields are excluded rather than counted as zero. It returns
// (0, 0) when nothing is scored.
func Average(fields model.Fields) (float64, int) {
	var sum float64
	var n int
	for _, f := range fields {
		if !f.Present || !f.HasScore() {
			continue
		}
		sum += *f.Score
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return round2(sum / float64(n)), n
}

// Evaluate computes the average score and the tier it earns at the given
// overall completeness percentage.
func Evaluate(fields model.Fields, completeness float64, t Thresholds) Score {
	avg, n := Average(fields)
	return Score{
		Tier:         t.Tier(avg, completeness),
		AverageScore: avg,
		ScoredFields: n,
		Thresholds:   t,
	}
}

// FieldAccuracy is the display record for one scored field.
type FieldAccuracy struct {
	Field     string       `json:"field"`
	Value     any          `json:"value"`
	Score     float64      `json:"score"`
	Indicator Indicator    `json:"quality_indicator"`
	Source    model.Source `json:"source"`
}

// FieldLevel lists present, scored fields. Fields named in order come
// first in that order; the rest follow alphabetically.
func FieldLevel(fields model.Fields, order []string, t Thresholds) []FieldAccuracy {
	out := make([]FieldAccuracy, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		f, ok := fields[name]
		if !ok || !f.Present || !f.HasScore() {
			return
		}
		out = append(out, FieldAccuracy{
			Field:     name,
			Value:     f.Value,
			Score:     *f.Score,
			Indicator: t.Indicator(*f.Score),
			Source:    f.Source,
		})
	}
	for _, name := range order {
		add(name)
	}
	rest := make([]string, 0, len(fields))
	for name := range fields {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		add(name)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
