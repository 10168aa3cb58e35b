package quality

import (
	"github.com/sells-group/intake-cli/internal/model"
)

// Entry is one field inside a quality bucket.
type Entry struct {
	Field  string       `json:"field"`
	Value  any          `json:"value"`
	Score  *float64     `json:"confidence_score"`
	Source model.Source `json:"source"`
}

// Buckets sorts required fields by data quality.
type Buckets struct {
	High             []Entry  `json:"high_quality"`
	Good             []Entry  `json:"good_quality"`
	NeedsImprovement []Entry  `json:"needs_improvement"`
	Unscored         []Entry  `json:"unscored"`
	MissingRequired  []string `json:"missing_required"`
	UserModified     []Entry  `json:"user_modified"`
}

// Bucket classifies each required field. User-modified fields go to their
// own bucket whatever their score; present fields without a score are kept
// apart instead of being ranked as low quality.
func Bucket(fields model.Fields, required []string, t Thresholds) Buckets {
	b := Buckets{
		High:             []Entry{},
		Good:             []Entry{},
		NeedsImprovement: []Entry{},
		Unscored:         []Entry{},
		MissingRequired:  []string{},
		UserModified:     []Entry{},
	}
	for _, name := range required {
		f, ok := fields[name]
		if !ok || !f.Present {
			b.MissingRequired = append(b.MissingRequired, name)
			continue
		}
		e := Entry{Field: name, Value: f.Value, Score: f.Score, Source: f.Source}
		switch {
		case f.Source == model.SourceUserModified:
			b.UserModified = append(b.UserModified, e)
		case !f.HasScore():
			b.Unscored = append(b.Unscored, e)
		case *f.Score >= t.High:
			b.High = append(b.High, e)
		case *f.Score >= t.Good:
			b.Good = append(b.Good, e)
		default:
			b.NeedsImprovement = append(b.NeedsImprovement, e)
		}
	}
	return b
}

// AverageOf is the mean score of the given entries, 0 when none are scored.
func AverageOf(groups ...[]Entry) float64 {
	var sum float64
	var n int
	for _, g := range groups {
		for _, e := range g {
			if e.Score == nil {
				continue
			}
			sum += *e.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round2(sum / float64(n))
}

// Weights for the blended overall quality score.
const (
	TriageWeight   = 0.5
	QualityWeight  = 0.3
	AppetiteWeight = 0.2
)

// Overall blends triage completeness, average confidence and appetite
// completeness into one 0-100 score.
func Overall(triage, averageQuality, appetite float64) float64 {
	return round2(triage*TriageWeight + averageQuality*QualityWeight + appetite*AppetiteWeight)
}
