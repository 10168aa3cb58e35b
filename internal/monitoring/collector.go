package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/store"
)

// maxCollectRecords bounds a single snapshot query.
const maxCollectRecords = 10000

// ToolStats summarizes one tool's runs.
type ToolStats struct {
	Total         int     `json:"total"`
	Success       int     `json:"success"`
	Errors        int     `json:"errors"`
	AvgQuality    float64 `json:"avg_quality"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// MetricsSnapshot is a point-in-time view of stored analysis outcomes.
type MetricsSnapshot struct {
	Total           int                  `json:"total"`
	Success         int                  `json:"success"`
	Errors          int                  `json:"errors"`
	ErrorRate       float64              `json:"error_rate"`
	Scored          int                  `json:"scored"`
	AvgQualityScore float64              `json:"avg_quality_score"`
	ByTool          map[string]ToolStats `json:"by_tool"`
	ByTier          map[string]int       `json:"by_tier"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// AnalysisLister is the store method the collector reads.
type AnalysisLister interface {
	ListAnalyses(ctx context.Context, filter store.AnalysisFilter) ([]store.AnalysisRecord, error)
}

// Collector gathers snapshots from stored analysis records.
type Collector struct {
	store AnalysisLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st AnalysisLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect summarizes the analyses recorded in the last lookbackHours.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		ByTool:        map[string]ToolStats{},
		ByTier:        map[string]int{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	recs, err := c.store.ListAnalyses(ctx, store.AnalysisFilter{
		Since: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit: maxCollectRecords,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list analyses")
	}

	type acc struct {
		stats    ToolStats
		quality  float64
		scored   int
		duration int64
	}
	tools := map[string]*acc{}
	var totalQuality float64

	for _, r := range recs {
		a := tools[r.Tool]
		if a == nil {
			a = &acc{}
			tools[r.Tool] = a
		}
		a.stats.Total++
		a.duration += r.DurationMs
		snap.Total++

		if r.Status != "success" {
			a.stats.Errors++
			snap.Errors++
			continue
		}
		a.stats.Success++
		snap.Success++
		if r.Tier != "" {
			snap.ByTier[r.Tier]++
		}
		if r.QualityScore > 0 {
			a.quality += r.QualityScore
			a.scored++
			totalQuality += r.QualityScore
			snap.Scored++
		}
	}

	for tool, a := range tools {
		if a.scored > 0 {
			a.stats.AvgQuality = a.quality / float64(a.scored)
		}
		a.stats.AvgDurationMs = float64(a.duration) / float64(a.stats.Total)
		snap.ByTool[tool] = a.stats
	}
	if snap.Total > 0 {
		snap.ErrorRate = float64(snap.Errors) / float64(snap.Total)
	}
	if snap.Scored > 0 {
		snap.AvgQualityScore = totalQuality / float64(snap.Scored)
	}
	return snap, nil
}
