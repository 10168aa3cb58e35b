package main

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/store"
	"github.com/sells-group/intake-cli/internal/submission"
	"github.com/sells-group/intake-cli/internal/trend"
	"github.com/sells-group/intake-cli/internal/valuation"
)

const (
	statusSuccess = string(submission.StatusSuccess)
	statusError   = string(submission.StatusError)
)

// outcome describes one finished analyzer call for recording.
type outcome struct {
	tool    string
	txID    string
	ok      bool
	quality float64
	scored  bool
	tier    string
	result  any
}

// analyze runs the submission analyzer. A nil mods map skips the
// modification step.
func (e *appEnv) analyze(ctx context.Context, txID string, doc any, mods map[string]any) submission.Result {
	start := time.Now()
	var res submission.Result
	if mods != nil {
		res = e.Analyzer.AnalyzeWithModifications(doc, mods)
	} else {
		res = e.Analyzer.Analyze(doc)
	}

	o := outcome{tool: store.ToolSubmissionAnalyzer, txID: txID, ok: res.Status == submission.StatusSuccess, result: res}
	if res.Data != nil && o.ok {
		o.quality = res.Data.Quality.AverageScore
		o.scored = true
		o.tier = string(res.Data.Quality.Tier)
	}
	e.record(ctx, o, time.Since(start))
	return res
}

// check runs the completeness checker against the stored submission.
func (e *appEnv) check(ctx context.Context, txID string, mods map[string]any) submission.Report {
	start := time.Now()
	rep := e.Checker.Check(ctx, txID, mods)

	ok := rep.Status == submission.StatusSuccess
	e.record(ctx, outcome{
		tool:    store.ToolCompletenessChecker,
		txID:    txID,
		ok:      ok,
		quality: rep.Summary.QualityScore,
		scored:  ok,
		tier:    rep.Summary.OverallStatus,
		result:  rep,
	}, time.Since(start))
	return rep
}

// valuate runs the property valuation tool.
func (e *appEnv) valuate(ctx context.Context, txID string, doc any, opts valuation.Options) valuation.Report {
	start := time.Now()
	rep := e.Valuation.Analyze(doc, opts)

	e.record(ctx, outcome{
		tool:   store.ToolValuation,
		txID:   txID,
		ok:     rep.OK(),
		tier:   rep.Summary.ValuationQuality,
		result: rep,
	}, time.Since(start))
	return rep
}

// trends runs the valuation trend analyzer.
func (e *appEnv) trends(ctx context.Context, txID string, history any, opts trend.Options) trend.Report {
	start := time.Now()
	rep := e.Trends.Analyze(history, opts)

	e.record(ctx, outcome{
		tool:   store.ToolTrends,
		txID:   txID,
		ok:     rep.OK(),
		tier:   rep.Summary.OverallTrend,
		result: rep,
	}, time.Since(start))
	return rep
}

// record updates metrics and, when a store is attached, saves the run.
// Recording failures are logged and never fail the call.
func (e *appEnv) record(ctx context.Context, o outcome, elapsed time.Duration) {
	status := statusSuccess
	if !o.ok {
		status = statusError
	}
	if e.Metrics != nil {
		e.Metrics.ObserveAnalysis(o.tool, status, elapsed, o.quality, o.scored)
	}
	if e.Store == nil {
		return
	}

	body, err := json.Marshal(o.result)
	if err != nil {
		zap.L().Warn("encode analysis result", zap.String("tool", o.tool), zap.Error(err))
		body = nil
	}
	rec := &store.AnalysisRecord{
		Tool:          o.tool,
		TransactionID: o.txID,
		Status:        status,
		QualityScore:  o.quality,
		Tier:          o.tier,
		DurationMs:    elapsed.Milliseconds(),
		Result:        body,
	}
	if err := e.Store.SaveAnalysis(ctx, rec); err != nil {
		zap.L().Warn("save analysis record",
			zap.String("tool", o.tool),
			zap.String("transaction_id", o.txID),
			zap.Error(err),
		)
	}
}
