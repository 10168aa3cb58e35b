package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker periodically evaluates the stored analysis window, publishes the
// window's error rate and quality to Metrics, and raises alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	metrics   *Metrics
	interval  time.Duration
	lookback  int
}

// NewChecker builds a checker. metrics may be nil.
func NewChecker(collector *Collector, alerter *Alerter, metrics *Metrics, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		metrics:   metrics,
		interval:  interval,
		lookback:  cfg.LookbackWindowHours,
	}
}

// Run evaluates once at startup and then on every tick until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: watching analysis window",
		zap.Duration("interval", c.interval),
		zap.Int("lookback_hours", c.lookback),
	)

	c.check(ctx, log)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

// check collects one window and returns the alerts it raised.
func (c *Checker) check(ctx context.Context, log *zap.Logger) []Alert {
	snap, err := c.collector.Collect(ctx, c.lookback)
	if err != nil {
		log.Error("monitoring: collect analysis window", zap.Error(err))
		return nil
	}

	alerts := c.alerter.Evaluate(snap)
	sent := 0
	if len(alerts) > 0 {
		sent = c.alerter.SendAlerts(ctx, alerts)
	}
	if c.metrics != nil {
		c.metrics.ObserveWindow(snap, alerts, sent)
	}

	log.Debug("monitoring: window checked",
		zap.Int("analyses", snap.Total),
		zap.Float64("error_rate", snap.ErrorRate),
		zap.Float64("avg_quality_score", snap.AvgQualityScore),
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return alerts
}
