package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertErrorRate  AlertType = "analysis_error_rate"
	AlertLowQuality AlertType = "low_submission_quality"
)

// minSample is the number of runs needed before a rate alert can fire.
const minSample = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.ErrorRateThreshold > 0 && snap.Total >= minSample && snap.ErrorRate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertErrorRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Analysis error rate %.1f%% exceeds threshold %.1f%% (%d failed / %d runs in last %dh)",
				snap.ErrorRate*100, a.cfg.ErrorRateThreshold*100,
				snap.Errors, snap.Total, snap.LookbackHours,
			),
			Details: map[string]any{
				"error_rate": snap.ErrorRate,
				"threshold":  a.cfg.ErrorRateThreshold,
				"errors":     snap.Errors,
				"total":      snap.Total,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MinAvgQuality > 0 && snap.Scored >= minSample && snap.AvgQualityScore < a.cfg.MinAvgQuality {
		alerts = append(alerts, Alert{
			Type:     AlertLowQuality,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Average submission quality %.1f is below %.1f across %d scored runs in last %dh",
				snap.AvgQualityScore, a.cfg.MinAvgQuality, snap.Scored, snap.LookbackHours,
			),
			Details: map[string]any{
				"avg_quality": snap.AvgQualityScore,
				"minimum":     a.cfg.MinAvgQuality,
				"by_tier":     snap.ByTier,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
