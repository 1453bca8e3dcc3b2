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

	"github.com/sells-group/dealbook/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertMetricsStale AlertType = "metrics_stale"
	AlertMetricsEmpty AlertType = "metrics_empty"
	AlertLowCoverage  AlertType = "low_fact_coverage"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type" yaml:"type"`
	Severity  string         `json:"severity" yaml:"severity"`
	Message   string         `json:"message" yaml:"message"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
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
	now := snap.CollectedAt

	// Booked deals exist but no fact was ever synced for them.
	age, synced := snap.MetricsAge()
	if !synced && snap.BookedWithDeal > 0 {
		alerts = append(alerts, Alert{
			Type:      AlertMetricsEmpty,
			Severity:  "high",
			Message:   fmt.Sprintf("No deal metrics synced for %d booked deal(s)", snap.BookedWithDeal),
			Details:   map[string]any{"booked_with_deal": snap.BookedWithDeal},
			Timestamp: now,
		})
	}

	if synced && a.cfg.StaleAfter > 0 && age > a.cfg.StaleAfter {
		alerts = append(alerts, Alert{
			Type:     AlertMetricsStale,
			Severity: "high",
			Message: fmt.Sprintf(
				"Deal metrics last synced %s ago, older than %s",
				age.Round(time.Minute), a.cfg.StaleAfter,
			),
			Details: map[string]any{
				"latest_sync": snap.LatestMetricsSync,
				"stale_after": a.cfg.StaleAfter.String(),
			},
			Timestamp: now,
		})
	}

	// Small samples make the ratio meaningless.
	if snap.BookedWithDeal >= max(a.cfg.MinSamples, 1) && snap.FactCoverage < a.cfg.MinFactCoverage {
		alerts = append(alerts, Alert{
			Type:     AlertLowCoverage,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Deal metric coverage %.1f%% below threshold %.1f%% (%d usable / %d booked)",
				snap.FactCoverage*100, a.cfg.MinFactCoverage*100,
				snap.UsableFacts, snap.BookedWithDeal,
			),
			Details: map[string]any{
				"coverage":         snap.FactCoverage,
				"threshold":        a.cfg.MinFactCoverage,
				"usable_facts":     snap.UsableFacts,
				"booked_with_deal": snap.BookedWithDeal,
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
