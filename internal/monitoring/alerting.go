package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// AlertSeverity grades how urgent an alert is.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityError    AlertSeverity = "error"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	StatusActive     AlertStatus = "active"
	StatusResolved   AlertStatus = "resolved"
	StatusSuppressed AlertStatus = "suppressed"
)

// Alert is one fired rule instance.
type Alert struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Severity    AlertSeverity `json:"severity"`
	Status      AlertStatus   `json:"status"`
	Value       float64       `json:"value"`
	Threshold   float64       `json:"threshold"`
	FiredAt     time.Time     `json:"fired_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`

	silencedUntil time.Time
}

// AlertRule fires when a probed value crosses its threshold and stays there
// for the For duration.
type AlertRule struct {
	Name        string
	Query       string
	Threshold   float64
	Operator    string // "gt" or "lt"
	Severity    AlertSeverity
	Description string
	For         time.Duration
}

// AlertNotifier delivers alert state changes to an external channel.
type AlertNotifier interface {
	SendAlert(ctx context.Context, alert *Alert) error
	ResolveAlert(ctx context.Context, alert *Alert) error
}

// SlackNotifier posts alerts to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendAlert posts the firing alert to the webhook.
func (s *SlackNotifier) SendAlert(ctx context.Context, alert *Alert) error {
	text := fmt.Sprintf(":rotating_light: [%s] %s: %s (value %.2f, threshold %.2f)",
		alert.Severity, alert.Name, alert.Description, alert.Value, alert.Threshold)
	return s.post(ctx, text)
}

// ResolveAlert posts the resolution to the webhook.
func (s *SlackNotifier) ResolveAlert(ctx context.Context, alert *Alert) error {
	return s.post(ctx, fmt.Sprintf(":white_check_mark: Resolved: %s", alert.Name))
}

func (s *SlackNotifier) post(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// AlertManager evaluates rules against live application metrics and keeps the
// firing state.
type AlertManager struct {
	mu            sync.RWMutex
	rules         []AlertRule
	alerts        map[string]*Alert
	pendingSince  map[string]time.Time
	notifiers     []AlertNotifier
	logger        *Logger
	metrics       *Metrics
	memory        *MemoryMonitor
	checkInterval time.Duration
}

// NewAlertManager creates a manager probing the given metrics and memory
// monitor. Either source may be nil; rules needing it stay silent.
func NewAlertManager(logger *Logger, metrics *Metrics, memory *MemoryMonitor, checkInterval time.Duration) *AlertManager {
	return &AlertManager{
		alerts:        make(map[string]*Alert),
		pendingSince:  make(map[string]time.Time),
		logger:        logger,
		metrics:       metrics,
		memory:        memory,
		checkInterval: checkInterval,
	}
}

// AddRule registers a rule.
func (am *AlertManager) AddRule(rule AlertRule) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.rules = append(am.rules, rule)
}

// AddNotifier registers a notifier.
func (am *AlertManager) AddNotifier(notifier AlertNotifier) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.notifiers = append(am.notifiers, notifier)
}

// Start runs the evaluation loop until ctx is cancelled.
func (am *AlertManager) Start(ctx context.Context) {
	ticker := time.NewTicker(am.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			am.evaluateRules(ctx)
		}
	}
}

func (am *AlertManager) evaluateRules(ctx context.Context) {
	am.mu.RLock()
	rules := make([]AlertRule, len(am.rules))
	copy(rules, am.rules)
	am.mu.RUnlock()

	for _, rule := range rules {
		am.evaluateRule(ctx, rule)
	}
}

func (am *AlertManager) evaluateRule(ctx context.Context, rule AlertRule) {
	value, ok := am.probe(rule.Query)
	if !ok {
		am.logger.SystemLogger("unknown_alert_query", fmt.Sprintf("Unknown query type: %s", rule.Query))
		return
	}

	conditionMet := false
	switch rule.Operator {
	case "gt":
		conditionMet = value > rule.Threshold
	case "lt":
		conditionMet = value < rule.Threshold
	}

	am.mu.Lock()

	alert, exists := am.alerts[rule.Name]

	if !conditionMet {
		delete(am.pendingSince, rule.Name)
		if exists && alert.Status == StatusActive {
			now := time.Now()
			alert.Status = StatusResolved
			alert.ResolvedAt = &now
			am.mu.Unlock()
			am.notifyResolved(ctx, alert)
			return
		}
		am.mu.Unlock()
		return
	}

	// Condition met: fire only after it has held for the rule's For window
	since, pending := am.pendingSince[rule.Name]
	if !pending {
		am.pendingSince[rule.Name] = time.Now()
		am.mu.Unlock()
		return
	}
	if time.Since(since) < rule.For {
		am.mu.Unlock()
		return
	}

	if exists && alert.Status == StatusSuppressed && time.Now().Before(alert.silencedUntil) {
		am.mu.Unlock()
		return
	}

	if !exists || alert.Status != StatusActive {
		alert = &Alert{
			ID:          rule.Name,
			Name:        rule.Name,
			Description: rule.Description,
			Severity:    rule.Severity,
			Status:      StatusActive,
			Value:       value,
			Threshold:   rule.Threshold,
			FiredAt:     time.Now(),
		}
		am.alerts[rule.Name] = alert
		am.mu.Unlock()
		am.notifyFired(ctx, alert)
		return
	}

	alert.Value = value
	am.mu.Unlock()
}

// probe reads the named value from the live metric sources.
func (am *AlertManager) probe(query string) (float64, bool) {
	switch query {
	case "error_rate":
		if am.metrics == nil {
			return 0, true
		}
		requests, errors := am.metrics.RequestTotals()
		if requests == 0 {
			return 0, true
		}
		return float64(errors) / float64(requests) * 100, true

	case "response_time_p95":
		if am.metrics == nil {
			return 0, true
		}
		return float64(am.metrics.GetPercentileResponseTime(95).Milliseconds()), true

	case "heap_utilization":
		if am.memory == nil {
			return 0, true
		}
		if v, ok := am.memory.GetStats()["heap_utilization"].(float64); ok {
			return v * 100, true
		}
		return 0, true

	case "backend_error_rate":
		if am.metrics == nil {
			return 0, true
		}
		requests, errors := am.metrics.ExternalAPITotals()
		if requests == 0 {
			return 0, true
		}
		return float64(errors) / float64(requests) * 100, true

	default:
		return 0, false
	}
}

func (am *AlertManager) notifyFired(ctx context.Context, alert *Alert) {
	am.logger.SystemLogger("alert_fired", fmt.Sprintf("Alert %s fired with severity %s", alert.Name, alert.Severity))

	am.mu.RLock()
	notifiers := make([]AlertNotifier, len(am.notifiers))
	copy(notifiers, am.notifiers)
	am.mu.RUnlock()

	for _, notifier := range notifiers {
		go func(n AlertNotifier) {
			if err := n.SendAlert(ctx, alert); err != nil {
				am.logger.SystemLogger("alert_notification_failed", fmt.Sprintf("Failed to send alert %s: %v", alert.Name, err))
			}
		}(notifier)
	}
}

func (am *AlertManager) notifyResolved(ctx context.Context, alert *Alert) {
	am.logger.SystemLogger("alert_resolved", fmt.Sprintf("Alert %s resolved", alert.Name))

	am.mu.RLock()
	notifiers := make([]AlertNotifier, len(am.notifiers))
	copy(notifiers, am.notifiers)
	am.mu.RUnlock()

	for _, notifier := range notifiers {
		go func(n AlertNotifier) {
			if err := n.ResolveAlert(ctx, alert); err != nil {
				am.logger.SystemLogger("alert_resolution_failed", fmt.Sprintf("Failed to resolve alert %s: %v", alert.Name, err))
			}
		}(notifier)
	}
}

// GetAlerts returns a copy of every known alert.
func (am *AlertManager) GetAlerts() map[string]*Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	alerts := make(map[string]*Alert, len(am.alerts))
	for k, v := range am.alerts {
		alerts[k] = v
	}
	return alerts
}

// GetActiveAlerts returns only the currently firing alerts.
func (am *AlertManager) GetActiveAlerts() map[string]*Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	active := make(map[string]*Alert)
	for k, v := range am.alerts {
		if v.Status == StatusActive {
			active[k] = v
		}
	}
	return active
}

// SilenceAlert suppresses an alert for the given duration.
func (am *AlertManager) SilenceAlert(alertID string, duration time.Duration) {
	am.mu.Lock()
	defer am.mu.Unlock()

	if alert, exists := am.alerts[alertID]; exists {
		alert.Status = StatusSuppressed
		alert.silencedUntil = time.Now().Add(duration)
		am.logger.SystemLogger("alert_silenced", fmt.Sprintf("Alert %s silenced for %v", alert.Name, duration))
	}
}

// DefaultAlertRules covers the failure modes worth waking someone for.
var DefaultAlertRules = []AlertRule{
	{
		Name:        "HighErrorRate",
		Query:       "error_rate",
		Threshold:   10.0,
		Operator:    "gt",
		Severity:    SeverityWarning,
		Description: "More than 10% of requests are failing",
		For:         5 * time.Minute,
	},
	{
		Name:        "SlowResponses",
		Query:       "response_time_p95",
		Threshold:   1000.0,
		Operator:    "gt",
		Severity:    SeverityWarning,
		Description: "95th percentile response time is above 1000ms",
		For:         2 * time.Minute,
	},
	{
		Name:        "HighHeapUtilization",
		Query:       "heap_utilization",
		Threshold:   90.0,
		Operator:    "gt",
		Severity:    SeverityCritical,
		Description: "Heap utilization is above 90%",
		For:         1 * time.Minute,
	},
	{
		Name:        "ReferenceAPIFailing",
		Query:       "backend_error_rate",
		Threshold:   50.0,
		Operator:    "gt",
		Severity:    SeverityError,
		Description: "More than half of reference wellness API calls are failing",
		For:         5 * time.Minute,
	},
}

var globalAlertManager *AlertManager

// InitGlobalAlertManager installs the process-wide alert manager with the
// default rules.
func InitGlobalAlertManager(logger *Logger, metrics *Metrics, memory *MemoryMonitor, checkInterval time.Duration) {
	globalAlertManager = NewAlertManager(logger, metrics, memory, checkInterval)
	for _, rule := range DefaultAlertRules {
		globalAlertManager.AddRule(rule)
	}
}

// GetGlobalAlertManager returns the process-wide alert manager.
func GetGlobalAlertManager() *AlertManager {
	return globalAlertManager
}

// StartGlobalAlerting starts the evaluation loop in the background.
func StartGlobalAlerting(ctx context.Context) {
	if globalAlertManager != nil {
		go globalAlertManager.Start(ctx)
	}
}
