package models

import "time"

// AlertType names the feed a rule evaluates against.
type AlertType string

const (
	AlertInsiderTrade   AlertType = "insider_trade"
	AlertCongressTrade  AlertType = "congress_trade"
	AlertSentimentSpike AlertType = "sentiment_spike"
	AlertPriceAnomaly   AlertType = "price_anomaly"
	AlertBreakingNews   AlertType = "breaking_news"
	AlertEarnings       AlertType = "earnings"
	AlertCombinedSignal AlertType = "combined_signal"
)

// Severity levels, ordered.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityWeight maps severity to its analysis priority contribution.
func SeverityWeight(s Severity) float64 {
	switch s {
	case SeverityCritical:
		return 100
	case SeverityHigh:
		return 75
	case SeverityMedium:
		return 50
	case SeverityLow:
		return 25
	default:
		return 0
	}
}

// AlertStatus is the analysis state machine of an alert.
type AlertStatus string

const (
	StatusTriggered         AlertStatus = "triggered"
	StatusAnalysisQueued    AlertStatus = "analysis_queued"
	StatusAnalysisRunning   AlertStatus = "analysis_running"
	StatusAnalysisCompleted AlertStatus = "analysis_completed"
	StatusAnalysisFailed    AlertStatus = "analysis_failed"
)

// Terminal reports whether the status admits no further transitions.
func (s AlertStatus) Terminal() bool {
	return s == StatusAnalysisCompleted || s == StatusAnalysisFailed
}

// AlertThreshold is the operator-configured trigger policy of a rule.
// Condition values are numbers or string lists; absent keys are unconstrained.
type AlertThreshold struct {
	AlertType             AlertType              `json:"alert_type"`
	Severity              Severity               `json:"severity"`
	Conditions            map[string]interface{} `json:"conditions"`
	CooldownPeriodMinutes int                    `json:"cooldown_period_minutes"`
	NotificationChannels  []string               `json:"notification_channels"`
	AutoTriggerAnalysis   bool                   `json:"auto_trigger_analysis"`
	AnalysisModules       []string               `json:"analysis_modules"`
}

// Effectiveness tracks how often a rule's alerts turned out to matter.
type Effectiveness struct {
	TruePositives   int     `json:"true_positives"`
	FalsePositives  int     `json:"false_positives"`
	TotalTriggers   int     `json:"total_triggers"`
	AvgMarketImpact float64 `json:"avg_market_impact"`
}

// AlertRule is a persisted threshold definition. Counters mutate on every
// trigger; the rule lives for the process lifetime and survives restarts.
type AlertRule struct {
	ID             string
	Name           string
	Description    string
	Enabled        bool
	Threshold      AlertThreshold
	CreatedAt      time.Time
	UpdatedAt      time.Time
	TriggeredCount int
	Effectiveness  Effectiveness
}

// AlertMetadata carries provenance and the suppression window end.
type AlertMetadata struct {
	Source        string    `json:"source"`
	Confidence    float64   `json:"confidence"`
	SuppressUntil time.Time `json:"suppress_until"`
}

// MarketImpact is the externally measured outcome of an alert.
type MarketImpact struct {
	PriceChangePercent float64   `json:"price_change_percent"`
	Window             string    `json:"window"`
	MeasuredAt         time.Time `json:"measured_at"`
}

// Alert is a single triggered event. TriggerData and Timestamp are immutable;
// everything else mutates in place until a terminal status is reached.
type Alert struct {
	ID                  string
	Type                AlertType
	Severity            Severity
	Symbol              string
	Title               string
	Description         string
	Status              AlertStatus
	TriggerData         map[string]interface{}
	Timestamp           time.Time
	AnalysisTriggered   bool
	AnalysisSessionID   string
	AnalysisCompleted   bool
	AnalysisResults     map[string]interface{}
	NotificationsSent   []string
	NotificationsFailed []string
	MarketImpact        *MarketImpact
	UserActions         []string
	Metadata            AlertMetadata
}

// AnalysisJob is a queued request for deep analysis of an alert.
// Destroyed once dispatched.
type AnalysisJob struct {
	Alert      *Alert
	Priority   float64
	Modules    []string
	EnqueuedAt time.Time
}

// NotificationPayload is the alert-derived payload handed to every channel.
type NotificationPayload struct {
	AlertID     string    `json:"alert_id"`
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	Symbol      string    `json:"symbol"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Confidence  float64   `json:"confidence"`
}

// PayloadFrom builds the notification payload for an alert.
func PayloadFrom(a *Alert) NotificationPayload {
	return NotificationPayload{
		AlertID:     a.ID,
		Type:        a.Type,
		Severity:    a.Severity,
		Symbol:      a.Symbol,
		Title:       a.Title,
		Description: a.Description,
		Timestamp:   a.Timestamp,
		Confidence:  a.Metadata.Confidence,
	}
}

// TypeEffectiveness is the per-type aggregate exposed by the query API.
type TypeEffectiveness struct {
	TotalTriggers   int     `json:"total_triggers"`
	TruePositives   int     `json:"true_positives"`
	FalsePositives  int     `json:"false_positives"`
	Accuracy        float64 `json:"accuracy"`
	AvgMarketImpact float64 `json:"avg_market_impact"`
}

// AnalysisRequest is the opaque request sent to the external analysis engine.
type AnalysisRequest struct {
	SessionID         string                 `json:"session_id"`
	Symbol            string                 `json:"symbol"`
	RequestedModules  []string               `json:"requested_modules"`
	Priority          float64                `json:"priority"`
	AllowFallbacks    bool                   `json:"allow_fallbacks"`
	RequireValidation bool                   `json:"require_validation"`
	Inputs            map[string]interface{} `json:"inputs"`
}

// AnalysisResult is the engine's response payload.
type AnalysisResult struct {
	Success   bool                   `json:"success"`
	Results   map[string]interface{} `json:"results"`
	SessionID string                 `json:"session_id"`
}

// TriggerEvent is one live observation a rule's conditions evaluate against.
type TriggerEvent struct {
	Symbol string
	Source string
	Fields map[string]interface{}
}
