package models

// Requests for the alerting HTTP endpoints. Defined in domain for consistency and reuse.

type AlertHistoryRequest struct {
	Type      string `query:"type" json:"type" validate:"omitempty,oneof=insider_trade congress_trade sentiment_spike price_anomaly breaking_news earnings combined_signal"`
	Severity  string `query:"severity" json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Symbol    string `query:"symbol" json:"symbol"`
	StartTime string `query:"start_time" json:"start_time"`
	EndTime   string `query:"end_time" json:"end_time"`
	Limit     int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type CreateRuleRequest struct {
	Name                  string                 `json:"name" validate:"required"`
	Description           string                 `json:"description"`
	Enabled               *bool                  `json:"enabled"`
	AlertType             string                 `json:"alert_type" validate:"required,oneof=insider_trade congress_trade sentiment_spike price_anomaly breaking_news earnings combined_signal"`
	Severity              string                 `json:"severity" default:"medium" validate:"oneof=low medium high critical"`
	Conditions            map[string]interface{} `json:"conditions"`
	CooldownPeriodMinutes int                    `json:"cooldown_period_minutes" default:"60" validate:"gte=0,lte=10080"`
	NotificationChannels  []string               `json:"notification_channels"`
	AutoTriggerAnalysis   bool                   `json:"auto_trigger_analysis"`
	AnalysisModules       []string               `json:"analysis_modules"`
}

type UpdateRuleRequest struct {
	Name                  *string                `json:"name"`
	Description           *string                `json:"description"`
	Enabled               *bool                  `json:"enabled"`
	Severity              *string                `json:"severity" validate:"omitempty,oneof=low medium high critical"`
	Conditions            map[string]interface{} `json:"conditions"`
	CooldownPeriodMinutes *int                   `json:"cooldown_period_minutes" validate:"omitempty,gte=0,lte=10080"`
	NotificationChannels  []string               `json:"notification_channels"`
	AutoTriggerAnalysis   *bool                  `json:"auto_trigger_analysis"`
	AnalysisModules       []string               `json:"analysis_modules"`
}

type CollectRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}
