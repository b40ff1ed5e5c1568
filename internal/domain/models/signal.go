package models

import "time"

// RiskLevel classifies how risky acting on a fused signal would be.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// SentimentSummary is the confidence-weighted sentiment across all sources.
type SentimentSummary struct {
	Score    float64 // [-1,1]
	Label    string  // "bullish", "bearish", "neutral"
	Keywords []string
}

// SocialMetrics aggregates social-type sources for one cycle.
type SocialMetrics struct {
	Mentions   int
	Engagement float64
	Velocity   float64 // mentions per hour
	Reach      int64
	Trending   bool
}

// TradingSignals holds per-source signals in [-1,1] and the combined score.
// A source that produced no data this cycle stays at zero; Present lists the
// sources that actually reported, and Combined is renormalized over those.
type TradingSignals struct {
	Insider  float64
	Congress float64
	Social   float64
	News     float64
	Combined float64
	Present  []SourceType
}

// AggregatedSignal is the per-instrument fused output of one orchestration
// cycle. Derived data: built fresh each cycle and never persisted as-is.
type AggregatedSignal struct {
	Symbol           string
	Timestamp        time.Time
	Sources          []string
	OverallSentiment SentimentSummary
	SocialMetrics    SocialMetrics
	TradingSignals   TradingSignals
	Confidence       float64 // [0,1]
	RiskLevel        RiskLevel
	Alerts           []Alert
}
