package usecase

import (
	"fmt"
	"math"
	"sort"
	"time"

	"SignalFuse/internal/domain/models"
)

// Signal fusion: pure functions turning per-source batches into one composite
// signal. No I/O here; the orchestrator owns clocks, ids, and persistence.

const (
	maxSentimentKeywords = 10

	// Per-category weights for the combined trading signal. Renormalized over
	// the sources that actually reported data in a cycle, so a missing source
	// does not drag the score toward zero.
	weightInsider  = 0.30
	weightCongress = 0.20
	weightSocial   = 0.25
	weightNews     = 0.25

	// Recency half-life for item weighting inside a source signal.
	recencyHalfLife = 6 * time.Hour

	trendingVelocity = 30.0 // mentions per hour
)

func categoryWeight(s models.SourceType) float64 {
	switch s {
	case models.SourceInsider:
		return weightInsider
	case models.SourceCongress:
		return weightCongress
	case models.SourceSocial:
		return weightSocial
	case models.SourceNews:
		return weightNews
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sentimentLabel(score float64) string {
	switch {
	case score > 0.15:
		return "bullish"
	case score < -0.15:
		return "bearish"
	default:
		return "neutral"
	}
}

// BuildSignal fuses the successful batches of one cycle into an
// AggregatedSignal. With no batches it still returns a well-formed signal:
// empty sources, confidence 0, risk low.
func BuildSignal(symbol string, now time.Time, batches []*models.CollectedBatch) *models.AggregatedSignal {
	sig := &models.AggregatedSignal{
		Symbol:    symbol,
		Timestamp: now,
		Sources:   []string{},
		RiskLevel: models.RiskLow,
	}

	nonEmpty := make([]*models.CollectedBatch, 0, len(batches))
	for _, b := range batches {
		if b == nil {
			continue
		}
		sig.Sources = append(sig.Sources, string(b.CollectorType))
		if !b.Empty() {
			nonEmpty = append(nonEmpty, b)
		}
	}
	sort.Strings(sig.Sources)

	sig.OverallSentiment = OverallSentiment(nonEmpty)
	sig.SocialMetrics = SocialMetricsFrom(nonEmpty)
	sig.TradingSignals = FuseTradingSignals(nonEmpty, now)
	sig.Confidence = FuseConfidence(batches)
	sig.RiskLevel = RiskFrom(sig.TradingSignals.Combined, sig.Confidence)
	sig.Alerts = AdHocAlerts(sig)
	return sig
}

// OverallSentiment computes the confidence-weighted average sentiment across
// every data point of every source, with the keyword union capped.
func OverallSentiment(batches []*models.CollectedBatch) models.SentimentSummary {
	var sum, weight float64
	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxSentimentKeywords)

	for _, b := range batches {
		for i := range b.Items {
			it := &b.Items[i]
			w := clamp(it.Confidence, 0, 1)
			sum += it.Sentiment * w
			weight += w
			for _, kw := range it.Keywords {
				if len(keywords) >= maxSentimentKeywords {
					break
				}
				if _, ok := seen[kw]; ok {
					continue
				}
				seen[kw] = struct{}{}
				keywords = append(keywords, kw)
			}
		}
	}

	var score float64
	if weight > 0 {
		score = clamp(sum/weight, -1, 1)
	}
	return models.SentimentSummary{
		Score:    score,
		Label:    sentimentLabel(score),
		Keywords: keywords,
	}
}

// SocialMetricsFrom sums mentions, engagement, and reach across social-type
// sources and derives velocity from the batch time range.
func SocialMetricsFrom(batches []*models.CollectedBatch) models.SocialMetrics {
	var m models.SocialMetrics
	var oldest, newest time.Time

	for _, b := range batches {
		if b.CollectorType != models.SourceSocial {
			continue
		}
		m.Mentions += len(b.Items)
		for i := range b.Items {
			it := &b.Items[i]
			m.Engagement += it.Value
			if r, ok := it.Metadata["reach"].(int64); ok {
				m.Reach += r
			}
		}
		tr := b.Summary.TimeRange
		if oldest.IsZero() || tr.From.Before(oldest) {
			oldest = tr.From
		}
		if tr.To.After(newest) {
			newest = tr.To
		}
	}

	if m.Mentions > 0 {
		hours := newest.Sub(oldest).Hours()
		if hours < 1 {
			hours = 1
		}
		m.Velocity = float64(m.Mentions) / hours
		m.Trending = m.Velocity >= trendingVelocity
	}
	return m
}

// SourceSignal reduces one batch to a signal in [-1,1], weighting more recent
// and higher-significance items more heavily.
func SourceSignal(b *models.CollectedBatch, now time.Time) float64 {
	if b.Empty() {
		return 0
	}
	var sum, weight float64
	for i := range b.Items {
		it := &b.Items[i]
		age := now.Sub(it.Timestamp)
		if age < 0 {
			age = 0
		}
		recency := math.Exp2(-age.Hours() / recencyHalfLife.Hours())
		w := clamp(it.Confidence, 0, 1) * (0.5 + 0.5*clamp(it.Significance, 0, 1)) * recency
		sum += it.Sentiment * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return clamp(sum/weight, -1, 1)
}

// FuseTradingSignals computes per-source signals and the combined score as a
// weighted average over only the sources that produced data, with the fixed
// category weights renormalized over the present set.
func FuseTradingSignals(batches []*models.CollectedBatch, now time.Time) models.TradingSignals {
	ts := models.TradingSignals{Present: []models.SourceType{}}
	per := make(map[models.SourceType]float64, len(batches))

	for _, b := range batches {
		if b.Empty() {
			continue
		}
		v := SourceSignal(b, now)
		per[b.CollectorType] = v
		ts.Present = append(ts.Present, b.CollectorType)
		switch b.CollectorType {
		case models.SourceInsider:
			ts.Insider = v
		case models.SourceCongress:
			ts.Congress = v
		case models.SourceSocial:
			ts.Social = v
		case models.SourceNews:
			ts.News = v
		}
	}
	sort.Slice(ts.Present, func(i, j int) bool { return ts.Present[i] < ts.Present[j] })

	var sum, weight float64
	for src, v := range per {
		w := categoryWeight(src)
		sum += v * w
		weight += w
	}
	if weight > 0 {
		ts.Combined = clamp(sum/weight, -1, 1)
	}
	return ts
}

// FuseConfidence is the mean of each successful source's batch-level average
// confidence. Zero sources yields zero.
func FuseConfidence(batches []*models.CollectedBatch) float64 {
	var sum float64
	var n int
	for _, b := range batches {
		if b == nil {
			continue
		}
		sum += clamp(b.Summary.AvgConfidence, 0, 1)
		n++
	}
	if n == 0 {
		return 0
	}
	return clamp(sum/float64(n), 0, 1)
}

// RiskFrom classifies risk: a strong signal the system barely trusts is the
// most dangerous combination.
func RiskFrom(combined, confidence float64) models.RiskLevel {
	score := math.Abs(combined) * (1 - clamp(confidence, 0, 1))
	switch {
	case score > 0.7:
		return models.RiskHigh
	case score > 0.3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// AdHocAlerts runs the cheap always-on checks against a fused signal. These
// are synchronous and independent of the durable rule engine; the caller
// assigns ids and decides what to do with them.
func AdHocAlerts(sig *models.AggregatedSignal) []models.Alert {
	var alerts []models.Alert
	now := sig.Timestamp

	if math.Abs(sig.TradingSignals.Combined) > 0.7 {
		direction := "bullish"
		if sig.TradingSignals.Combined < 0 {
			direction = "bearish"
		}
		alerts = append(alerts, models.Alert{
			Type:     models.AlertCombinedSignal,
			Severity: models.SeverityHigh,
			Symbol:   sig.Symbol,
			Title:    fmt.Sprintf("Strong %s combined signal on %s", direction, sig.Symbol),
			Description: fmt.Sprintf("combined=%.2f confidence=%.2f risk=%s",
				sig.TradingSignals.Combined, sig.Confidence, sig.RiskLevel),
			Status:    models.StatusTriggered,
			Timestamp: now,
			TriggerData: map[string]interface{}{
				"combined":   sig.TradingSignals.Combined,
				"confidence": sig.Confidence,
			},
			Metadata: models.AlertMetadata{Source: "fusion", Confidence: sig.Confidence},
		})
	}

	if math.Abs(sig.TradingSignals.Insider) > 0.8 {
		alerts = append(alerts, models.Alert{
			Type:        models.AlertInsiderTrade,
			Severity:    models.SeverityMedium,
			Symbol:      sig.Symbol,
			Title:       fmt.Sprintf("Insider signal anomaly on %s", sig.Symbol),
			Description: fmt.Sprintf("insider=%.2f", sig.TradingSignals.Insider),
			Status:      models.StatusTriggered,
			Timestamp:   now,
			TriggerData: map[string]interface{}{"insider": sig.TradingSignals.Insider},
			Metadata:    models.AlertMetadata{Source: "fusion", Confidence: sig.Confidence},
		})
	}

	if sig.SocialMetrics.Velocity >= 4*trendingVelocity {
		alerts = append(alerts, models.Alert{
			Type:     models.AlertSentimentSpike,
			Severity: models.SeverityMedium,
			Symbol:   sig.Symbol,
			Title:    fmt.Sprintf("Social velocity spike on %s", sig.Symbol),
			Description: fmt.Sprintf("%.0f mentions/hour across %d mentions",
				sig.SocialMetrics.Velocity, sig.SocialMetrics.Mentions),
			Status:    models.StatusTriggered,
			Timestamp: now,
			TriggerData: map[string]interface{}{
				"velocity": sig.SocialMetrics.Velocity,
				"mentions": sig.SocialMetrics.Mentions,
			},
			Metadata: models.AlertMetadata{Source: "fusion", Confidence: sig.Confidence},
		})
	}
	return alerts
}
