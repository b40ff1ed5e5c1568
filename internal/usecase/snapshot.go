package usecase

import (
	"context"
	"math"

	"SignalFuse/internal/domain/models"
)

// MarketFeed supplies market-derived trigger events (price moves, earnings)
// that the collectors do not cover.
type MarketFeed interface {
	PriceEvents(ctx context.Context) ([]models.TriggerEvent, error)
	EarningsEvents(ctx context.Context) ([]models.TriggerEvent, error)
}

// batchSource is the slice of a collector the snapshot reads.
type batchSource interface {
	Type() models.SourceType
	LatestBatches() map[string]*models.CollectedBatch
}

// LiveFeeds turns the registry's latest batches and fused signals into
// trigger events for rule evaluation. Market-driven types come from the
// optional MarketFeed; without one those types simply produce no events.
type LiveFeeds struct {
	registry *Registry
	market   MarketFeed
}

// NewLiveFeeds builds the rule engine's event source.
func NewLiveFeeds(registry *Registry, market MarketFeed) *LiveFeeds {
	return &LiveFeeds{registry: registry, market: market}
}

// Events implements FeedProvider.
func (f *LiveFeeds) Events(ctx context.Context, t models.AlertType) ([]models.TriggerEvent, error) {
	switch t {
	case models.AlertInsiderTrade:
		return f.pointEvents(models.SourceInsider, "insiderTradeValue"), nil
	case models.AlertCongressTrade:
		return f.pointEvents(models.SourceCongress, "congressTradeValue"), nil
	case models.AlertBreakingNews:
		return f.newsEvents(), nil
	case models.AlertSentimentSpike:
		return f.sentimentEvents(), nil
	case models.AlertCombinedSignal:
		return f.combinedEvents(), nil
	case models.AlertPriceAnomaly:
		if f.market == nil {
			return nil, nil
		}
		return f.market.PriceEvents(ctx)
	case models.AlertEarnings:
		if f.market == nil {
			return nil, nil
		}
		return f.market.EarningsEvents(ctx)
	default:
		return nil, nil
	}
}

// pointEvents flattens a source's latest batches into one event per point,
// with the point's magnitude under the given field name.
func (f *LiveFeeds) pointEvents(src models.SourceType, valueField string) []models.TriggerEvent {
	var out []models.TriggerEvent
	for _, c := range f.registry.Collectors() {
		bs, ok := c.(batchSource)
		if !ok || bs.Type() != src {
			continue
		}
		for symbol, batch := range bs.LatestBatches() {
			if batch.Empty() {
				continue
			}
			for _, p := range batch.Items {
				out = append(out, models.TriggerEvent{
					Symbol: symbol,
					Source: string(src),
					Fields: map[string]interface{}{
						valueField:   p.Value,
						"confidence": p.Confidence,
						"sentiment":  p.Sentiment,
						"keywords":   p.Keywords,
					},
				})
			}
		}
	}
	return out
}

// newsEvents surfaces only articles flagged as breaking, with their impact.
func (f *LiveFeeds) newsEvents() []models.TriggerEvent {
	var out []models.TriggerEvent
	for _, c := range f.registry.Collectors() {
		bs, ok := c.(batchSource)
		if !ok || bs.Type() != models.SourceNews {
			continue
		}
		for symbol, batch := range bs.LatestBatches() {
			if batch.Empty() {
				continue
			}
			for _, p := range batch.Items {
				breaking, _ := p.Metadata["breaking"].(bool)
				if !breaking {
					continue
				}
				out = append(out, models.TriggerEvent{
					Symbol: symbol,
					Source: string(models.SourceNews),
					Fields: map[string]interface{}{
						"impactScore": p.Significance,
						"confidence":  p.Confidence,
						"sentiment":   p.Sentiment,
						"keywords":    p.Keywords,
					},
				})
			}
		}
	}
	return out
}

func (f *LiveFeeds) sentimentEvents() []models.TriggerEvent {
	var out []models.TriggerEvent
	for _, sig := range f.registry.LatestSignals() {
		out = append(out, models.TriggerEvent{
			Symbol: sig.Symbol,
			Source: string(models.SourceSocial),
			Fields: map[string]interface{}{
				"mentionVelocity":    sig.SocialMetrics.Velocity,
				"sentimentScore":     sig.OverallSentiment.Score,
				"sentimentMagnitude": math.Abs(sig.OverallSentiment.Score),
				"mentions":           sig.SocialMetrics.Mentions,
				"confidence":         sig.Confidence,
				"keywords":           sig.OverallSentiment.Keywords,
			},
		})
	}
	return out
}

func (f *LiveFeeds) combinedEvents() []models.TriggerEvent {
	var out []models.TriggerEvent
	for _, sig := range f.registry.LatestSignals() {
		out = append(out, models.TriggerEvent{
			Symbol: sig.Symbol,
			Source: "fusion",
			Fields: map[string]interface{}{
				"combinedSignal": sig.TradingSignals.Combined,
				"confidence":     sig.Confidence,
				"riskLevel":      string(sig.RiskLevel),
			},
		})
	}
	return out
}
