package collectors

import (
	"context"
	"strings"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/domain/repository"
	"SignalFuse/internal/domain/service"
	"SignalFuse/pkg/logger"
)

// CongressCollector maps legislator trade disclosures to data points.
// Disclosures are amount bands, not exact values, and may lag the trade by
// weeks; both facts are reflected in the confidence.
type CongressCollector struct {
	base    *Base
	feed    service.CongressFeed
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewCongress(feed service.CongressFeed, lgr *logger.Logger, m repository.Metrics, interval, symbolDelay time.Duration) *CongressCollector {
	return &CongressCollector{
		base:    NewBase(models.SourceCongress, lgr, interval, symbolDelay),
		feed:    feed,
		logger:  lgr,
		metrics: m,
	}
}

func (c *CongressCollector) Type() models.SourceType { return models.SourceCongress }

func (c *CongressCollector) Collect(ctx context.Context, symbol string) (*models.CollectedBatch, error) {
	start := time.Now()
	trades, err := c.feed.FetchTrades(ctx, symbol)
	c.base.RecordAttempt(time.Since(start), err)
	if err != nil {
		c.metrics.RecordCollection(string(models.SourceCongress), symbol, false)
		return nil, classify(models.SourceCongress, err)
	}
	c.metrics.RecordCollection(string(models.SourceCongress), symbol, true)

	items := make([]models.DataPoint, 0, len(trades))
	for i := range trades {
		items = append(items, congressPoint(&trades[i]))
	}
	batch := NewBatch(symbol, models.SourceCongress, items)
	c.base.SetLatest(symbol, batch)
	return batch, nil
}

func congressPoint(t *models.CongressTrade) models.DataPoint {
	conf := 0.40
	lag := t.DisclosedAt.Sub(t.TransactionDate)
	switch {
	case lag <= 15*24*time.Hour:
		conf += 0.25
	case lag <= 45*24*time.Hour: // statutory disclosure deadline
		conf += 0.10
	}
	// a tight amount band says more than a wide one
	if t.AmountMax > 0 {
		conf += 0.15 * (t.AmountMin / t.AmountMax)
	}
	if len(t.Committees) > 0 {
		conf += 0.10
	}

	mid := (t.AmountMin + t.AmountMax) / 2
	direction := 1.0
	if strings.EqualFold(t.TransactionType, "sell") {
		direction = -1
	}

	return models.DataPoint{
		Timestamp:    t.DisclosedAt,
		Source:       models.SourceCongress,
		Symbol:       t.Symbol,
		Confidence:   clampConf(conf),
		Sentiment:    direction * (0.3 + 0.5*scale(mid, 500_000)),
		Significance: scale(mid, 250_000),
		Value:        mid,
		Metadata: map[string]interface{}{
			"member":           t.Member,
			"chamber":          t.Chamber,
			"transaction_type": strings.ToLower(t.TransactionType),
			"amount_min":       t.AmountMin,
			"amount_max":       t.AmountMax,
			"disclosure_lag_days": lag.Hours() / 24,
			"committees":       t.Committees,
		},
	}
}

func (c *CongressCollector) IsHealthy() bool                  { return c.base.Healthy() }
func (c *CongressCollector) Metrics() models.CollectorMetrics { return c.base.Snapshot() }

func (c *CongressCollector) UpdateConfig(p service.CollectorConfigPatch) { c.base.ApplyPatch(p) }

func (c *CongressCollector) StartAuto(ctx context.Context, symbols []string) {
	c.base.StartAuto(ctx, symbols, func(ctx context.Context, sym string) {
		if _, err := c.Collect(ctx, sym); err != nil {
			c.logger.Warn("congress auto-collect failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	})
}

func (c *CongressCollector) StopAuto() { c.base.StopAuto() }

func (c *CongressCollector) LatestBatches() map[string]*models.CollectedBatch {
	return c.base.LatestBatches()
}

func (c *CongressCollector) Enabled() bool { return c.base.Enabled() }
