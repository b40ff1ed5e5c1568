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

// InsiderCollector maps insider filings to data points. Filing promptness and
// the filer's role drive confidence; transaction value drives significance.
type InsiderCollector struct {
	base    *Base
	feed    service.InsiderFeed
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewInsider(feed service.InsiderFeed, lgr *logger.Logger, m repository.Metrics, interval, symbolDelay time.Duration) *InsiderCollector {
	return &InsiderCollector{
		base:    NewBase(models.SourceInsider, lgr, interval, symbolDelay),
		feed:    feed,
		logger:  lgr,
		metrics: m,
	}
}

func (c *InsiderCollector) Type() models.SourceType { return models.SourceInsider }

func (c *InsiderCollector) Collect(ctx context.Context, symbol string) (*models.CollectedBatch, error) {
	start := time.Now()
	filings, err := c.feed.FetchFilings(ctx, symbol)
	c.base.RecordAttempt(time.Since(start), err)
	if err != nil {
		c.metrics.RecordCollection(string(models.SourceInsider), symbol, false)
		return nil, classify(models.SourceInsider, err)
	}
	c.metrics.RecordCollection(string(models.SourceInsider), symbol, true)

	items := make([]models.DataPoint, 0, len(filings))
	for i := range filings {
		items = append(items, insiderPoint(&filings[i]))
	}
	batch := NewBatch(symbol, models.SourceInsider, items)
	c.base.SetLatest(symbol, batch)
	return batch, nil
}

func insiderPoint(f *models.InsiderFiling) models.DataPoint {
	conf := 0.50
	lag := f.FiledAt.Sub(f.TransactionDate)
	switch {
	case lag <= 48*time.Hour:
		conf += 0.25
	case lag <= 10*24*time.Hour:
		conf += 0.10
	}
	switch strings.ToLower(f.Role) {
	case "ceo", "cfo":
		conf += 0.20
	case "director", "officer":
		conf += 0.10
	default:
		conf += 0.05
	}

	direction := 1.0
	if strings.EqualFold(f.TransactionType, "sell") {
		direction = -1
	}
	magnitude := 0.4 + 0.6*scale(f.Value, 5_000_000)

	return models.DataPoint{
		Timestamp:    f.FiledAt,
		Source:       models.SourceInsider,
		Symbol:       f.Symbol,
		Confidence:   clampConf(conf),
		Sentiment:    direction * magnitude,
		Significance: clampConf(0.3 + 0.7*scale(f.Value, 2_000_000)),
		Value:        f.Value,
		Metadata: map[string]interface{}{
			"insider":          f.Insider,
			"role":             f.Role,
			"transaction_type": strings.ToLower(f.TransactionType),
			"shares":           f.Shares,
			"filing_lag_hours": lag.Hours(),
		},
	}
}

func (c *InsiderCollector) IsHealthy() bool                  { return c.base.Healthy() }
func (c *InsiderCollector) Metrics() models.CollectorMetrics { return c.base.Snapshot() }

func (c *InsiderCollector) UpdateConfig(p service.CollectorConfigPatch) { c.base.ApplyPatch(p) }

func (c *InsiderCollector) StartAuto(ctx context.Context, symbols []string) {
	c.base.StartAuto(ctx, symbols, func(ctx context.Context, sym string) {
		if _, err := c.Collect(ctx, sym); err != nil {
			c.logger.Warn("insider auto-collect failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	})
}

func (c *InsiderCollector) StopAuto() { c.base.StopAuto() }

func (c *InsiderCollector) LatestBatches() map[string]*models.CollectedBatch {
	return c.base.LatestBatches()
}

func (c *InsiderCollector) Enabled() bool { return c.base.Enabled() }
