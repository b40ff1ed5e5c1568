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

var outletWeights = map[string]float64{
	"reuters":   0.90,
	"bloomberg": 0.90,
	"wsj":       0.85,
	"ap":        0.80,
	"cnbc":      0.70,
	"barrons":   0.70,
}

const defaultOutletWeight = 0.50

// NewsCollector maps news articles to data points. Outlet reputation and
// recency drive confidence; breaking coverage drives significance.
type NewsCollector struct {
	base    *Base
	feed    service.NewsFeed
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewNews(feed service.NewsFeed, lgr *logger.Logger, m repository.Metrics, interval, symbolDelay time.Duration) *NewsCollector {
	return &NewsCollector{
		base:    NewBase(models.SourceNews, lgr, interval, symbolDelay),
		feed:    feed,
		logger:  lgr,
		metrics: m,
	}
}

func (c *NewsCollector) Type() models.SourceType { return models.SourceNews }

func (c *NewsCollector) Collect(ctx context.Context, symbol string) (*models.CollectedBatch, error) {
	start := time.Now()
	articles, err := c.feed.FetchArticles(ctx, symbol)
	c.base.RecordAttempt(time.Since(start), err)
	if err != nil {
		c.metrics.RecordCollection(string(models.SourceNews), symbol, false)
		return nil, classify(models.SourceNews, err)
	}
	c.metrics.RecordCollection(string(models.SourceNews), symbol, true)

	items := make([]models.DataPoint, 0, len(articles))
	for i := range articles {
		items = append(items, newsPoint(symbol, &articles[i], time.Now()))
	}
	batch := NewBatch(symbol, models.SourceNews, items)
	c.base.SetLatest(symbol, batch)
	return batch, nil
}

func newsPoint(symbol string, a *models.NewsArticle, now time.Time) models.DataPoint {
	outlet := outletWeights[strings.ToLower(a.Outlet)]
	if outlet == 0 {
		outlet = defaultOutletWeight
	}

	conf := 0.30 + 0.50*outlet
	if now.Sub(a.PublishedAt) <= 6*time.Hour {
		conf += 0.15
	}

	text := a.Headline + " " + a.Summary
	sent := ScoreSentiment(text)

	sig := 0.35 + 0.30*abs(sent)
	if a.Breaking {
		sig = a.ImpactScore
		if sig < 0.9 {
			sig = 0.9
		}
	}

	return models.DataPoint{
		Timestamp:    a.PublishedAt,
		Source:       models.SourceNews,
		Symbol:       symbol,
		Confidence:   clampConf(conf),
		Sentiment:    sent,
		Significance: clampConf(sig),
		Value:        a.ImpactScore,
		Keywords:     ExtractKeywords(a.Headline, 5),
		Metadata: map[string]interface{}{
			"outlet":       a.Outlet,
			"url":          a.URL,
			"breaking":     a.Breaking,
			"impact_score": a.ImpactScore,
		},
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *NewsCollector) IsHealthy() bool                  { return c.base.Healthy() }
func (c *NewsCollector) Metrics() models.CollectorMetrics { return c.base.Snapshot() }

func (c *NewsCollector) UpdateConfig(p service.CollectorConfigPatch) { c.base.ApplyPatch(p) }

func (c *NewsCollector) StartAuto(ctx context.Context, symbols []string) {
	c.base.StartAuto(ctx, symbols, func(ctx context.Context, sym string) {
		if _, err := c.Collect(ctx, sym); err != nil {
			c.logger.Warn("news auto-collect failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	})
}

func (c *NewsCollector) StopAuto() { c.base.StopAuto() }

func (c *NewsCollector) LatestBatches() map[string]*models.CollectedBatch {
	return c.base.LatestBatches()
}

func (c *NewsCollector) Enabled() bool { return c.base.Enabled() }
