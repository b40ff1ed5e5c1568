package collectors

import (
	"context"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/domain/repository"
	"SignalFuse/internal/domain/service"
	"SignalFuse/pkg/logger"
)

// SocialCollector turns social chatter into confidence-scored data points.
type SocialCollector struct {
	base    *Base
	feed    service.SocialFeed
	logger  *logger.Logger
	metrics repository.Metrics
}

func NewSocial(feed service.SocialFeed, lgr *logger.Logger, m repository.Metrics, interval, symbolDelay time.Duration) *SocialCollector {
	return &SocialCollector{
		base:    NewBase(models.SourceSocial, lgr, interval, symbolDelay),
		feed:    feed,
		logger:  lgr,
		metrics: m,
	}
}

func (c *SocialCollector) Type() models.SourceType { return models.SourceSocial }

func (c *SocialCollector) Collect(ctx context.Context, symbol string) (*models.CollectedBatch, error) {
	start := time.Now()
	posts, err := c.feed.FetchPosts(ctx, symbol)
	c.base.RecordAttempt(time.Since(start), err)
	if err != nil {
		c.metrics.RecordCollection(string(models.SourceSocial), symbol, false)
		return nil, classify(models.SourceSocial, err)
	}
	c.metrics.RecordCollection(string(models.SourceSocial), symbol, true)

	items := make([]models.DataPoint, 0, len(posts))
	for i := range posts {
		items = append(items, socialPoint(symbol, &posts[i]))
	}
	batch := NewBatch(symbol, models.SourceSocial, items)
	c.base.SetLatest(symbol, batch)
	return batch, nil
}

// socialPoint derives confidence from account verification, audience size,
// and engagement. Never a constant.
func socialPoint(symbol string, p *models.SocialPost) models.DataPoint {
	engagement := float64(p.Likes + 2*p.Reposts + p.Replies)

	conf := 0.30
	if p.Verified {
		conf += 0.25
	}
	conf += 0.25 * scale(float64(p.Followers), 50_000)
	conf += 0.20 * scale(engagement, 1_000)

	return models.DataPoint{
		Timestamp:    p.CreatedAt,
		Source:       models.SourceSocial,
		Symbol:       symbol,
		Confidence:   clampConf(conf),
		Sentiment:    ScoreSentiment(p.Text),
		Significance: scale(engagement, 2_000),
		Value:        engagement,
		Keywords:     ExtractKeywords(p.Text, 5),
		Metadata: map[string]interface{}{
			"author":   p.Author,
			"post_id":  p.ID,
			"verified": p.Verified,
			"reach":    int64(p.Followers),
		},
	}
}

func (c *SocialCollector) IsHealthy() bool                 { return c.base.Healthy() }
func (c *SocialCollector) Metrics() models.CollectorMetrics { return c.base.Snapshot() }

func (c *SocialCollector) UpdateConfig(p service.CollectorConfigPatch) { c.base.ApplyPatch(p) }

func (c *SocialCollector) StartAuto(ctx context.Context, symbols []string) {
	c.base.StartAuto(ctx, symbols, func(ctx context.Context, sym string) {
		if _, err := c.Collect(ctx, sym); err != nil {
			c.logger.Warn("social auto-collect failed",
				logger.String("symbol", sym), logger.Error(err))
		}
	})
}

func (c *SocialCollector) StopAuto() { c.base.StopAuto() }

// LatestBatches exposes the most recent per-symbol batches for rule evaluation.
func (c *SocialCollector) LatestBatches() map[string]*models.CollectedBatch {
	return c.base.LatestBatches()
}

func (c *SocialCollector) Enabled() bool { return c.base.Enabled() }
