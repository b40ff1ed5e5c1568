package feeds

import (
	"context"
	"math"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/service/ratelimit"
	pkgcache "SignalFuse/pkg/cache"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// MarketClient fetches quote statistics and earnings surprises for the
// tracked symbols. It backs the price-anomaly and earnings rule types.
type MarketClient struct {
	client
	symbols []string
}

func NewMarketClient(cfg Config, symbols []string, hc *xhttp.Client, cache pkgcache.Service, limit *ratelimit.Limiter, l *logger.Logger) *MarketClient {
	return &MarketClient{client: newClient("market", cfg, hc, cache, limit, l), symbols: symbols}
}

type quoteStats struct {
	Symbol             string  `json:"symbol"`
	PriceChangePercent float64 `json:"price_change_percent"`
	VolumeRatio        float64 `json:"volume_ratio"` // today vs 30d average
	Price              float64 `json:"price"`
}

type earningsReport struct {
	Symbol             string  `json:"symbol"`
	EPSActual          float64 `json:"eps_actual"`
	EPSEstimate        float64 `json:"eps_estimate"`
	EPSSurprisePercent float64 `json:"eps_surprise_percent"`
}

// PriceEvents returns one event per tracked symbol with intraday stats.
func (c *MarketClient) PriceEvents(ctx context.Context) ([]models.TriggerEvent, error) {
	var out []models.TriggerEvent
	for _, sym := range c.symbols {
		var q quoteStats
		params := map[string][]string{"symbol": {sym}}
		if err := c.getJSON(ctx, "/v1/quote-stats", params, &q); err != nil {
			c.l.Warn("quote stats fetch failed",
				logger.String("symbol", sym), logger.Error(err))
			continue
		}
		out = append(out, models.TriggerEvent{
			Symbol: sym,
			Source: "market",
			Fields: map[string]interface{}{
				// magnitude, so one floor catches moves in either direction
				"priceChangePercent": math.Abs(q.PriceChangePercent),
				"priceChangeSigned":  q.PriceChangePercent,
				"volumeRatio":        q.VolumeRatio,
				"price":              q.Price,
				"confidence":         0.9,
			},
		})
	}
	return out, nil
}

// EarningsEvents returns events for symbols with a recent earnings report.
func (c *MarketClient) EarningsEvents(ctx context.Context) ([]models.TriggerEvent, error) {
	var out []models.TriggerEvent
	for _, sym := range c.symbols {
		var reports []earningsReport
		params := map[string][]string{"symbol": {sym}, "limit": {"1"}}
		if err := c.getJSON(ctx, "/v1/earnings", params, &reports); err != nil {
			c.l.Warn("earnings fetch failed",
				logger.String("symbol", sym), logger.Error(err))
			continue
		}
		for _, r := range reports {
			out = append(out, models.TriggerEvent{
				Symbol: sym,
				Source: "market",
				Fields: map[string]interface{}{
					"epsSurprisePercent": r.EPSSurprisePercent,
					"epsActual":          r.EPSActual,
					"epsEstimate":        r.EPSEstimate,
					"confidence":         0.85,
				},
			})
		}
	}
	return out, nil
}
