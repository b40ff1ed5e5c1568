package feeds

import (
	"context"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/service/ratelimit"
	pkgcache "SignalFuse/pkg/cache"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// CongressClient fetches congressional trading disclosures.
type CongressClient struct {
	client
}

func NewCongressClient(cfg Config, hc *xhttp.Client, cache pkgcache.Service, limit *ratelimit.Limiter, l *logger.Logger) *CongressClient {
	return &CongressClient{client: newClient("congress", cfg, hc, cache, limit, l)}
}

type congressResponse struct {
	Trades []models.CongressTrade `json:"trades"`
}

// FetchTrades implements service.CongressFeed.
func (c *CongressClient) FetchTrades(ctx context.Context, symbol string) ([]models.CongressTrade, error) {
	var resp congressResponse
	params := map[string][]string{"symbol": {symbol}}
	if err := c.getJSON(ctx, "/v1/congress-trades", params, &resp); err != nil {
		return nil, err
	}
	return resp.Trades, nil
}
