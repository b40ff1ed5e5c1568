package feeds

import (
	"context"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/service/ratelimit"
	pkgcache "SignalFuse/pkg/cache"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// InsiderClient fetches Form 4 style insider filings.
type InsiderClient struct {
	client
}

func NewInsiderClient(cfg Config, hc *xhttp.Client, cache pkgcache.Service, limit *ratelimit.Limiter, l *logger.Logger) *InsiderClient {
	return &InsiderClient{client: newClient("insider", cfg, hc, cache, limit, l)}
}

type insiderResponse struct {
	Filings []models.InsiderFiling `json:"filings"`
}

// FetchFilings implements service.InsiderFeed.
func (c *InsiderClient) FetchFilings(ctx context.Context, symbol string) ([]models.InsiderFiling, error) {
	var resp insiderResponse
	params := map[string][]string{"symbol": {symbol}}
	if err := c.getJSON(ctx, "/v1/insider-transactions", params, &resp); err != nil {
		return nil, err
	}
	return resp.Filings, nil
}
