package feeds

import (
	"context"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/service/ratelimit"
	pkgcache "SignalFuse/pkg/cache"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// NewsClient fetches company news with externally scored impact.
type NewsClient struct {
	client
}

func NewNewsClient(cfg Config, hc *xhttp.Client, cache pkgcache.Service, limit *ratelimit.Limiter, l *logger.Logger) *NewsClient {
	return &NewsClient{client: newClient("news", cfg, hc, cache, limit, l)}
}

type newsResponse struct {
	Articles []models.NewsArticle `json:"articles"`
}

// FetchArticles implements service.NewsFeed.
func (c *NewsClient) FetchArticles(ctx context.Context, symbol string) ([]models.NewsArticle, error) {
	var resp newsResponse
	params := map[string][]string{"symbol": {symbol}, "limit": {"50"}}
	if err := c.getJSON(ctx, "/v1/company-news", params, &resp); err != nil {
		return nil, err
	}
	return resp.Articles, nil
}
