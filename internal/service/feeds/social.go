package feeds

import (
	"context"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/service/ratelimit"
	pkgcache "SignalFuse/pkg/cache"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// SocialClient fetches symbol mentions from a social firehose API.
type SocialClient struct {
	client
}

func NewSocialClient(cfg Config, hc *xhttp.Client, cache pkgcache.Service, limit *ratelimit.Limiter, l *logger.Logger) *SocialClient {
	return &SocialClient{client: newClient("social", cfg, hc, cache, limit, l)}
}

type socialResponse struct {
	Posts []models.SocialPost `json:"posts"`
}

// FetchPosts implements service.SocialFeed.
func (c *SocialClient) FetchPosts(ctx context.Context, symbol string) ([]models.SocialPost, error) {
	var resp socialResponse
	params := map[string][]string{"symbol": {symbol}, "limit": {"100"}}
	if err := c.getJSON(ctx, "/v1/mentions", params, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}
