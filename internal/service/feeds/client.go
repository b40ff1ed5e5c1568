package feeds

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"SignalFuse/internal/service/ratelimit"
	pkgcache "SignalFuse/pkg/cache"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// Config holds the connection settings shared by every feed client.
type Config struct {
	BaseURL          string
	APIKey           string
	CacheTTL         time.Duration
	RateCapacity     float64
	RateRefillPerSec float64
}

// ErrRateLimited is returned when the local token bucket rejects a request
// before it ever reaches the upstream API.
var ErrRateLimited = fmt.Errorf("feed request rejected: status 429 local rate limit")

// client is the request/cache/ratelimit plumbing under each typed feed.
type client struct {
	name  string
	cfg   Config
	http  *xhttp.Client
	cache pkgcache.Service
	limit *ratelimit.Limiter
	l     *logger.Logger
}

func newClient(name string, cfg Config, hc *xhttp.Client, cache pkgcache.Service, limit *ratelimit.Limiter, l *logger.Logger) client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if cfg.RateCapacity <= 0 {
		cfg.RateCapacity = 30
	}
	if cfg.RateRefillPerSec <= 0 {
		cfg.RateRefillPerSec = 0.5
	}
	return client{name: name, cfg: cfg, http: hc, cache: cache, limit: limit, l: l}
}

// getJSON fetches path with params into dest, consulting the cache first.
// Cache and limiter are both optional.
func (c *client) getJSON(ctx context.Context, path string, params map[string][]string, dest interface{}) error {
	key := c.cacheKey(path, params)
	if c.cache != nil {
		if err := c.cache.Get(ctx, key, dest); err == nil {
			return nil
		}
	}
	if c.limit != nil && !c.limit.Allow(c.name, c.cfg.RateCapacity, c.cfg.RateRefillPerSec) {
		c.l.Warn("feed rate limited locally", logger.String("feed", c.name))
		return ErrRateLimited
	}

	opts := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         strings.TrimRight(c.cfg.BaseURL, "/") + path,
		QueryParams: params,
	}
	if c.cfg.APIKey != "" {
		opts.Headers = map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	}

	start := time.Now()
	if err := c.http.SendAndParse(ctx, opts, dest); err != nil {
		return fmt.Errorf("%s fetch %s: %w", c.name, path, err)
	}
	c.l.Debug("feed fetch ok",
		logger.String("feed", c.name),
		logger.String("path", path),
		logger.Duration("duration", time.Since(start)))

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, dest, c.cfg.CacheTTL); err != nil {
			c.l.Warn("feed cache set failed", logger.String("feed", c.name), logger.Error(err))
		}
	}
	return nil
}

func (c *client) cacheKey(path string, params map[string][]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]interface{}, 0, len(keys)+2)
	parts = append(parts, c.name, path)
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(params[k], ","))
	}
	return pkgcache.GenerateKeyWithParams("feeds", parts...)
}
