package analysis

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	xhttp "SignalFuse/pkg/http"
	"SignalFuse/pkg/logger"
)

// Client implements the AnalysisEngine boundary over the external analysis
// service's HTTP API. The engine is opaque: a slow or failing call marks the
// alert failed, it never takes the pipeline down.
type Client struct {
	baseURL  string
	attempts int
	http     *xhttp.Client
	l        *logger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithAttempts sets how many times a transient failure is retried.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// New creates an analysis engine client.
func New(baseURL string, timeout time.Duration, l *logger.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{
		baseURL:  baseURL,
		attempts: 2,
		http:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:        l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Orchestrate implements service.AnalysisEngine.
func (c *Client) Orchestrate(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error) {
	if c.baseURL == "" {
		return models.AnalysisResult{}, fmt.Errorf("analysis engine not configured")
	}
	var res models.AnalysisResult
	if err := c.postJSONWithRetry(ctx, "/v1/orchestrate", req, &res, c.attempts); err != nil {
		return models.AnalysisResult{}, err
	}
	if res.SessionID == "" {
		res.SessionID = req.SessionID
	}
	return res, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSONWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return c.postJSON(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = c.postJSON(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		c.l.Warn("analysis request retry",
			logger.String("path", path),
			logger.Int("attempt", i),
			logger.Error(err))
		// simple backoff
		select {
		case <-time.After(time.Duration(i) * 250 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
