package notify

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	xhttp "SignalFuse/pkg/http"
)

// Webhook POSTs the raw payload as JSON to a configured endpoint.
type Webhook struct {
	url    string
	client *xhttp.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (w *Webhook) Channel() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, p models.NotificationPayload) error {
	if w.url == "" {
		return fmt.Errorf("webhook url not configured")
	}
	err := w.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    w.url,
		Body:   p,
	}, nil)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	return nil
}
