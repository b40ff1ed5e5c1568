package notify

import (
	"context"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	xhttp "SignalFuse/pkg/http"
)

// Slack posts a formatted message to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	client     *xhttp.Client
}

func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Slack{
		webhookURL: webhookURL,
		client:     xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

func (s *Slack) Channel() string { return "slack" }

type slackMessage struct {
	Text string `json:"text"`
}

func (s *Slack) Notify(ctx context.Context, p models.NotificationPayload) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook not configured")
	}
	text := fmt.Sprintf("%s\n%s\nconfidence %.2f · %s",
		formatTitle(p), p.Description, p.Confidence, p.Timestamp.Format(time.RFC3339))
	err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    s.webhookURL,
		Body:   slackMessage{Text: text},
	}, nil)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}
