package notify

import (
	"context"

	"SignalFuse/internal/domain/models"
	"SignalFuse/pkg/logger"
)

// Console writes alerts to the structured log. Always available; the default
// channel when nothing else is configured.
type Console struct {
	l *logger.Logger
}

func NewConsole(l *logger.Logger) *Console { return &Console{l: l} }

func (c *Console) Channel() string { return "console" }

func (c *Console) Notify(_ context.Context, p models.NotificationPayload) error {
	c.l.Info(formatTitle(p),
		logger.String("alert", p.AlertID),
		logger.String("symbol", p.Symbol),
		logger.String("type", string(p.Type)),
		logger.String("severity", string(p.Severity)),
		logger.String("description", p.Description),
	)
	return nil
}
