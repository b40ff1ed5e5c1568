package notify

import (
	"context"
	"fmt"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	domservice "SignalFuse/internal/domain/service"
	"SignalFuse/pkg/logger"
)

// Dispatcher fans an alert out to its configured channels. Each channel is
// attempted independently; one failing channel never blocks the others, and
// outcomes are recorded on the alert itself.
type Dispatcher struct {
	notifiers map[string]domservice.Notifier
	logger    *logger.Logger
	metrics   domrepo.Metrics
}

// NewDispatcher indexes the given notifiers by channel name.
func NewDispatcher(lgr *logger.Logger, m domrepo.Metrics, notifiers ...domservice.Notifier) *Dispatcher {
	idx := make(map[string]domservice.Notifier, len(notifiers))
	for _, n := range notifiers {
		idx[n.Channel()] = n
	}
	return &Dispatcher{notifiers: idx, logger: lgr, metrics: m}
}

// Channels lists the registered channel names.
func (d *Dispatcher) Channels() []string {
	out := make([]string, 0, len(d.notifiers))
	for name := range d.notifiers {
		out = append(out, name)
	}
	return out
}

// Dispatch delivers the alert's payload to every requested channel and
// records per-channel success or failure on the alert.
func (d *Dispatcher) Dispatch(ctx context.Context, a *models.Alert, channels []string) {
	payload := models.PayloadFrom(a)
	for _, ch := range channels {
		n, ok := d.notifiers[ch]
		if !ok {
			a.NotificationsFailed = append(a.NotificationsFailed, ch)
			d.metrics.RecordNotification(ch, false)
			d.logger.Warn("unknown notification channel",
				logger.String("channel", ch), logger.String("alert", a.ID))
			continue
		}
		if err := n.Notify(ctx, payload); err != nil {
			a.NotificationsFailed = append(a.NotificationsFailed, ch)
			d.metrics.RecordNotification(ch, false)
			d.logger.Warn("notification failed",
				logger.String("channel", ch),
				logger.String("alert", a.ID),
				logger.Error(err))
			continue
		}
		a.NotificationsSent = append(a.NotificationsSent, ch)
		d.metrics.RecordNotification(ch, true)
	}
}

// severityEmoji decorates human-facing channels.
func severityEmoji(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "🚨"
	case models.SeverityHigh:
		return "🔴"
	case models.SeverityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

func formatTitle(p models.NotificationPayload) string {
	return fmt.Sprintf("%s [%s/%s] %s", severityEmoji(p.Severity), p.Symbol, p.Type, p.Title)
}
