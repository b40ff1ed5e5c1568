package repository

import (
	"context"
	"time"

	"SignalFuse/internal/domain/models"
)

// AlertFilter narrows alert history queries. Zero values are unconstrained.
type AlertFilter struct {
	Type     models.AlertType
	Severity models.Severity
	Symbol   string
	Start    time.Time
	End      time.Time
	Limit    int
}

// AlertStore is the durable record of rules and alerts. Writes are upserts
// keyed by id; JSON-valued columns are opaque blobs to the store.
type AlertStore interface {
	Init(ctx context.Context) error

	SaveRule(ctx context.Context, r *models.AlertRule) error
	GetRule(ctx context.Context, id string) (*models.AlertRule, error)
	ListRules(ctx context.Context) ([]*models.AlertRule, error)

	SaveAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	QueryAlerts(ctx context.Context, f AlertFilter) ([]*models.Alert, error)

	// LastTriggered returns the creation time of the most recent alert for
	// (type, symbol), used for cooldown lookups across restarts.
	LastTriggered(ctx context.Context, t models.AlertType, symbol string) (time.Time, bool, error)

	Effectiveness(ctx context.Context) (map[models.AlertType]models.TypeEffectiveness, error)

	// PurgeOlderThan deletes alerts created before horizon; returns rows removed.
	PurgeOlderThan(ctx context.Context, horizon time.Time) (int64, error)

	Health(ctx context.Context) error
	Close() error
}

// SignalHistory is an append-only audit trail of fused signals.
type SignalHistory interface {
	Append(ctx context.Context, s *models.AggregatedSignal) error
	Recent(ctx context.Context, symbol string, limit int) ([]*models.AggregatedSignal, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational metrics for the pipeline.
type Metrics interface {
	RecordCollection(source, symbol string, ok bool)
	RecordError(kind string)
	RecordAlert(alertType, severity string)
	RecordNotification(channel string, ok bool)
	RecordCombinedSignal(symbol string, v float64)
	RecordQueueDepth(n int)
	RecordInFlight(n int)
	RecordLatency(op string, seconds float64)
}
