package service

import (
	"context"
	"time"

	"SignalFuse/internal/domain/models"
)

// CollectorConfigPatch is a partial collector reconfiguration; nil fields are
// left untouched.
type CollectorConfigPatch struct {
	Enabled     *bool
	Interval    *time.Duration
	SymbolDelay *time.Duration
}

// Collector produces timestamped, confidence-scored data points from one
// external feed. Collect returns an empty batch for expected empty results;
// transport/auth failures surface as *models.CollectorError.
type Collector interface {
	Type() models.SourceType
	Collect(ctx context.Context, symbol string) (*models.CollectedBatch, error)
	Enabled() bool
	IsHealthy() bool
	Metrics() models.CollectorMetrics
	UpdateConfig(patch CollectorConfigPatch)
	StartAuto(ctx context.Context, symbols []string)
	StopAuto()
}

// AnalysisEngine runs deep analysis for an alert's instrument. Treated as an
// opaque, possibly-slow, possibly-failing remote call.
type AnalysisEngine interface {
	Orchestrate(ctx context.Context, req models.AnalysisRequest) (models.AnalysisResult, error)
}

// Notifier delivers an alert payload over one channel. Failures are recorded
// on the alert, never retried automatically.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, p models.NotificationPayload) error
}
