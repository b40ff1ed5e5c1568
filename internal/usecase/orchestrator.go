package usecase

import (
	"context"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	domsvc "SignalFuse/internal/domain/service"
	"SignalFuse/internal/service/events"
	"SignalFuse/pkg/logger"

	"github.com/google/uuid"
)

const defaultCollectTimeout = 30 * time.Second

// Registry holds the active collectors and fans collection requests out to
// all of them in parallel. Individual collector failures are partial: logged,
// excluded from fusion, never fatal to the cycle.
type Registry struct {
	collectors []domsvc.Collector
	history    domrepo.SignalHistory // nil when signal history is disabled
	metrics    domrepo.Metrics
	logger     *logger.Logger
	bus        *events.Bus
	timeout    time.Duration

	mu     sync.RWMutex
	latest map[string]*models.AggregatedSignal
}

// RegistryOption configures Registry.
type RegistryOption func(*Registry)

// WithCollectTimeout bounds each collector's collect call.
func WithCollectTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithSignalHistory enables best-effort persistence of fused signals.
func WithSignalHistory(h domrepo.SignalHistory) RegistryOption {
	return func(r *Registry) { r.history = h }
}

// NewRegistry creates the collector registry.
func NewRegistry(collectors []domsvc.Collector, lgr *logger.Logger, m domrepo.Metrics, bus *events.Bus, opts ...RegistryOption) *Registry {
	r := &Registry{
		collectors: collectors,
		metrics:    m,
		logger:     lgr,
		bus:        bus,
		timeout:    defaultCollectTimeout,
		latest:     make(map[string]*models.AggregatedSignal),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Collectors returns the registered collectors.
func (r *Registry) Collectors() []domsvc.Collector { return r.collectors }

type collectOutcome struct {
	source models.SourceType
	batch  *models.CollectedBatch
	err    error
}

// CollectAll issues one collect call per enabled collector concurrently and
// fuses the successful batches into an AggregatedSignal. The join waits for
// every outcome; even with zero successes it returns a well-formed signal.
func (r *Registry) CollectAll(ctx context.Context, symbol string) (*models.AggregatedSignal, error) {
	start := time.Now()

	enabled := make([]domsvc.Collector, 0, len(r.collectors))
	for _, c := range r.collectors {
		if c.Enabled() {
			enabled = append(enabled, c)
		}
	}

	ch := make(chan collectOutcome, len(enabled))
	var wg sync.WaitGroup
	for _, c := range enabled {
		wg.Add(1)
		go func(c domsvc.Collector) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()
			b, err := c.Collect(cctx, symbol)
			ch <- collectOutcome{source: c.Type(), batch: b, err: err}
		}(c)
	}
	go func() { wg.Wait(); close(ch) }()

	batches := make([]*models.CollectedBatch, 0, len(enabled))
	for out := range ch {
		if out.err != nil {
			r.logger.Warn("collector failed, excluded from cycle",
				logger.String("source", string(out.source)),
				logger.String("symbol", symbol),
				logger.Error(out.err))
			r.metrics.RecordError("collect_" + string(out.source))
			continue
		}
		batches = append(batches, out.batch)
	}

	sig := BuildSignal(symbol, time.Now(), batches)
	for i := range sig.Alerts {
		sig.Alerts[i].ID = uuid.NewString()
	}

	r.mu.Lock()
	r.latest[symbol] = sig
	r.mu.Unlock()

	r.metrics.RecordCombinedSignal(symbol, sig.TradingSignals.Combined)
	r.metrics.RecordLatency("collect_all", time.Since(start).Seconds())

	if r.history != nil {
		if err := r.history.Append(ctx, sig); err != nil {
			r.logger.Warn("signal history append failed", logger.Error(err))
			r.metrics.RecordError("signal_history")
		}
	}
	if r.bus != nil {
		r.bus.Publish(events.KindSignalFused, sig)
	}
	return sig, nil
}

// Latest returns the most recently fused signal for a symbol, if any.
func (r *Registry) Latest(symbol string) (*models.AggregatedSignal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.latest[symbol]
	return s, ok
}

// LatestSignals returns every symbol's most recently fused signal.
func (r *Registry) LatestSignals() []*models.AggregatedSignal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.AggregatedSignal, 0, len(r.latest))
	for _, s := range r.latest {
		out = append(out, s)
	}
	return out
}

// StartAutoAll starts every collector's auto-collection loop.
func (r *Registry) StartAutoAll(ctx context.Context, symbols []string) {
	for _, c := range r.collectors {
		c.StartAuto(ctx, symbols)
	}
}

// StopAutoAll stops all auto-collection loops. Stopping one collector never
// corrupts a batch in flight for another: each loop owns its own channel.
func (r *Registry) StopAutoAll() {
	for _, c := range r.collectors {
		c.StopAuto()
	}
}

// HealthSnapshot returns per-collector metrics for the health endpoint.
func (r *Registry) HealthSnapshot() map[string]models.CollectorMetrics {
	out := make(map[string]models.CollectorMetrics, len(r.collectors))
	for _, c := range r.collectors {
		out[string(c.Type())] = c.Metrics()
	}
	return out
}
