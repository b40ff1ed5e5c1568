package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

type noopMetrics struct{}

func (noopMetrics) RecordCollection(string, string, bool) {}
func (noopMetrics) RecordError(string)                    {}
func (noopMetrics) RecordAlert(string, string)            {}
func (noopMetrics) RecordNotification(string, bool)       {}
func (noopMetrics) RecordCombinedSignal(string, float64)  {}
func (noopMetrics) RecordQueueDepth(int)                  {}
func (noopMetrics) RecordInFlight(int)                    {}
func (noopMetrics) RecordLatency(string, float64)         {}

// memStore is an in-memory AlertStore for engine and queue tests.
type memStore struct {
	mu     sync.Mutex
	rules  map[string]*models.AlertRule
	alerts map[string]*models.Alert
}

func newMemStore() *memStore {
	return &memStore{
		rules:  make(map[string]*models.AlertRule),
		alerts: make(map[string]*models.Alert),
	}
}

func (s *memStore) Init(context.Context) error { return nil }

func (s *memStore) SaveRule(_ context.Context, r *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *memStore) GetRule(_ context.Context, id string) (*models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules[id], nil
}

func (s *memStore) ListRules(context.Context) ([]*models.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) SaveAlert(_ context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

func (s *memStore) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts[id], nil
}

func (s *memStore) QueryAlerts(context.Context, domrepo.AlertFilter) ([]*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		out = append(out, a)
	}
	return out, nil
}

func (s *memStore) LastTriggered(_ context.Context, t models.AlertType, symbol string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last time.Time
	var found bool
	for _, a := range s.alerts {
		if a.Type == t && a.Symbol == symbol && a.Timestamp.After(last) {
			last = a.Timestamp
			found = true
		}
	}
	return last, found, nil
}

func (s *memStore) Effectiveness(context.Context) (map[models.AlertType]models.TypeEffectiveness, error) {
	return map[models.AlertType]models.TypeEffectiveness{}, nil
}

func (s *memStore) PurgeOlderThan(_ context.Context, horizon time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.alerts {
		if a.Timestamp.Before(horizon) {
			delete(s.alerts, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Health(context.Context) error { return nil }
func (s *memStore) Close() error                 { return nil }

func (s *memStore) alertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}

// staticFeeds serves a fixed event list per alert type.
type staticFeeds struct {
	events map[models.AlertType][]models.TriggerEvent
}

func (f *staticFeeds) Events(_ context.Context, t models.AlertType) ([]models.TriggerEvent, error) {
	return f.events[t], nil
}

// captureQueue records enqueued alerts.
type captureQueue struct {
	mu      sync.Mutex
	alerts  []*models.Alert
	modules [][]string
}

func (q *captureQueue) EnqueueAlert(a *models.Alert, modules []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.alerts = append(q.alerts, a)
	q.modules = append(q.modules, modules)
}

func (q *captureQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.alerts)
}

// captureDispatch records dispatched alerts and their channels.
type captureDispatch struct {
	mu       sync.Mutex
	alerts   []*models.Alert
	channels [][]string
}

func (d *captureDispatch) Dispatch(_ context.Context, a *models.Alert, channels []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, a)
	d.channels = append(d.channels, channels)
}

func (d *captureDispatch) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts)
}
