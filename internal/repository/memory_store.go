package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

// MemoryAlertStore is the degraded-mode fallback when the SQLite store
// cannot be opened: the pipeline keeps running with memory as the
// authoritative record, losing state on restart. It mirrors the SQLite
// store's semantics, including sql.ErrNoRows on missing ids.
type MemoryAlertStore struct {
	mu     sync.RWMutex
	rules  map[string]*models.AlertRule
	alerts map[string]*models.Alert
}

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{
		rules:  make(map[string]*models.AlertRule),
		alerts: make(map[string]*models.Alert),
	}
}

func (s *MemoryAlertStore) Init(context.Context) error { return nil }

func (s *MemoryAlertStore) SaveRule(_ context.Context, r *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rules[r.ID] = &cp
	return nil
}

func (s *MemoryAlertStore) GetRule(_ context.Context, id string) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryAlertStore) ListRules(context.Context) ([]*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryAlertStore) SaveAlert(_ context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.alerts[a.ID] = &cp
	return nil
}

func (s *MemoryAlertStore) GetAlert(_ context.Context, id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryAlertStore) QueryAlerts(_ context.Context, f domrepo.AlertFilter) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Symbol != "" && a.Symbol != f.Symbol {
			continue
		}
		if !f.Start.IsZero() && a.Timestamp.Before(f.Start) {
			continue
		}
		if !f.End.IsZero() && a.Timestamp.After(f.End) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryAlertStore) LastTriggered(_ context.Context, t models.AlertType, symbol string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
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

func (s *MemoryAlertStore) Effectiveness(ctx context.Context) (map[models.AlertType]models.TypeEffectiveness, error) {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[models.AlertType]models.TypeEffectiveness)
	impactSums := make(map[models.AlertType]float64)
	impactCounts := make(map[models.AlertType]int)
	for _, r := range rules {
		t := r.Threshold.AlertType
		agg := out[t]
		agg.TotalTriggers += r.Effectiveness.TotalTriggers
		agg.TruePositives += r.Effectiveness.TruePositives
		agg.FalsePositives += r.Effectiveness.FalsePositives
		if r.Effectiveness.AvgMarketImpact != 0 {
			impactSums[t] += r.Effectiveness.AvgMarketImpact
			impactCounts[t]++
		}
		out[t] = agg
	}
	for t, agg := range out {
		if judged := agg.TruePositives + agg.FalsePositives; judged > 0 {
			agg.Accuracy = float64(agg.TruePositives) / float64(judged)
		}
		if impactCounts[t] > 0 {
			agg.AvgMarketImpact = impactSums[t] / float64(impactCounts[t])
		}
		out[t] = agg
	}
	return out, nil
}

func (s *MemoryAlertStore) PurgeOlderThan(_ context.Context, horizon time.Time) (int64, error) {
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

func (s *MemoryAlertStore) Health(context.Context) error { return nil }
func (s *MemoryAlertStore) Close() error                 { return nil }
