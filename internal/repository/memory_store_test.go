package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
)

func TestMemoryStoreRuleRoundTrip(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()

	rule := sampleRule("r1", models.AlertInsiderTrade)
	if err := s.SaveRule(ctx, rule); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetRule(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != rule.Name || got.Threshold.AlertType != rule.Threshold.AlertType {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.TriggeredCount = 42
	again, _ := s.GetRule(ctx, "r1")
	if again.TriggeredCount == 42 {
		t.Fatalf("store state mutated through a returned copy")
	}

	if _, err := s.GetRule(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("missing rule err = %v, want sql.ErrNoRows", err)
	}
}

func TestMemoryStoreQueryAlertsFilters(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a1 := sampleAlert("a1", "AAPL", models.AlertInsiderTrade, base)
	a2 := sampleAlert("a2", "AAPL", models.AlertInsiderTrade, base.Add(time.Hour))
	a3 := sampleAlert("a3", "MSFT", models.AlertInsiderTrade, base.Add(2*time.Hour))
	for _, a := range []*models.Alert{a1, a2, a3} {
		if err := s.SaveAlert(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := s.QueryAlerts(ctx, domrepo.AlertFilter{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a2" {
		t.Fatalf("symbol filter = %v, want [a2 a1]", ids(got))
	}

	got, _ = s.QueryAlerts(ctx, domrepo.AlertFilter{Start: base.Add(90 * time.Minute)})
	if len(got) != 1 || got[0].ID != "a3" {
		t.Fatalf("start filter = %v, want [a3]", ids(got))
	}

	got, _ = s.QueryAlerts(ctx, domrepo.AlertFilter{Limit: 1})
	if len(got) != 1 || got[0].ID != "a3" {
		t.Fatalf("limit = %v, want newest first", ids(got))
	}
}

func TestMemoryStoreLastTriggeredAndPurge(t *testing.T) {
	s := NewMemoryAlertStore()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, err := s.LastTriggered(ctx, models.AlertInsiderTrade, "AAPL"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	old := sampleAlert("old", "AAPL", models.AlertInsiderTrade, base.Add(-48*time.Hour))
	recent := sampleAlert("recent", "AAPL", models.AlertInsiderTrade, base)
	_ = s.SaveAlert(ctx, old)
	_ = s.SaveAlert(ctx, recent)

	last, ok, err := s.LastTriggered(ctx, models.AlertInsiderTrade, "AAPL")
	if err != nil || !ok || !last.Equal(base) {
		t.Fatalf("last = %v ok=%v err=%v, want %v", last, ok, err, base)
	}

	n, err := s.PurgeOlderThan(ctx, base.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("purged %d err=%v, want 1", n, err)
	}
	if _, err := s.GetAlert(ctx, "old"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("old alert survived purge: %v", err)
	}
	if _, err := s.GetAlert(ctx, "recent"); err != nil {
		t.Fatalf("recent alert purged: %v", err)
	}
}

func ids(alerts []*models.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}
