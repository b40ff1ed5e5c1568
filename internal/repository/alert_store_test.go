package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/logger"
)

func openTestStore(t *testing.T) *SQLiteAlertStore {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store, err := NewSQLiteAlertStore(filepath.Join(t.TempDir(), "alerts.db"), l)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return store
}

func sampleRule(id string, t models.AlertType) *models.AlertRule {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &models.AlertRule{
		ID:      id,
		Name:    "rule " + id,
		Enabled: true,
		Threshold: models.AlertThreshold{
			AlertType:             t,
			Severity:              models.SeverityHigh,
			Conditions:            map[string]interface{}{"insiderTradeValueMin": 1_000_000.0},
			CooldownPeriodMinutes: 60,
			NotificationChannels:  []string{"console"},
			AutoTriggerAnalysis:   true,
			AnalysisModules:       []string{"fundamental", "risk"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sampleAlert(id, symbol string, t models.AlertType, ts time.Time) *models.Alert {
	return &models.Alert{
		ID:       id,
		Type:     t,
		Severity: models.SeverityHigh,
		Symbol:   symbol,
		Title:    "alert " + id,
		Status:   models.StatusTriggered,
		TriggerData: map[string]interface{}{
			"insiderTradeValue": 2_000_000.0,
		},
		Timestamp: ts,
		Metadata:  models.AlertMetadata{Source: "insider", Confidence: 0.9},
	}
}

func TestRuleRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r := sampleRule("r1", models.AlertInsiderTrade)
	if err := store.SaveRule(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetRule(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != r.Name || !got.Enabled {
		t.Fatalf("rule mismatch: %+v", got)
	}
	if got.Threshold.AlertType != models.AlertInsiderTrade {
		t.Fatalf("threshold type = %v", got.Threshold.AlertType)
	}
	if v, ok := got.Threshold.Conditions["insiderTradeValueMin"].(float64); !ok || v != 1_000_000.0 {
		t.Fatalf("conditions lost in round trip: %v", got.Threshold.Conditions)
	}
	if len(got.Threshold.AnalysisModules) != 2 {
		t.Fatalf("modules = %v", got.Threshold.AnalysisModules)
	}
}

func TestSaveRuleUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r := sampleRule("r1", models.AlertInsiderTrade)
	if err := store.SaveRule(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.TriggeredCount = 5
	r.Effectiveness.TotalTriggers = 5
	r.Enabled = false
	if err := store.SaveRule(ctx, r); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := store.GetRule(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TriggeredCount != 5 || got.Enabled {
		t.Fatalf("upsert did not apply: %+v", got)
	}

	rules, err := store.ListRules(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(rules))
	}
}

func TestGetRuleMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetRule(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestAlertRoundTripAndStatusUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := sampleAlert("a1", "AAPL", models.AlertInsiderTrade, ts)
	if err := store.SaveAlert(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}

	a.Status = models.StatusAnalysisCompleted
	a.AnalysisCompleted = true
	a.AnalysisResults = map[string]interface{}{"risk_level": "high"}
	a.NotificationsSent = []string{"console", "slack"}
	if err := store.SaveAlert(ctx, a); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetAlert(ctx, "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusAnalysisCompleted || !got.AnalysisCompleted {
		t.Fatalf("status not updated: %+v", got)
	}
	if got.AnalysisResults["risk_level"] != "high" {
		t.Fatalf("results = %v", got.AnalysisResults)
	}
	if len(got.NotificationsSent) != 2 {
		t.Fatalf("notifications = %v", got.NotificationsSent)
	}
	if got.Metadata.Source != "insider" {
		t.Fatalf("metadata = %+v", got.Metadata)
	}
}

func TestQueryAlertsFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	seed := []*models.Alert{
		sampleAlert("a1", "AAPL", models.AlertInsiderTrade, base.Add(1*time.Hour)),
		sampleAlert("a2", "AAPL", models.AlertBreakingNews, base.Add(2*time.Hour)),
		sampleAlert("a3", "TSLA", models.AlertInsiderTrade, base.Add(3*time.Hour)),
	}
	for _, a := range seed {
		if err := store.SaveAlert(ctx, a); err != nil {
			t.Fatalf("seed %s: %v", a.ID, err)
		}
	}

	got, err := store.QueryAlerts(ctx, domrepo.AlertFilter{Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("symbol filter: %d alerts", len(got))
	}
	// newest first
	if got[0].ID != "a2" {
		t.Fatalf("order: first = %s", got[0].ID)
	}

	got, err = store.QueryAlerts(ctx, domrepo.AlertFilter{Type: models.AlertInsiderTrade})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("type filter: %d alerts", len(got))
	}

	got, err = store.QueryAlerts(ctx, domrepo.AlertFilter{Start: base.Add(90 * time.Minute), Limit: 1})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a3" {
		t.Fatalf("start+limit filter: %+v", got)
	}
}

func TestLastTriggered(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LastTriggered(ctx, models.AlertInsiderTrade, "AAPL"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SaveAlert(ctx, sampleAlert("a1", "AAPL", models.AlertInsiderTrade, ts)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveAlert(ctx, sampleAlert("a2", "AAPL", models.AlertInsiderTrade, ts.Add(time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	last, ok, err := store.LastTriggered(ctx, models.AlertInsiderTrade, "AAPL")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !last.Equal(ts.Add(time.Hour)) {
		t.Fatalf("last = %v", last)
	}
}

func TestEffectivenessAggregation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	r1 := sampleRule("r1", models.AlertInsiderTrade)
	r1.Effectiveness = models.Effectiveness{TotalTriggers: 10, TruePositives: 6, FalsePositives: 2}
	r2 := sampleRule("r2", models.AlertInsiderTrade)
	r2.Effectiveness = models.Effectiveness{TotalTriggers: 5, TruePositives: 2, FalsePositives: 2}
	for _, r := range []*models.AlertRule{r1, r2} {
		if err := store.SaveRule(ctx, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	eff, err := store.Effectiveness(ctx)
	if err != nil {
		t.Fatalf("effectiveness: %v", err)
	}
	agg := eff[models.AlertInsiderTrade]
	if agg.TotalTriggers != 15 {
		t.Fatalf("total = %d", agg.TotalTriggers)
	}
	if agg.Accuracy != 8.0/12.0 {
		t.Fatalf("accuracy = %v", agg.Accuracy)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := store.SaveAlert(ctx, sampleAlert("old", "AAPL", models.AlertInsiderTrade, base)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveAlert(ctx, sampleAlert("new", "AAPL", models.AlertInsiderTrade, base.Add(48*time.Hour))); err != nil {
		t.Fatalf("save: %v", err)
	}

	n, err := store.PurgeOlderThan(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged = %d, want 1", n)
	}
	if _, err := store.GetAlert(ctx, "old"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("old alert should be gone, got %v", err)
	}
	if _, err := store.GetAlert(ctx, "new"); err != nil {
		t.Fatalf("new alert should remain: %v", err)
	}
}
