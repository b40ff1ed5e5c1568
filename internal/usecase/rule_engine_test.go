package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
)

func TestMatchConditions(t *testing.T) {
	cases := []struct {
		name   string
		conds  map[string]interface{}
		fields map[string]interface{}
		want   bool
	}{
		{
			name:   "empty conditions always match",
			conds:  map[string]interface{}{},
			fields: map[string]interface{}{"x": 1.0},
			want:   true,
		},
		{
			name:   "floor met",
			conds:  map[string]interface{}{"insiderTradeValueMin": 1_000_000.0},
			fields: map[string]interface{}{"insiderTradeValue": 2_000_000.0},
			want:   true,
		},
		{
			name:   "floor not met",
			conds:  map[string]interface{}{"insiderTradeValueMin": 1_000_000.0},
			fields: map[string]interface{}{"insiderTradeValue": 500_000.0},
			want:   false,
		},
		{
			name:   "bare numeric key is a floor",
			conds:  map[string]interface{}{"priceChangePercent": 10.0},
			fields: map[string]interface{}{"priceChangePercent": 12.0},
			want:   true,
		},
		{
			name:   "max suffix is a ceiling",
			conds:  map[string]interface{}{"confidenceMax": 0.5},
			fields: map[string]interface{}{"confidence": 0.9},
			want:   false,
		},
		{
			name:   "missing field fails the condition",
			conds:  map[string]interface{}{"volumeRatio": 2.0},
			fields: map[string]interface{}{"priceChangePercent": 12.0},
			want:   false,
		},
		{
			name:   "and semantics need every condition",
			conds:  map[string]interface{}{"priceChangePercent": 10.0, "volumeRatio": 2.0},
			fields: map[string]interface{}{"priceChangePercent": 12.0, "volumeRatio": 1.0},
			want:   false,
		},
		{
			name:   "string overlap case insensitive",
			conds:  map[string]interface{}{"keywords": []string{"Merger", "buyout"}},
			fields: map[string]interface{}{"keywords": []string{"merger", "guidance"}},
			want:   true,
		},
		{
			name:   "no string overlap",
			conds:  map[string]interface{}{"keywords": []string{"merger"}},
			fields: map[string]interface{}{"keywords": []string{"earnings"}},
			want:   false,
		},
		{
			name:   "int condition value accepted",
			conds:  map[string]interface{}{"mentionVelocityMin": 120},
			fields: map[string]interface{}{"mentionVelocity": 150.0},
			want:   true,
		},
		{
			name:   "nil condition value skipped",
			conds:  map[string]interface{}{"volumeRatio": nil},
			fields: map[string]interface{}{},
			want:   true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := MatchConditions(c.conds, c.fields); got != c.want {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestLoadRulesSeedsDefaults(t *testing.T) {
	store := newMemStore()
	e := NewRuleEngine(store, &staticFeeds{}, nil, nil, nil, testLogger(t), noopMetrics{})

	if err := e.LoadRules(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(e.Rules()); got != 6 {
		t.Fatalf("rules = %d, want 6", got)
	}
	persisted, _ := store.ListRules(context.Background())
	if len(persisted) != 6 {
		t.Fatalf("persisted = %d, want 6", len(persisted))
	}
}

func insiderRule(cooldownMinutes int, autoTrigger bool) *models.AlertRule {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &models.AlertRule{
		ID:      "rule-insider",
		Name:    "Large insider transaction",
		Enabled: true,
		Threshold: models.AlertThreshold{
			AlertType:             models.AlertInsiderTrade,
			Severity:              models.SeverityHigh,
			Conditions:            map[string]interface{}{"insiderTradeValueMin": 1_000_000.0},
			CooldownPeriodMinutes: cooldownMinutes,
			NotificationChannels:  []string{"console"},
			AutoTriggerAnalysis:   autoTrigger,
			AnalysisModules:       []string{"fundamental", "insider", "risk"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func insiderEvent(value float64) models.TriggerEvent {
	return models.TriggerEvent{
		Symbol: "AAPL",
		Source: "insider",
		Fields: map[string]interface{}{
			"insiderTradeValue": value,
			"confidence":        0.9,
		},
	}
}

func TestEvaluateAllTriggersAndEnqueues(t *testing.T) {
	store := newMemStore()
	queue := &captureQueue{}
	dispatch := &captureDispatch{}
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertInsiderTrade: {insiderEvent(2_000_000)},
	}}

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewRuleEngine(store, feeds, queue, dispatch, nil, testLogger(t), noopMetrics{},
		WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	if err := e.UpsertRule(ctx, insiderRule(60, true)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e.EvaluateAll(ctx)

	alert, ok := e.ActiveAlert(models.AlertInsiderTrade, "AAPL")
	if !ok {
		t.Fatalf("expected active alert")
	}
	if alert.Severity != models.SeverityHigh {
		t.Fatalf("severity = %v", alert.Severity)
	}
	if alert.Status != models.StatusAnalysisQueued {
		t.Fatalf("status = %v", alert.Status)
	}
	if !alert.AnalysisTriggered || alert.AnalysisSessionID == "" {
		t.Fatalf("analysis session not assigned: %+v", alert)
	}
	if queue.count() != 1 {
		t.Fatalf("enqueued = %d, want 1", queue.count())
	}
	if dispatch.count() != 1 {
		t.Fatalf("dispatched = %d, want 1", dispatch.count())
	}
	if got, _ := e.GetRule("rule-insider"); got.TriggeredCount != 1 {
		t.Fatalf("triggered count = %d", got.TriggeredCount)
	}
}

func TestEvaluateAllBelowThreshold(t *testing.T) {
	store := newMemStore()
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertInsiderTrade: {insiderEvent(500_000)},
	}}
	e := NewRuleEngine(store, feeds, &captureQueue{}, &captureDispatch{}, nil, testLogger(t), noopMetrics{})

	ctx := context.Background()
	if err := e.UpsertRule(ctx, insiderRule(60, true)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e.EvaluateAll(ctx)

	if _, ok := e.ActiveAlert(models.AlertInsiderTrade, "AAPL"); ok {
		t.Fatalf("alert should not trigger below threshold")
	}
	if store.alertCount() != 0 {
		t.Fatalf("no alert should be persisted")
	}
}

func TestCooldownSuppression(t *testing.T) {
	store := newMemStore()
	queue := &captureQueue{}
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertInsiderTrade: {insiderEvent(2_000_000)},
	}}

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewRuleEngine(store, feeds, queue, &captureDispatch{}, nil, testLogger(t), noopMetrics{},
		WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	if err := e.UpsertRule(ctx, insiderRule(60, false)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	e.EvaluateAll(ctx)
	if store.alertCount() != 1 {
		t.Fatalf("alerts = %d, want 1", store.alertCount())
	}

	clock = clock.Add(10 * time.Minute)
	e.EvaluateAll(ctx)
	if store.alertCount() != 1 {
		t.Fatalf("cooldown violated: alerts = %d", store.alertCount())
	}

	clock = clock.Add(51 * time.Minute)
	e.EvaluateAll(ctx)
	if store.alertCount() != 2 {
		t.Fatalf("alert should fire after cooldown: alerts = %d", store.alertCount())
	}
}

// slowLookbackStore delays the cooldown lookback, widening the window in
// which two concurrent evaluations of the same alert type race each other.
type slowLookbackStore struct {
	*memStore
	delay time.Duration
}

func (s *slowLookbackStore) LastTriggered(ctx context.Context, t models.AlertType, symbol string) (time.Time, bool, error) {
	time.Sleep(s.delay)
	return s.memStore.LastTriggered(ctx, t, symbol)
}

func TestConcurrentSameTypeRulesSingleAlert(t *testing.T) {
	store := &slowLookbackStore{memStore: newMemStore(), delay: 50 * time.Millisecond}
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertInsiderTrade: {insiderEvent(2_000_000)},
	}}
	e := NewRuleEngine(store, feeds, &captureQueue{}, &captureDispatch{}, nil, testLogger(t), noopMetrics{})

	ctx := context.Background()
	first := insiderRule(60, false)
	second := insiderRule(60, false)
	second.ID = "rule-insider-cluster"
	second.Name = "Insider cluster"
	if err := e.UpsertRule(ctx, first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := e.UpsertRule(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	e.EvaluateAll(ctx)

	if got := store.alertCount(); got != 1 {
		t.Fatalf("alerts = %d, want 1 within one cooldown window", got)
	}
}

// failingStore errors on every rule read.
type failingStore struct{ *memStore }

func (s *failingStore) ListRules(context.Context) ([]*models.AlertRule, error) {
	return nil, errors.New("database is locked")
}

func TestLoadRulesDegradesWhenStoreFails(t *testing.T) {
	e := NewRuleEngine(&failingStore{newMemStore()}, &staticFeeds{}, nil, nil, nil, testLogger(t), noopMetrics{})

	if err := e.LoadRules(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := len(e.Rules()); got != 6 {
		t.Fatalf("rules = %d, want the 6 in-memory defaults", got)
	}
}

func TestRuleSnapshotsAreCopies(t *testing.T) {
	store := newMemStore()
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertInsiderTrade: {insiderEvent(2_000_000)},
	}}
	e := NewRuleEngine(store, feeds, &captureQueue{}, &captureDispatch{}, nil, testLogger(t), noopMetrics{})

	ctx := context.Background()
	if err := e.UpsertRule(ctx, insiderRule(60, false)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	snap := e.Rules()[0]
	e.EvaluateAll(ctx)
	if snap.TriggeredCount != 0 {
		t.Fatalf("snapshot mutated by evaluation: %d", snap.TriggeredCount)
	}

	got, ok := e.GetRule("rule-insider")
	if !ok || got.TriggeredCount != 1 {
		t.Fatalf("triggered count = %d, want 1", got.TriggeredCount)
	}
	got.TriggeredCount = 99
	again, _ := e.GetRule("rule-insider")
	if again.TriggeredCount != 1 {
		t.Fatalf("engine state mutated through a returned copy")
	}
}

func TestBreakingNewsCriticalEscalation(t *testing.T) {
	store := newMemStore()
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertBreakingNews: {{
			Symbol: "TSLA",
			Source: "news",
			Fields: map[string]interface{}{"impactScore": 0.95, "confidence": 0.8},
		}},
	}}
	e := NewRuleEngine(store, feeds, &captureQueue{}, &captureDispatch{}, nil, testLogger(t), noopMetrics{})

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rule := &models.AlertRule{
		ID:      "rule-news",
		Name:    "Breaking news",
		Enabled: true,
		Threshold: models.AlertThreshold{
			AlertType:             models.AlertBreakingNews,
			Severity:              models.SeverityHigh,
			Conditions:            map[string]interface{}{"impactScoreMin": 0.7},
			CooldownPeriodMinutes: 60,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx := context.Background()
	if err := e.UpsertRule(ctx, rule); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e.EvaluateAll(ctx)

	alert, ok := e.ActiveAlert(models.AlertBreakingNews, "TSLA")
	if !ok {
		t.Fatalf("expected alert")
	}
	if alert.Severity != models.SeverityCritical {
		t.Fatalf("severity = %v, want critical", alert.Severity)
	}
}

func TestPriceAnomalyDefaultRule(t *testing.T) {
	store := newMemStore()
	queue := &captureQueue{}
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertPriceAnomaly: {{
			Symbol: "NVDA",
			Source: "market",
			Fields: map[string]interface{}{"priceChangePercent": 12.0, "volumeRatio": 3.0, "confidence": 0.9},
		}},
	}}
	e := NewRuleEngine(store, feeds, queue, &captureDispatch{}, nil, testLogger(t), noopMetrics{})

	ctx := context.Background()
	if err := e.LoadRules(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	e.EvaluateAll(ctx)

	alert, ok := e.ActiveAlert(models.AlertPriceAnomaly, "NVDA")
	if !ok {
		t.Fatalf("expected alert")
	}
	if alert.Severity != models.SeverityHigh {
		t.Fatalf("severity = %v, want high", alert.Severity)
	}
	if !alert.AnalysisTriggered {
		t.Fatalf("analysis not triggered")
	}
	if queue.count() != 1 {
		t.Fatalf("enqueued = %d, want 1", queue.count())
	}
	want := []string{"technical", "anomaly", "risk", "fusion"}
	if !reflect.DeepEqual(queue.modules[0], want) {
		t.Fatalf("modules = %v, want %v", queue.modules[0], want)
	}
}

func TestPurgeExpiredEvictsActive(t *testing.T) {
	store := newMemStore()
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertInsiderTrade: {insiderEvent(2_000_000)},
	}}
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := NewRuleEngine(store, feeds, &captureQueue{}, &captureDispatch{}, nil, testLogger(t), noopMetrics{},
		WithClock(func() time.Time { return clock }))

	ctx := context.Background()
	if err := e.UpsertRule(ctx, insiderRule(60, false)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	e.EvaluateAll(ctx)

	e.PurgeExpired(ctx, clock.Add(time.Hour))
	if _, ok := e.ActiveAlert(models.AlertInsiderTrade, "AAPL"); ok {
		t.Fatalf("purged alert still active")
	}
	if store.alertCount() != 0 {
		t.Fatalf("purged alert still persisted")
	}
}
