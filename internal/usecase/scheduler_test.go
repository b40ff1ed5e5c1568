package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domsvc "SignalFuse/internal/domain/service"
)

// countingCollector tracks which symbols were collected.
type countingCollector struct {
	fakeCollector
	mu      sync.Mutex
	symbols []string
}

func (c *countingCollector) Collect(_ context.Context, symbol string) (*models.CollectedBatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbols = append(c.symbols, symbol)
	return testBatch(c.source), nil
}

func (c *countingCollector) collected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

func TestTickCollectsEverySymbolThenEvaluates(t *testing.T) {
	col := &countingCollector{fakeCollector: fakeCollector{source: models.SourceSocial, enabled: true}}
	r := NewRegistry([]domsvc.Collector{col}, testLogger(t), noopMetrics{}, nil)

	store := newMemStore()
	queue := &captureQueue{}
	// Empty conditions act as a scheduled trigger on every tick.
	feeds := &staticFeeds{events: map[models.AlertType][]models.TriggerEvent{
		models.AlertCombinedSignal: {{Symbol: "AAPL", Source: "fusion", Fields: map[string]interface{}{}}},
	}}
	engine := NewRuleEngine(store, feeds, queue, nil, nil, testLogger(t), noopMetrics{})
	rule := &models.AlertRule{
		ID:      "always",
		Name:    "Always fires",
		Enabled: true,
		Threshold: models.AlertThreshold{
			AlertType:             models.AlertCombinedSignal,
			Severity:              models.SeverityLow,
			Conditions:            map[string]interface{}{},
			CooldownPeriodMinutes: 60,
		},
	}
	if err := engine.UpsertRule(context.Background(), rule); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	s := NewScheduler(r, engine, []string{"AAPL", "MSFT"}, testLogger(t))
	s.Tick(context.Background())

	got := col.collected()
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Fatalf("collected = %v", got)
	}
	if _, ok := engine.ActiveAlert(models.AlertCombinedSignal, "AAPL"); !ok {
		t.Fatalf("evaluation did not run after collection")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	col := &countingCollector{fakeCollector: fakeCollector{source: models.SourceSocial, enabled: true}}
	r := NewRegistry([]domsvc.Collector{col}, testLogger(t), noopMetrics{}, nil)
	engine := NewRuleEngine(newMemStore(), &staticFeeds{}, nil, nil, nil, testLogger(t), noopMetrics{})

	s := NewScheduler(r, engine, []string{"AAPL"}, testLogger(t), WithTickInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	// First tick fires immediately; the hour-long interval keeps a second
	// one from sneaking in before Stop.
	waitFor(t, "immediate first tick", func() bool { return len(col.collected()) == 1 })
	s.Stop()

	if got := len(col.collected()); got != 1 {
		t.Fatalf("ticks = %d, want 1", got)
	}
}
