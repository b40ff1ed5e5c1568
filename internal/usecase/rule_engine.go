package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/service/events"
	"SignalFuse/pkg/logger"

	"github.com/google/uuid"
)

// FeedProvider supplies the live trigger events a rule type evaluates
// against. Field names follow the condition vocabulary: insiderTradeValue,
// congressTradeValue, priceChangePercent, volumeRatio, sentimentScore,
// mentionVelocity, impactScore, epsSurprisePercent, keywords.
type FeedProvider interface {
	Events(ctx context.Context, t models.AlertType) ([]models.TriggerEvent, error)
}

// Enqueuer accepts alerts for deep analysis.
type Enqueuer interface {
	EnqueueAlert(a *models.Alert, modules []string)
}

// NotificationDispatcher fans an alert out to its configured channels.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, a *models.Alert, channels []string)
}

// RuleEngine owns the rules map and the active-alerts map; all access goes
// through its mutex-guarded accessors, never through a shared raw map.
type RuleEngine struct {
	store    domrepo.AlertStore
	feeds    FeedProvider
	queue    Enqueuer
	dispatch NotificationDispatcher
	bus      *events.Bus
	logger   *logger.Logger
	metrics  domrepo.Metrics
	now      func() time.Time

	mu     sync.RWMutex
	rules  map[string]*models.AlertRule
	active map[string]*models.Alert // keyed type|symbol
}

// EngineOption configures RuleEngine.
type EngineOption func(*RuleEngine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *RuleEngine) { e.now = now }
}

// NewRuleEngine creates the engine. Rules are loaded via LoadRules.
func NewRuleEngine(store domrepo.AlertStore, feeds FeedProvider, queue Enqueuer, dispatch NotificationDispatcher, bus *events.Bus, lgr *logger.Logger, m domrepo.Metrics, opts ...EngineOption) *RuleEngine {
	e := &RuleEngine{
		store:    store,
		feeds:    feeds,
		queue:    queue,
		dispatch: dispatch,
		bus:      bus,
		logger:   lgr,
		metrics:  m,
		now:      time.Now,
		rules:    make(map[string]*models.AlertRule),
		active:   make(map[string]*models.Alert),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LoadRules restores persisted rules, seeding defaults on first run. A
// failing store degrades to the in-memory default set; the engine keeps
// running with memory as the authoritative view.
func (e *RuleEngine) LoadRules(ctx context.Context) error {
	rules, err := e.store.ListRules(ctx)
	if err != nil {
		e.logger.Warn("rule load failed, seeding defaults in memory only", logger.Error(err))
		e.metrics.RecordError("rule_load")
		rules = DefaultRules(e.now())
	} else if len(rules) == 0 {
		rules = DefaultRules(e.now())
		for _, r := range rules {
			if err := e.store.SaveRule(ctx, r); err != nil {
				e.logger.Warn("seed rule persist failed",
					logger.String("rule", r.Name), logger.Error(err))
			}
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rules {
		e.rules[r.ID] = r
	}
	e.logger.Info("rules loaded", logger.Int("count", len(rules)))
	return nil
}

// Rules returns a snapshot of all rules. The snapshot holds copies: trigger
// counters on the live rules keep moving underneath, and callers may
// serialize or mutate the result without holding the engine lock.
func (e *RuleEngine) Rules() []*models.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.AlertRule, 0, len(e.rules))
	for _, r := range e.rules {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// UpsertRule adds or replaces a rule and persists it.
func (e *RuleEngine) UpsertRule(ctx context.Context, r *models.AlertRule) error {
	r.UpdatedAt = e.now()
	if err := e.store.SaveRule(ctx, r); err != nil {
		return fmt.Errorf("save rule: %w", err)
	}
	cp := *r
	e.mu.Lock()
	e.rules[r.ID] = &cp
	e.mu.Unlock()
	return nil
}

// GetRule returns a copy of a rule by id from the in-memory arena.
func (e *RuleEngine) GetRule(id string) (*models.AlertRule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// EvaluateAll runs one evaluation pass: every enabled rule, concurrently,
// each isolated so one failing rule cannot block the rest.
func (e *RuleEngine) EvaluateAll(ctx context.Context) {
	rules := e.Rules()
	var wg sync.WaitGroup
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		wg.Add(1)
		go func(r *models.AlertRule) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					e.logger.Error("rule evaluation panic",
						logger.String("rule", r.Name),
						logger.Any("panic", rec))
					e.metrics.RecordError("rule_panic")
				}
			}()
			if err := e.evaluateRule(ctx, r); err != nil {
				e.logger.Warn("rule evaluation failed",
					logger.String("rule", r.Name), logger.Error(err))
				e.metrics.RecordError("rule_eval")
			}
		}(r)
	}
	wg.Wait()
}

func (e *RuleEngine) evaluateRule(ctx context.Context, r *models.AlertRule) error {
	evs, err := e.feeds.Events(ctx, r.Threshold.AlertType)
	if err != nil {
		return fmt.Errorf("fetch %s events: %w", r.Threshold.AlertType, err)
	}
	for i := range evs {
		if MatchConditions(r.Threshold.Conditions, evs[i].Fields) {
			e.trigger(ctx, r, &evs[i])
		}
	}
	return nil
}

// MatchConditions evaluates a rule's conditions against event fields as a
// logical AND. Absent conditions are unconstrained; an empty conditions map
// always matches and acts as a scheduled trigger, by contract. A condition on
// a field the event does not carry fails: the constraint cannot be verified.
//
// Numeric conditions are floors by default; a "Max" key suffix makes the
// constraint a ceiling, a "Min" suffix is the explicit floor form. String
// and string-list conditions require a (case-insensitive) overlap.
func MatchConditions(conds map[string]interface{}, fields map[string]interface{}) bool {
	for key, cv := range conds {
		if cv == nil {
			continue
		}
		if n, ok := asFloat(cv); ok {
			field, ceiling := conditionField(key)
			fv, ok := asFloat(fields[field])
			if !ok {
				return false
			}
			if ceiling {
				if fv > n {
					return false
				}
			} else if fv < n {
				return false
			}
			continue
		}
		want := asStrings(cv)
		if len(want) == 0 {
			continue
		}
		if !anyOverlap(want, asStrings(fields[key])) {
			return false
		}
	}
	return true
}

func conditionField(key string) (field string, ceiling bool) {
	switch {
	case strings.HasSuffix(key, "Min"):
		return strings.TrimSuffix(key, "Min"), false
	case strings.HasSuffix(key, "Max"):
		return strings.TrimSuffix(key, "Max"), true
	default:
		return key, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asStrings(v interface{}) []string {
	switch s := v.(type) {
	case string:
		return []string{s}
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, it := range s {
			if str, ok := it.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func anyOverlap(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

func (e *RuleEngine) trigger(ctx context.Context, r *models.AlertRule, ev *models.TriggerEvent) {
	now := e.now()
	t := r.Threshold.AlertType
	key := alertKey(t, ev.Symbol)
	cooldown := time.Duration(r.Threshold.CooldownPeriodMinutes) * time.Minute

	e.mu.Lock()
	if prev, ok := e.active[key]; ok && now.Sub(prev.Timestamp) < cooldown {
		e.mu.Unlock()
		return
	}
	// Reserve the (type, symbol) slot before releasing the lock: rules
	// sharing an alert type evaluate in parallel goroutines, and both would
	// pass the check during the store lookback otherwise.
	reserved := &models.Alert{Type: t, Symbol: ev.Symbol, Timestamp: now}
	e.active[key] = reserved
	e.mu.Unlock()

	release := func() {
		e.mu.Lock()
		if e.active[key] == reserved {
			delete(e.active, key)
		}
		e.mu.Unlock()
	}

	// restart-safe lookback; store errors fail open to the in-memory view
	if last, ok, err := e.store.LastTriggered(ctx, t, ev.Symbol); err == nil && ok && now.Sub(last) < cooldown {
		release()
		return
	}

	severity := r.Threshold.Severity
	if t == models.AlertBreakingNews {
		if impact, ok := asFloat(ev.Fields["impactScore"]); ok && impact >= 0.9 {
			severity = models.SeverityCritical
		}
	}

	confidence, _ := asFloat(ev.Fields["confidence"])
	alert := &models.Alert{
		ID:          uuid.NewString(),
		Type:        t,
		Severity:    severity,
		Symbol:      ev.Symbol,
		Title:       fmt.Sprintf("%s: %s", r.Name, ev.Symbol),
		Description: fmt.Sprintf("rule %q matched on %s data", r.Name, ev.Source),
		Status:      models.StatusTriggered,
		TriggerData: ev.Fields,
		Timestamp:   now,
		Metadata: models.AlertMetadata{
			Source:        ev.Source,
			Confidence:    confidence,
			SuppressUntil: now.Add(cooldown),
		},
	}

	// Counters move on the canonical rule in the arena, not the evaluation
	// snapshot; a copy taken under the lock is what gets persisted.
	e.mu.Lock()
	e.active[key] = alert
	var persist *models.AlertRule
	if cur, ok := e.rules[r.ID]; ok {
		cur.TriggeredCount++
		cur.Effectiveness.TotalTriggers++
		cur.UpdatedAt = now
		cp := *cur
		persist = &cp
	}
	e.mu.Unlock()

	e.metrics.RecordAlert(string(t), string(severity))
	e.logger.Info("alert triggered",
		logger.String("rule", r.Name),
		logger.String("type", string(t)),
		logger.String("symbol", ev.Symbol),
		logger.String("severity", string(severity)))

	if persist != nil {
		if err := e.store.SaveRule(ctx, persist); err != nil {
			e.logger.Warn("rule counter persist failed", logger.Error(err))
			e.metrics.RecordError("persist_rule")
		}
	}
	if err := e.store.SaveAlert(ctx, alert); err != nil {
		e.logger.Warn("alert persist failed", logger.Error(err))
		e.metrics.RecordError("persist_alert")
	}

	if e.bus != nil {
		e.bus.Publish(events.KindAlertTriggered, alert)
	}

	if e.dispatch != nil && len(r.Threshold.NotificationChannels) > 0 {
		e.dispatch.Dispatch(ctx, alert, r.Threshold.NotificationChannels)
		if err := e.store.SaveAlert(ctx, alert); err != nil {
			e.metrics.RecordError("persist_alert")
		}
	}

	if r.Threshold.AutoTriggerAnalysis && e.queue != nil {
		alert.Status = models.StatusAnalysisQueued
		alert.AnalysisTriggered = true
		alert.AnalysisSessionID = uuid.NewString()
		if err := e.store.SaveAlert(ctx, alert); err != nil {
			e.metrics.RecordError("persist_alert")
		}
		e.queue.EnqueueAlert(alert, r.Threshold.AnalysisModules)
	}
}

func alertKey(t models.AlertType, symbol string) string {
	return string(t) + "|" + symbol
}

// ActiveAlert returns the tracked alert for (type, symbol), if any.
func (e *RuleEngine) ActiveAlert(t models.AlertType, symbol string) (*models.Alert, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.active[alertKey(t, symbol)]
	return a, ok
}

// PurgeExpired removes alerts past the retention horizon from the store and
// evicts them from the active map.
func (e *RuleEngine) PurgeExpired(ctx context.Context, horizon time.Time) {
	n, err := e.store.PurgeOlderThan(ctx, horizon)
	if err != nil {
		e.logger.Warn("retention sweep failed", logger.Error(err))
		e.metrics.RecordError("retention")
		return
	}
	e.mu.Lock()
	for k, a := range e.active {
		if a.Timestamp.Before(horizon) {
			delete(e.active, k)
		}
	}
	e.mu.Unlock()
	if n > 0 {
		e.logger.Info("retention sweep", logger.Int64("purged", n))
	}
}

// DefaultRules is the rule set seeded on first start.
func DefaultRules(now time.Time) []*models.AlertRule {
	mk := func(name, desc string, th models.AlertThreshold) *models.AlertRule {
		return &models.AlertRule{
			ID:          uuid.NewString(),
			Name:        name,
			Description: desc,
			Enabled:     true,
			Threshold:   th,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return []*models.AlertRule{
		mk("Large insider transaction", "insider buy/sell above $1M", models.AlertThreshold{
			AlertType:             models.AlertInsiderTrade,
			Severity:              models.SeverityHigh,
			Conditions:            map[string]interface{}{"insiderTradeValueMin": 1_000_000.0},
			CooldownPeriodMinutes: 60,
			NotificationChannels:  []string{"console"},
			AutoTriggerAnalysis:   true,
			AnalysisModules:       []string{"fundamental", "insider", "risk"},
		}),
		mk("Congress trade disclosure", "legislator trade above $250k midpoint", models.AlertThreshold{
			AlertType:             models.AlertCongressTrade,
			Severity:              models.SeverityMedium,
			Conditions:            map[string]interface{}{"congressTradeValueMin": 250_000.0},
			CooldownPeriodMinutes: 120,
			NotificationChannels:  []string{"console"},
		}),
		mk("Price anomaly", "price move with volume confirmation", models.AlertThreshold{
			AlertType:             models.AlertPriceAnomaly,
			Severity:              models.SeverityHigh,
			Conditions:            map[string]interface{}{"priceChangePercent": 10.0, "volumeRatio": 2.0},
			CooldownPeriodMinutes: 30,
			NotificationChannels:  []string{"console"},
			AutoTriggerAnalysis:   true,
			AnalysisModules:       []string{"technical", "anomaly", "risk", "fusion"},
		}),
		mk("Sentiment spike", "social chatter velocity with strong sentiment", models.AlertThreshold{
			AlertType:             models.AlertSentimentSpike,
			Severity:              models.SeverityMedium,
			Conditions:            map[string]interface{}{"mentionVelocityMin": 120.0, "sentimentMagnitudeMin": 0.5},
			CooldownPeriodMinutes: 60,
			NotificationChannels:  []string{"console"},
		}),
		mk("Breaking news", "high-impact breaking coverage", models.AlertThreshold{
			AlertType:             models.AlertBreakingNews,
			Severity:              models.SeverityHigh,
			Conditions:            map[string]interface{}{"impactScoreMin": 0.7},
			CooldownPeriodMinutes: 60,
			NotificationChannels:  []string{"console"},
			AutoTriggerAnalysis:   true,
			AnalysisModules:       []string{"news", "impact", "risk"},
		}),
		mk("Earnings surprise", "EPS surprise beyond 10 percent", models.AlertThreshold{
			AlertType:             models.AlertEarnings,
			Severity:              models.SeverityMedium,
			Conditions:            map[string]interface{}{"epsSurprisePercentMin": 10.0},
			CooldownPeriodMinutes: 720,
			NotificationChannels:  []string{"console"},
		}),
	}
}
