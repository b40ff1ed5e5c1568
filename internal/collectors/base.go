package collectors

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/domain/service"
	"SignalFuse/pkg/logger"
)

const (
	errorWindow     = 24 * time.Hour
	maxRecentErrors = 10
	healthyMinRate  = 0.5
)

type attempt struct {
	at time.Time
	ok bool
}

// Base carries the bookkeeping every collector shares: rolling 24h success
// rate, response times, recent errors, and the auto-collection loop. Composed
// into each concrete collector, never embedded as behavior.
type Base struct {
	source models.SourceType
	logger *logger.Logger

	mu           sync.Mutex
	attempts     []attempt
	total        int64
	avgMs        float64
	lastUpdate   time.Time
	recentErrors []string

	interval    time.Duration
	symbolDelay time.Duration
	enabled     bool

	autoMu   sync.Mutex
	autoStop chan struct{}
	autoWG   sync.WaitGroup

	latestMu sync.RWMutex
	latest   map[string]*models.CollectedBatch
}

// NewBase creates collector bookkeeping for one source.
func NewBase(source models.SourceType, lgr *logger.Logger, interval, symbolDelay time.Duration) *Base {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if symbolDelay <= 0 {
		symbolDelay = time.Second
	}
	return &Base{
		source:      source,
		logger:      lgr,
		interval:    interval,
		symbolDelay: symbolDelay,
		enabled:     true,
		latest:      make(map[string]*models.CollectedBatch),
	}
}

// SetLatest records the most recent batch per symbol; the rule engine reads
// these as its live feed snapshot.
func (b *Base) SetLatest(symbol string, batch *models.CollectedBatch) {
	b.latestMu.Lock()
	b.latest[symbol] = batch
	b.latestMu.Unlock()
}

// LatestBatches returns a copy of the per-symbol latest batches.
func (b *Base) LatestBatches() map[string]*models.CollectedBatch {
	b.latestMu.RLock()
	defer b.latestMu.RUnlock()
	out := make(map[string]*models.CollectedBatch, len(b.latest))
	for k, v := range b.latest {
		out[k] = v
	}
	return out
}

// RecordAttempt registers one collect call outcome.
func (b *Base) RecordAttempt(elapsed time.Duration, err error) {
	now := time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total++
	b.lastUpdate = now
	b.attempts = append(b.attempts, attempt{at: now, ok: err == nil})
	b.pruneLocked(now)

	// exponential moving average keeps the metric cheap
	ms := float64(elapsed.Milliseconds())
	if b.avgMs == 0 {
		b.avgMs = ms
	} else {
		b.avgMs = 0.8*b.avgMs + 0.2*ms
	}

	if err != nil {
		b.recentErrors = append(b.recentErrors, err.Error())
		if len(b.recentErrors) > maxRecentErrors {
			b.recentErrors = b.recentErrors[len(b.recentErrors)-maxRecentErrors:]
		}
	}
}

func (b *Base) pruneLocked(now time.Time) {
	cut := now.Add(-errorWindow)
	i := 0
	for ; i < len(b.attempts); i++ {
		if b.attempts[i].at.After(cut) {
			break
		}
	}
	if i > 0 {
		b.attempts = b.attempts[i:]
	}
}

func (b *Base) successRateLocked() float64 {
	if len(b.attempts) == 0 {
		return 1
	}
	ok := 0
	for _, a := range b.attempts {
		if a.ok {
			ok++
		}
	}
	return float64(ok) / float64(len(b.attempts))
}

// Snapshot returns the collector metrics view.
func (b *Base) Snapshot() models.CollectorMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(time.Now())
	errs := make([]string, len(b.recentErrors))
	copy(errs, b.recentErrors)
	return models.CollectorMetrics{
		TotalCollections:  b.total,
		SuccessRate:       b.successRateLocked(),
		AvgResponseTimeMs: b.avgMs,
		LastUpdate:        b.lastUpdate,
		RecentErrors:      errs,
	}
}

// Healthy reports whether the rolling success rate is acceptable.
func (b *Base) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(time.Now())
	return b.successRateLocked() >= healthyMinRate
}

// ApplyPatch updates the mutable collector settings.
func (b *Base) ApplyPatch(p service.CollectorConfigPatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Enabled != nil {
		b.enabled = *p.Enabled
	}
	if p.Interval != nil && *p.Interval > 0 {
		b.interval = *p.Interval
	}
	if p.SymbolDelay != nil && *p.SymbolDelay >= 0 {
		b.symbolDelay = *p.SymbolDelay
	}
}

// Enabled reports whether the collector participates in collection.
func (b *Base) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

func (b *Base) settings() (time.Duration, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval, b.symbolDelay
}

// StartAuto launches the periodic collection loop. Symbols are iterated with
// an inter-item delay to respect external rate limits. Idempotent.
func (b *Base) StartAuto(ctx context.Context, symbols []string, collect func(context.Context, string)) {
	b.autoMu.Lock()
	defer b.autoMu.Unlock()
	if b.autoStop != nil {
		return
	}
	stop := make(chan struct{})
	b.autoStop = stop

	b.autoWG.Add(1)
	go func() {
		defer b.autoWG.Done()
		interval, _ := b.settings()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		b.logger.Info("auto-collection started",
			logger.String("source", string(b.source)),
			logger.Duration("interval", interval))
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !b.Enabled() {
					continue
				}
				b.sweep(ctx, stop, symbols, collect)
			}
		}
	}()
}

func (b *Base) sweep(ctx context.Context, stop chan struct{}, symbols []string, collect func(context.Context, string)) {
	_, delay := b.settings()
	if len(symbols) == 0 {
		collect(ctx, "")
		return
	}
	for i, sym := range symbols {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		collect(ctx, sym)
		if i < len(symbols)-1 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// StopAuto stops the loop and waits for the in-flight sweep to finish.
func (b *Base) StopAuto() {
	b.autoMu.Lock()
	stop := b.autoStop
	b.autoStop = nil
	b.autoMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	b.autoWG.Wait()
	b.logger.Info("auto-collection stopped", logger.String("source", string(b.source)))
}

// --- shared scoring helpers (free functions, not inheritance) ---

var positiveWords = map[string]struct{}{
	"beat": {}, "bullish": {}, "buy": {}, "growth": {}, "long": {}, "moon": {},
	"outperform": {}, "rally": {}, "record": {}, "strong": {}, "surge": {},
	"upgrade": {}, "up": {}, "win": {},
}

var negativeWords = map[string]struct{}{
	"bearish": {}, "crash": {}, "cut": {}, "decline": {}, "downgrade": {},
	"drop": {}, "fraud": {}, "lawsuit": {}, "miss": {}, "plunge": {},
	"recall": {}, "sell": {}, "short": {}, "weak": {},
}

// ScoreSentiment reduces free text to a score in [-1,1] with a small keyword
// heuristic. Deliberately simple; the scoring internals are a swappable
// plug-in behind the collector boundary.
func ScoreSentiment(text string) float64 {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?$#:;()\"'")
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

// ExtractKeywords returns up to max cashtags and sentiment-bearing words.
func ExtractKeywords(text string, max int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(out) >= max {
			break
		}
		trimmed := strings.Trim(w, ".,!?:;()\"'")
		_, isPos := positiveWords[trimmed]
		_, isNeg := negativeWords[trimmed]
		if !strings.HasPrefix(trimmed, "$") && !isPos && !isNeg {
			continue
		}
		if _, dup := seen[trimmed]; dup || trimmed == "" {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// Summarize derives the batch summary from its items.
func Summarize(items []models.DataPoint) models.BatchSummary {
	s := models.BatchSummary{TotalItems: len(items)}
	if len(items) == 0 {
		s.Trends = models.Trends{Sentiment: "neutral", Volume: "low"}
		return s
	}

	var confSum, sentSum, sigSum float64
	times := make([]time.Time, 0, len(items))
	for i := range items {
		confSum += items[i].Confidence
		sentSum += items[i].Sentiment
		sigSum += items[i].Significance
		times = append(times, items[i].Timestamp)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	n := float64(len(items))
	s.AvgConfidence = confSum / n
	s.TimeRange = models.TimeRange{From: times[0], To: times[len(times)-1]}

	meanSent := sentSum / n
	volume := "low"
	switch {
	case len(items) >= 50:
		volume = "high"
	case len(items) >= 10:
		volume = "moderate"
	}
	s.Trends = models.Trends{
		Sentiment:    trendLabel(meanSent),
		Volume:       volume,
		Significance: sigSum / n,
	}
	return s
}

func trendLabel(score float64) string {
	switch {
	case score > 0.15:
		return "bullish"
	case score < -0.15:
		return "bearish"
	default:
		return "neutral"
	}
}

// NewBatch assembles a CollectedBatch with its derived summary.
func NewBatch(symbol string, source models.SourceType, items []models.DataPoint) *models.CollectedBatch {
	return &models.CollectedBatch{
		Symbol:        symbol,
		CollectorType: source,
		Timestamp:     time.Now(),
		Items:         items,
		Summary:       Summarize(items),
	}
}

// scale compresses an unbounded positive magnitude into [0,1).
func scale(v, mid float64) float64 {
	if v <= 0 || mid <= 0 {
		return 0
	}
	return math.Tanh(v / mid)
}

// clampConf keeps derived confidences inside [0, 0.98]; nothing from an
// external feed is ever fully trusted.
func clampConf(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0.98 {
		return 0.98
	}
	return v
}
