package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	domsvc "SignalFuse/internal/domain/service"
)

// fakeCollector returns a fixed batch or error; it also implements the
// batch-source view the live feed snapshot reads.
type fakeCollector struct {
	source  models.SourceType
	batch   *models.CollectedBatch
	err     error
	enabled bool
	latest  map[string]*models.CollectedBatch
}

func (f *fakeCollector) Type() models.SourceType { return f.source }

func (f *fakeCollector) Collect(context.Context, string) (*models.CollectedBatch, error) {
	return f.batch, f.err
}

func (f *fakeCollector) Enabled() bool                            { return f.enabled }
func (f *fakeCollector) IsHealthy() bool                          { return true }
func (f *fakeCollector) Metrics() models.CollectorMetrics         { return models.CollectorMetrics{} }
func (f *fakeCollector) UpdateConfig(domsvc.CollectorConfigPatch) {}
func (f *fakeCollector) StartAuto(context.Context, []string)      {}
func (f *fakeCollector) StopAuto()                                {}

func (f *fakeCollector) LatestBatches() map[string]*models.CollectedBatch { return f.latest }

func TestCollectAllPartialFailure(t *testing.T) {
	social := &fakeCollector{
		source:  models.SourceSocial,
		enabled: true,
		batch:   testBatch(models.SourceSocial, point(0.6, 0.8, time.Minute)),
	}
	news := &fakeCollector{
		source:  models.SourceNews,
		enabled: true,
		err:     errors.New("upstream down"),
	}

	r := NewRegistry([]domsvc.Collector{social, news}, testLogger(t), noopMetrics{}, nil)
	sig, err := r.CollectAll(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(sig.Sources) != 1 || sig.Sources[0] != "social" {
		t.Fatalf("sources = %v, want [social]", sig.Sources)
	}
	if sig.TradingSignals.Social <= 0 {
		t.Fatalf("expected positive social signal, got %v", sig.TradingSignals.Social)
	}

	got, ok := r.Latest("AAPL")
	if !ok || got != sig {
		t.Fatalf("latest signal not stored")
	}
}

func TestCollectAllEveryCollectorFails(t *testing.T) {
	social := &fakeCollector{source: models.SourceSocial, enabled: true, err: errors.New("timeout")}
	news := &fakeCollector{source: models.SourceNews, enabled: true, err: errors.New("503")}

	r := NewRegistry([]domsvc.Collector{social, news}, testLogger(t), noopMetrics{}, nil)
	sig, err := r.CollectAll(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(sig.Sources) != 0 {
		t.Fatalf("sources = %v, want none", sig.Sources)
	}
	if sig.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", sig.Confidence)
	}
	if sig.TradingSignals.Combined != 0 {
		t.Fatalf("combined = %v, want 0", sig.TradingSignals.Combined)
	}
	if sig.RiskLevel != models.RiskLow {
		t.Fatalf("risk = %v, want low", sig.RiskLevel)
	}
}

func TestCollectAllSkipsDisabled(t *testing.T) {
	off := &fakeCollector{
		source: models.SourceInsider,
		batch:  testBatch(models.SourceInsider, point(0.9, 0.9, time.Minute)),
	}
	r := NewRegistry([]domsvc.Collector{off}, testLogger(t), noopMetrics{}, nil)

	sig, err := r.CollectAll(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(sig.Sources) != 0 {
		t.Fatalf("disabled collector contributed: %v", sig.Sources)
	}
	if sig.Confidence != 0 || sig.RiskLevel != models.RiskLow {
		t.Fatalf("empty cycle should be a neutral signal: %+v", sig)
	}
}

func TestCollectAllAssignsAdHocAlertIDs(t *testing.T) {
	// A single very bullish source drives |combined| above the ad-hoc gate.
	strong := &fakeCollector{
		source:  models.SourceInsider,
		enabled: true,
		batch:   testBatch(models.SourceInsider, point(1.0, 1.0, time.Minute)),
	}
	r := NewRegistry([]domsvc.Collector{strong}, testLogger(t), noopMetrics{}, nil)

	sig, err := r.CollectAll(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(sig.Alerts) == 0 {
		t.Fatalf("expected ad-hoc alert for combined %v", sig.TradingSignals.Combined)
	}
	for _, a := range sig.Alerts {
		if a.ID == "" {
			t.Fatalf("ad-hoc alert missing id")
		}
	}
}

func TestLiveFeedsPointEvents(t *testing.T) {
	insider := &fakeCollector{
		source:  models.SourceInsider,
		enabled: true,
		latest: map[string]*models.CollectedBatch{
			"AAPL": testBatch(models.SourceInsider, models.DataPoint{
				Timestamp:  fuseNow,
				Symbol:     "AAPL",
				Confidence: 0.9,
				Value:      2_000_000,
			}),
		},
	}
	r := NewRegistry([]domsvc.Collector{insider}, testLogger(t), noopMetrics{}, nil)
	feeds := NewLiveFeeds(r, nil)

	evs, err := feeds.Events(context.Background(), models.AlertInsiderTrade)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("events = %d, want 1", len(evs))
	}
	if evs[0].Fields["insiderTradeValue"] != 2_000_000.0 {
		t.Fatalf("fields = %v", evs[0].Fields)
	}
}

func TestLiveFeedsNewsOnlyBreaking(t *testing.T) {
	news := &fakeCollector{
		source:  models.SourceNews,
		enabled: true,
		latest: map[string]*models.CollectedBatch{
			"TSLA": testBatch(models.SourceNews,
				models.DataPoint{
					Timestamp:    fuseNow,
					Significance: 0.8,
					Confidence:   0.9,
					Metadata:     map[string]interface{}{"breaking": true},
				},
				models.DataPoint{
					Timestamp:    fuseNow,
					Significance: 0.9,
					Confidence:   0.9,
				},
			),
		},
	}
	r := NewRegistry([]domsvc.Collector{news}, testLogger(t), noopMetrics{}, nil)
	feeds := NewLiveFeeds(r, nil)

	evs, err := feeds.Events(context.Background(), models.AlertBreakingNews)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("only breaking items should surface, got %d", len(evs))
	}
	if evs[0].Fields["impactScore"] != 0.8 {
		t.Fatalf("impact = %v", evs[0].Fields["impactScore"])
	}
}

func TestLiveFeedsSentimentMagnitude(t *testing.T) {
	// Bearish spike: score is negative but magnitude drives the condition.
	social := &fakeCollector{
		source:  models.SourceSocial,
		enabled: true,
		batch:   testBatch(models.SourceSocial, point(-0.8, 1.0, time.Minute)),
	}
	r := NewRegistry([]domsvc.Collector{social}, testLogger(t), noopMetrics{}, nil)
	if _, err := r.CollectAll(context.Background(), "AAPL"); err != nil {
		t.Fatalf("collect: %v", err)
	}

	feeds := NewLiveFeeds(r, nil)
	evs, err := feeds.Events(context.Background(), models.AlertSentimentSpike)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("events = %d", len(evs))
	}
	score := evs[0].Fields["sentimentScore"].(float64)
	mag := evs[0].Fields["sentimentMagnitude"].(float64)
	if score >= 0 {
		t.Fatalf("score = %v, want negative", score)
	}
	if mag != -score {
		t.Fatalf("magnitude %v should be |score| %v", mag, score)
	}
}

func TestLiveFeedsMarketTypesWithoutFeed(t *testing.T) {
	r := NewRegistry(nil, testLogger(t), noopMetrics{}, nil)
	feeds := NewLiveFeeds(r, nil)
	for _, typ := range []models.AlertType{models.AlertPriceAnomaly, models.AlertEarnings} {
		evs, err := feeds.Events(context.Background(), typ)
		if err != nil || evs != nil {
			t.Fatalf("%s without market feed: evs=%v err=%v", typ, evs, err)
		}
	}
}
