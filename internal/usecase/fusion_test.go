package usecase

import (
	"math"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
)

var fuseNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testBatch(src models.SourceType, items ...models.DataPoint) *models.CollectedBatch {
	var sum float64
	tr := models.TimeRange{}
	for i := range items {
		items[i].Source = src
		sum += items[i].Confidence
		ts := items[i].Timestamp
		if tr.From.IsZero() || ts.Before(tr.From) {
			tr.From = ts
		}
		if ts.After(tr.To) {
			tr.To = ts
		}
	}
	b := &models.CollectedBatch{
		Symbol:        "AAPL",
		CollectorType: src,
		Timestamp:     fuseNow,
		Items:         items,
	}
	b.Summary.TotalItems = len(items)
	b.Summary.TimeRange = tr
	if len(items) > 0 {
		b.Summary.AvgConfidence = sum / float64(len(items))
	}
	return b
}

func point(sentiment, confidence float64, age time.Duration) models.DataPoint {
	return models.DataPoint{
		Timestamp:    fuseNow.Add(-age),
		Symbol:       "AAPL",
		Confidence:   confidence,
		Sentiment:    sentiment,
		Significance: 0.5,
	}
}

func TestBuildSignalNoBatches(t *testing.T) {
	sig := BuildSignal("AAPL", fuseNow, nil)
	if sig.Symbol != "AAPL" {
		t.Fatalf("symbol %q", sig.Symbol)
	}
	if len(sig.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", sig.Sources)
	}
	if sig.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", sig.Confidence)
	}
	if sig.RiskLevel != models.RiskLow {
		t.Fatalf("expected low risk, got %v", sig.RiskLevel)
	}
	if sig.TradingSignals.Combined != 0 {
		t.Fatalf("expected zero combined, got %v", sig.TradingSignals.Combined)
	}
}

func TestFuseTradingSignalsRenormalizesOverPresent(t *testing.T) {
	social := testBatch(models.SourceSocial,
		point(0.8, 1.0, time.Minute),
		point(0.8, 1.0, time.Minute),
	)

	ts := FuseTradingSignals([]*models.CollectedBatch{social}, fuseNow)
	if len(ts.Present) != 1 || ts.Present[0] != models.SourceSocial {
		t.Fatalf("present = %v", ts.Present)
	}
	// Only one source present, so Combined equals that source's signal, not
	// the weight-scaled fraction of it.
	if math.Abs(ts.Combined-ts.Social) > 1e-9 {
		t.Fatalf("combined %v != social %v", ts.Combined, ts.Social)
	}
	if ts.Combined <= 0 {
		t.Fatalf("expected bullish combined, got %v", ts.Combined)
	}
}

func TestFuseTradingSignalsIgnoresEmptyBatches(t *testing.T) {
	social := testBatch(models.SourceSocial, point(0.5, 1.0, time.Minute))
	empty := testBatch(models.SourceNews)

	ts := FuseTradingSignals([]*models.CollectedBatch{social, empty}, fuseNow)
	if len(ts.Present) != 1 {
		t.Fatalf("empty batch should not count as present: %v", ts.Present)
	}
	if ts.News != 0 {
		t.Fatalf("news signal should stay zero, got %v", ts.News)
	}
}

func TestSourceSignalRecencyWeighting(t *testing.T) {
	// Same confidences, opposite sentiments; the fresh item must dominate.
	b := testBatch(models.SourceNews,
		point(1.0, 0.9, 10*time.Minute),
		point(-1.0, 0.9, 48*time.Hour),
	)
	v := SourceSignal(b, fuseNow)
	if v <= 0 {
		t.Fatalf("expected recent positive item to dominate, got %v", v)
	}
}

func TestSourceSignalClamped(t *testing.T) {
	b := testBatch(models.SourceInsider, point(5.0, 1.0, time.Minute))
	v := SourceSignal(b, fuseNow)
	if v < -1 || v > 1 {
		t.Fatalf("signal out of range: %v", v)
	}
}

func TestFuseConfidenceMeanOfSources(t *testing.T) {
	a := testBatch(models.SourceSocial, point(0, 0.8, time.Minute))
	b := testBatch(models.SourceNews, point(0, 0.6, time.Minute))

	got := FuseConfidence([]*models.CollectedBatch{a, b})
	if math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.7", got)
	}
}

func TestFuseConfidenceEmpty(t *testing.T) {
	if got := FuseConfidence(nil); got != 0 {
		t.Fatalf("confidence = %v, want 0", got)
	}
}

func TestOverallSentimentWeightedAndCapped(t *testing.T) {
	items := make([]models.DataPoint, 0, 12)
	for i := 0; i < 12; i++ {
		p := point(0.5, 1.0, time.Minute)
		p.Keywords = []string{string(rune('a' + i))}
		items = append(items, p)
	}
	s := OverallSentiment([]*models.CollectedBatch{testBatch(models.SourceSocial, items...)})

	if len(s.Keywords) != maxSentimentKeywords {
		t.Fatalf("keywords = %d, want %d", len(s.Keywords), maxSentimentKeywords)
	}
	if s.Label != "bullish" {
		t.Fatalf("label = %q", s.Label)
	}
}

func TestOverallSentimentZeroWeight(t *testing.T) {
	s := OverallSentiment([]*models.CollectedBatch{
		testBatch(models.SourceSocial, point(0.9, 0, time.Minute)),
	})
	if s.Score != 0 || s.Label != "neutral" {
		t.Fatalf("zero-confidence items should yield neutral, got %v %q", s.Score, s.Label)
	}
}

func TestSocialMetricsVelocity(t *testing.T) {
	items := make([]models.DataPoint, 0, 60)
	for i := 0; i < 60; i++ {
		p := point(0, 0.5, time.Duration(i)*time.Minute)
		p.Value = 10
		items = append(items, p)
	}
	m := SocialMetricsFrom([]*models.CollectedBatch{testBatch(models.SourceSocial, items...)})

	if m.Mentions != 60 {
		t.Fatalf("mentions = %d", m.Mentions)
	}
	// 60 mentions inside a sub-hour window floors to one hour.
	if !m.Trending {
		t.Fatalf("expected trending at %v mentions/hour", m.Velocity)
	}
	if m.Engagement != 600 {
		t.Fatalf("engagement = %v", m.Engagement)
	}
}

func TestSocialMetricsIgnoresOtherSources(t *testing.T) {
	m := SocialMetricsFrom([]*models.CollectedBatch{
		testBatch(models.SourceNews, point(0, 0.5, time.Minute)),
	})
	if m.Mentions != 0 {
		t.Fatalf("news items must not count as mentions")
	}
}

func TestRiskFrom(t *testing.T) {
	cases := []struct {
		combined   float64
		confidence float64
		want       models.RiskLevel
	}{
		{0.9, 0.1, models.RiskHigh},
		{-0.9, 0.1, models.RiskHigh},
		{0.8, 0.5, models.RiskMedium},
		{0.2, 0.9, models.RiskLow},
		{0, 0, models.RiskLow},
	}
	for _, c := range cases {
		if got := RiskFrom(c.combined, c.confidence); got != c.want {
			t.Fatalf("RiskFrom(%v, %v) = %v, want %v", c.combined, c.confidence, got, c.want)
		}
	}
}

func TestAdHocAlertsStrongCombined(t *testing.T) {
	sig := &models.AggregatedSignal{
		Symbol:    "AAPL",
		Timestamp: fuseNow,
		TradingSignals: models.TradingSignals{
			Combined: -0.85,
		},
		Confidence: 0.6,
		RiskLevel:  models.RiskMedium,
	}
	alerts := AdHocAlerts(sig)
	if len(alerts) == 0 {
		t.Fatalf("expected combined-signal alert")
	}
	if alerts[0].Type != models.AlertCombinedSignal {
		t.Fatalf("type = %v", alerts[0].Type)
	}
	if alerts[0].Severity != models.SeverityHigh {
		t.Fatalf("severity = %v", alerts[0].Severity)
	}
}
