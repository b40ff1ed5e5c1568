package collectors

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"SignalFuse/internal/domain/models"
	"SignalFuse/internal/domain/service"
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

func TestBaseSuccessRate(t *testing.T) {
	b := NewBase(models.SourceSocial, testLogger(t), time.Minute, time.Millisecond)

	for i := 0; i < 3; i++ {
		b.RecordAttempt(10*time.Millisecond, nil)
	}
	b.RecordAttempt(10*time.Millisecond, errors.New("boom"))

	m := b.Snapshot()
	if m.TotalCollections != 4 {
		t.Fatalf("total = %d", m.TotalCollections)
	}
	if m.SuccessRate != 0.75 {
		t.Fatalf("success rate = %v, want 0.75", m.SuccessRate)
	}
	if !b.Healthy() {
		t.Fatalf("75%% success should be healthy")
	}
}

func TestBaseUnhealthyBelowThreshold(t *testing.T) {
	b := NewBase(models.SourceNews, testLogger(t), time.Minute, time.Millisecond)
	b.RecordAttempt(time.Millisecond, errors.New("down"))
	b.RecordAttempt(time.Millisecond, errors.New("down"))
	b.RecordAttempt(time.Millisecond, nil)
	if b.Healthy() {
		t.Fatalf("1/3 success should be unhealthy")
	}
}

func TestBaseNoAttemptsIsHealthy(t *testing.T) {
	b := NewBase(models.SourceNews, testLogger(t), time.Minute, time.Millisecond)
	if !b.Healthy() {
		t.Fatalf("fresh collector should report healthy")
	}
	if m := b.Snapshot(); m.SuccessRate != 1 {
		t.Fatalf("success rate = %v, want 1", m.SuccessRate)
	}
}

func TestBaseResponseTimeEMA(t *testing.T) {
	b := NewBase(models.SourceInsider, testLogger(t), time.Minute, time.Millisecond)
	b.RecordAttempt(100*time.Millisecond, nil)
	if m := b.Snapshot(); m.AvgResponseTimeMs != 100 {
		t.Fatalf("first sample should seed the average, got %v", m.AvgResponseTimeMs)
	}
	b.RecordAttempt(200*time.Millisecond, nil)
	m := b.Snapshot()
	if math.Abs(m.AvgResponseTimeMs-120) > 1e-9 {
		t.Fatalf("ema = %v, want 120", m.AvgResponseTimeMs)
	}
}

func TestBaseRecentErrorsCapped(t *testing.T) {
	b := NewBase(models.SourceCongress, testLogger(t), time.Minute, time.Millisecond)
	for i := 0; i < 15; i++ {
		b.RecordAttempt(time.Millisecond, fmt.Errorf("err %d", i))
	}
	m := b.Snapshot()
	if len(m.RecentErrors) != maxRecentErrors {
		t.Fatalf("recent errors = %d, want %d", len(m.RecentErrors), maxRecentErrors)
	}
	if m.RecentErrors[len(m.RecentErrors)-1] != "err 14" {
		t.Fatalf("expected newest error kept, got %q", m.RecentErrors[len(m.RecentErrors)-1])
	}
}

func TestBaseApplyPatch(t *testing.T) {
	b := NewBase(models.SourceSocial, testLogger(t), time.Minute, time.Second)

	off := false
	iv := 10 * time.Minute
	b.ApplyPatch(service.CollectorConfigPatch{Enabled: &off, Interval: &iv})

	if b.Enabled() {
		t.Fatalf("collector should be disabled")
	}
	gotIv, _ := b.settings()
	if gotIv != iv {
		t.Fatalf("interval = %v", gotIv)
	}

	bad := -time.Second
	b.ApplyPatch(service.CollectorConfigPatch{Interval: &bad})
	if gotIv, _ = b.settings(); gotIv != iv {
		t.Fatalf("non-positive interval must be rejected, got %v", gotIv)
	}
}

func TestBaseLatestBatches(t *testing.T) {
	b := NewBase(models.SourceSocial, testLogger(t), time.Minute, time.Millisecond)
	batch := NewBatch("AAPL", models.SourceSocial, nil)
	b.SetLatest("AAPL", batch)

	got := b.LatestBatches()
	if got["AAPL"] != batch {
		t.Fatalf("latest batch not returned")
	}
	// mutating the copy must not touch the internal map
	delete(got, "AAPL")
	if b.LatestBatches()["AAPL"] != batch {
		t.Fatalf("internal map was mutated through the copy")
	}
}

func TestScoreSentiment(t *testing.T) {
	cases := []struct {
		text string
		sign int
	}{
		{"$AAPL to the moon, strong buy!", 1},
		{"downgrade incoming, weak quarter, sell", -1},
		{"quarterly report published today", 0},
		{"buy the dip but miss on earnings", 0},
	}
	for _, c := range cases {
		got := ScoreSentiment(c.text)
		switch {
		case c.sign > 0 && got <= 0:
			t.Fatalf("ScoreSentiment(%q) = %v, want positive", c.text, got)
		case c.sign < 0 && got >= 0:
			t.Fatalf("ScoreSentiment(%q) = %v, want negative", c.text, got)
		case c.sign == 0 && got != 0:
			t.Fatalf("ScoreSentiment(%q) = %v, want 0", c.text, got)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords("$AAPL rally continues, analysts say buy buy buy", 5)
	want := map[string]bool{"$aapl": true, "rally": true, "buy": true}
	if len(kws) != 3 {
		t.Fatalf("keywords = %v", kws)
	}
	for _, k := range kws {
		if !want[k] {
			t.Fatalf("unexpected keyword %q in %v", k, kws)
		}
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := []models.DataPoint{
		{Timestamp: now.Add(-time.Hour), Confidence: 0.8, Sentiment: 0.6, Significance: 0.4},
		{Timestamp: now, Confidence: 0.6, Sentiment: 0.6, Significance: 0.6},
	}
	s := Summarize(items)

	if s.TotalItems != 2 {
		t.Fatalf("total = %d", s.TotalItems)
	}
	if math.Abs(s.AvgConfidence-0.7) > 1e-9 {
		t.Fatalf("avg confidence = %v", s.AvgConfidence)
	}
	if !s.TimeRange.From.Equal(now.Add(-time.Hour)) || !s.TimeRange.To.Equal(now) {
		t.Fatalf("time range = %+v", s.TimeRange)
	}
	if s.Trends.Sentiment != "bullish" || s.Trends.Volume != "low" {
		t.Fatalf("trends = %+v", s.Trends)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Trends.Sentiment != "neutral" || s.Trends.Volume != "low" {
		t.Fatalf("empty summary trends = %+v", s.Trends)
	}
}

func TestClassify(t *testing.T) {
	err := classify(models.SourceNews, errors.New("news fetch /v1/company-news: unexpected status 429"))
	var ce *models.CollectorError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CollectorError, got %T", err)
	}
	if ce.Kind != models.ErrKindRateLimit {
		t.Fatalf("kind = %v, want rate limit", ce.Kind)
	}

	err = classify(models.SourceNews, errors.New("status 401 unauthorized"))
	if !errors.As(err, &ce) || ce.Kind != models.ErrKindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}
