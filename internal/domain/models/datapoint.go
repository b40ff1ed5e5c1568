package models

import "time"

// SourceType identifies the external feed a data point came from.
type SourceType string

const (
	SourceSocial   SourceType = "social"
	SourceInsider  SourceType = "insider"
	SourceCongress SourceType = "congress"
	SourceNews     SourceType = "news"
)

// DataPoint is a single timestamped observation produced by a collector.
// Immutable once produced; consumers treat it as read-only.
type DataPoint struct {
	Timestamp    time.Time
	Source       SourceType
	Symbol       string
	Confidence   float64 // [0,1], derived from source-specific quality signals
	Sentiment    float64 // [-1,1]
	Significance float64 // [0,1]
	Value        float64 // source-specific magnitude (trade value, engagement, ...)
	Keywords     []string
	Metadata     map[string]interface{}
}

// Trends summarizes the direction of a collected batch.
type Trends struct {
	Sentiment    string  // "bullish", "bearish", "neutral"
	Volume       string  // "low", "moderate", "high"
	Significance float64 // [0,1]
}

// BatchSummary is the derived summary attached to every CollectedBatch.
type BatchSummary struct {
	TotalItems    int
	AvgConfidence float64
	TimeRange     TimeRange
	Trends        Trends
}

// TimeRange is the [oldest, newest] span of items in a batch.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// CollectedBatch is the result of one collect call. Created once, never
// mutated; owned by the caller that requested it.
type CollectedBatch struct {
	Symbol        string
	CollectorType SourceType
	Timestamp     time.Time
	Items         []DataPoint
	Summary       BatchSummary
}

// Empty reports whether the batch carries no data points.
func (b *CollectedBatch) Empty() bool { return b == nil || len(b.Items) == 0 }

// CollectorMetrics is the health snapshot a collector exposes.
type CollectorMetrics struct {
	TotalCollections  int64
	SuccessRate       float64 // over a rolling 24h window
	AvgResponseTimeMs float64
	LastUpdate        time.Time
	RecentErrors      []string
}
