package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	pkgch "SignalFuse/pkg/clickhouse"
	applogger "SignalFuse/pkg/logger"
)

// CHSignalHistory implements SignalHistory backed by ClickHouse. Append-only;
// retention is delegated to the table TTL.
type CHSignalHistory struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewCHSignalHistory(ch *pkgch.Client) *CHSignalHistory {
	return &CHSignalHistory{client: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSignalHistory) SetLogger(l *applogger.Logger) { s.l = l }

var signalHistorySchema = []string{
	`CREATE DATABASE IF NOT EXISTS signalfuse`,
	`CREATE TABLE IF NOT EXISTS signalfuse.signal_history (
		symbol          String,
		ts              DateTime64(3),
		sources         String,
		sentiment_score Float64,
		sentiment_label String,
		keywords        String,
		mentions        Int64,
		velocity        Float64,
		sig_insider     Float64,
		sig_congress    Float64,
		sig_social      Float64,
		sig_news        Float64,
		sig_combined    Float64,
		confidence      Float64,
		risk_level      String
	) ENGINE = MergeTree()
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,
}

// InitSchema creates the history table (idempotent).
func (s *CHSignalHistory) InitSchema(ctx context.Context) error {
	return s.client.InitSchema(ctx, signalHistorySchema)
}

// Append writes one fused signal row.
func (s *CHSignalHistory) Append(ctx context.Context, sig *models.AggregatedSignal) error {
	start := time.Now()
	sources, _ := json.Marshal(sig.Sources)
	keywords, _ := json.Marshal(sig.OverallSentiment.Keywords)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signalfuse.signal_history
			(symbol, ts, sources, sentiment_score, sentiment_label, keywords,
			 mentions, velocity, sig_insider, sig_congress, sig_social, sig_news,
			 sig_combined, confidence, risk_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sig.Symbol, sig.Timestamp, string(sources), sig.OverallSentiment.Score,
		sig.OverallSentiment.Label, string(keywords), int64(sig.SocialMetrics.Mentions),
		sig.SocialMetrics.Velocity, sig.TradingSignals.Insider, sig.TradingSignals.Congress,
		sig.TradingSignals.Social, sig.TradingSignals.News, sig.TradingSignals.Combined,
		sig.Confidence, string(sig.RiskLevel))
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal append error",
				applogger.String("symbol", sig.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append signal: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse signal append ok",
			applogger.String("symbol", sig.Symbol),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Recent returns the last n fused signals for a symbol, oldest first.
func (s *CHSignalHistory) Recent(ctx context.Context, symbol string, limit int) ([]*models.AggregatedSignal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, sources, sentiment_score, sentiment_label, keywords,
			   mentions, velocity, sig_insider, sig_congress, sig_social, sig_news,
			   sig_combined, confidence, risk_level
		FROM signalfuse.signal_history
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse signal recent query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("recent signals: %w", err)
	}
	defer rows.Close()

	tmp := make([]*models.AggregatedSignal, 0, limit)
	for rows.Next() {
		var out models.AggregatedSignal
		var sources, keywords string
		var mentions int64
		if err := rows.Scan(&out.Symbol, &out.Timestamp, &sources,
			&out.OverallSentiment.Score, &out.OverallSentiment.Label, &keywords,
			&mentions, &out.SocialMetrics.Velocity,
			&out.TradingSignals.Insider, &out.TradingSignals.Congress,
			&out.TradingSignals.Social, &out.TradingSignals.News,
			&out.TradingSignals.Combined, &out.Confidence, (*string)(&out.RiskLevel)); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out.SocialMetrics.Mentions = int(mentions)
		_ = json.Unmarshal([]byte(sources), &out.Sources)
		_ = json.Unmarshal([]byte(keywords), &out.OverallSentiment.Keywords)
		tmp = append(tmp, &out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

// Health pings ClickHouse.
func (s *CHSignalHistory) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close closes the connection pool.
func (s *CHSignalHistory) Close() error {
	return s.client.Close()
}
