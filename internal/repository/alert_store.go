package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/pkg/logger"

	_ "modernc.org/sqlite"
)

// SQLiteAlertStore persists rules and alerts in a local SQLite database.
// Structured fields are stored as JSON blobs; the store never inspects them.
type SQLiteAlertStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSQLiteAlertStore opens (or creates) the database at path.
func NewSQLiteAlertStore(path string, lgr *logger.Logger) (*SQLiteAlertStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc sqlite is single-writer; serialize access at the pool level
	db.SetMaxOpenConns(1)
	return &SQLiteAlertStore{db: db, logger: lgr}, nil
}

const alertSchema = `
CREATE TABLE IF NOT EXISTS alert_rules (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT,
	enabled         INTEGER NOT NULL DEFAULT 1,
	alert_type      TEXT NOT NULL,
	threshold       TEXT NOT NULL,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	triggered_count INTEGER NOT NULL DEFAULT 0,
	effectiveness   TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_rules_type ON alert_rules(alert_type);

CREATE TABLE IF NOT EXISTS alerts (
	id                   TEXT PRIMARY KEY,
	type                 TEXT NOT NULL,
	severity             TEXT NOT NULL,
	symbol               TEXT NOT NULL,
	title                TEXT,
	description          TEXT,
	status               TEXT NOT NULL,
	trigger_data         TEXT,
	timestamp            DATETIME NOT NULL,
	analysis_triggered   INTEGER NOT NULL DEFAULT 0,
	analysis_session_id  TEXT,
	analysis_completed   INTEGER NOT NULL DEFAULT 0,
	analysis_results     TEXT,
	notifications_sent   TEXT,
	notifications_failed TEXT,
	market_impact        TEXT,
	user_actions         TEXT,
	metadata             TEXT
);

CREATE INDEX IF NOT EXISTS idx_alerts_type_symbol ON alerts(type, symbol, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
`

// Init creates the schema.
func (s *SQLiteAlertStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, alertSchema); err != nil {
		return fmt.Errorf("migrate alert store: %w", err)
	}
	s.logger.Info("alert store ready")
	return nil
}

// SaveRule upserts a rule by id.
func (s *SQLiteAlertStore) SaveRule(ctx context.Context, r *models.AlertRule) error {
	threshold, err := json.Marshal(r.Threshold)
	if err != nil {
		return fmt.Errorf("marshal threshold: %w", err)
	}
	eff, err := json.Marshal(r.Effectiveness)
	if err != nil {
		return fmt.Errorf("marshal effectiveness: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alert_rules (id, name, description, enabled, alert_type, threshold, created_at, updated_at, triggered_count, effectiveness)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			enabled = excluded.enabled,
			alert_type = excluded.alert_type,
			threshold = excluded.threshold,
			updated_at = excluded.updated_at,
			triggered_count = excluded.triggered_count,
			effectiveness = excluded.effectiveness
	`, r.ID, r.Name, r.Description, boolInt(r.Enabled), string(r.Threshold.AlertType),
		string(threshold), r.CreatedAt, r.UpdatedAt, r.TriggeredCount, string(eff))
	if err != nil {
		return fmt.Errorf("save rule %s: %w", r.ID, err)
	}
	return nil
}

// GetRule loads one rule; sql.ErrNoRows surfaces unwrapped for callers to test.
func (s *SQLiteAlertStore) GetRule(ctx context.Context, id string) (*models.AlertRule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, enabled, threshold, created_at, updated_at, triggered_count, effectiveness
		FROM alert_rules WHERE id = ?
	`, id)
	return scanRule(row)
}

// ListRules returns every rule, newest first.
func (s *SQLiteAlertStore) ListRules(ctx context.Context) ([]*models.AlertRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, enabled, threshold, created_at, updated_at, triggered_count, effectiveness
		FROM alert_rules ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []*models.AlertRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			s.logger.Warn("skip unreadable rule row", logger.Error(err))
			continue
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.AlertRule, error) {
	var (
		r         models.AlertRule
		enabled   int
		threshold string
		eff       string
		desc      sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &desc, &enabled, &threshold,
		&r.CreatedAt, &r.UpdatedAt, &r.TriggeredCount, &eff)
	if err != nil {
		return nil, err
	}
	r.Description = desc.String
	r.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(threshold), &r.Threshold); err != nil {
		return nil, fmt.Errorf("decode threshold for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(eff), &r.Effectiveness); err != nil {
		return nil, fmt.Errorf("decode effectiveness for %s: %w", r.ID, err)
	}
	return &r, nil
}

// SaveAlert upserts an alert by id.
func (s *SQLiteAlertStore) SaveAlert(ctx context.Context, a *models.Alert) error {
	triggerData, _ := json.Marshal(a.TriggerData)
	results, _ := json.Marshal(a.AnalysisResults)
	sent, _ := json.Marshal(a.NotificationsSent)
	failed, _ := json.Marshal(a.NotificationsFailed)
	impact, _ := json.Marshal(a.MarketImpact)
	actions, _ := json.Marshal(a.UserActions)
	meta, _ := json.Marshal(a.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, type, severity, symbol, title, description, status, trigger_data, timestamp,
			analysis_triggered, analysis_session_id, analysis_completed, analysis_results,
			notifications_sent, notifications_failed, market_impact, user_actions, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			analysis_triggered = excluded.analysis_triggered,
			analysis_session_id = excluded.analysis_session_id,
			analysis_completed = excluded.analysis_completed,
			analysis_results = excluded.analysis_results,
			notifications_sent = excluded.notifications_sent,
			notifications_failed = excluded.notifications_failed,
			market_impact = excluded.market_impact,
			user_actions = excluded.user_actions,
			metadata = excluded.metadata
	`, a.ID, string(a.Type), string(a.Severity), a.Symbol, a.Title, a.Description, string(a.Status),
		string(triggerData), a.Timestamp, boolInt(a.AnalysisTriggered), a.AnalysisSessionID,
		boolInt(a.AnalysisCompleted), string(results), string(sent), string(failed),
		string(impact), string(actions), string(meta))
	if err != nil {
		return fmt.Errorf("save alert %s: %w", a.ID, err)
	}
	return nil
}

// GetAlert loads one alert by id.
func (s *SQLiteAlertStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, alertSelect+" WHERE id = ?", id)
	return scanAlert(row)
}

const alertSelect = `
	SELECT id, type, severity, symbol, title, description, status, trigger_data, timestamp,
		analysis_triggered, analysis_session_id, analysis_completed, analysis_results,
		notifications_sent, notifications_failed, market_impact, user_actions, metadata
	FROM alerts`

// QueryAlerts returns alerts matching the filter, newest first.
func (s *SQLiteAlertStore) QueryAlerts(ctx context.Context, f domrepo.AlertFilter) ([]*models.Alert, error) {
	query := alertSelect + " WHERE 1=1"
	var args []interface{}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(f.Severity))
	}
	if f.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, f.Symbol)
	}
	if !f.Start.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, f.Start)
	}
	if !f.End.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, f.End)
	}
	query += " ORDER BY timestamp DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			s.logger.Warn("skip unreadable alert row", logger.Error(err))
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a                                  models.Alert
		typ, severity, status              string
		triggered, completed               int
		title, desc, sessionID             sql.NullString
		triggerData, results, sent, failed sql.NullString
		impact, actions, meta              sql.NullString
	)
	err := row.Scan(&a.ID, &typ, &severity, &a.Symbol, &title, &desc, &status,
		&triggerData, &a.Timestamp, &triggered, &sessionID, &completed, &results,
		&sent, &failed, &impact, &actions, &meta)
	if err != nil {
		return nil, err
	}
	a.Type = models.AlertType(typ)
	a.Severity = models.Severity(severity)
	a.Status = models.AlertStatus(status)
	a.Title = title.String
	a.Description = desc.String
	a.AnalysisTriggered = triggered != 0
	a.AnalysisSessionID = sessionID.String
	a.AnalysisCompleted = completed != 0
	decodeJSON(triggerData, &a.TriggerData)
	decodeJSON(results, &a.AnalysisResults)
	decodeJSON(sent, &a.NotificationsSent)
	decodeJSON(failed, &a.NotificationsFailed)
	decodeJSON(impact, &a.MarketImpact)
	decodeJSON(actions, &a.UserActions)
	decodeJSON(meta, &a.Metadata)
	return &a, nil
}

func decodeJSON(src sql.NullString, dst interface{}) {
	if !src.Valid || src.String == "" || src.String == "null" {
		return
	}
	_ = json.Unmarshal([]byte(src.String), dst)
}

// LastTriggered returns when the most recent alert for (type, symbol) fired.
func (s *SQLiteAlertStore) LastTriggered(ctx context.Context, t models.AlertType, symbol string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp FROM alerts WHERE type = ? AND symbol = ?
		ORDER BY timestamp DESC LIMIT 1
	`, string(t), symbol).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last triggered: %w", err)
	}
	return ts, true, nil
}

// Effectiveness aggregates rule effectiveness per alert type.
func (s *SQLiteAlertStore) Effectiveness(ctx context.Context) (map[models.AlertType]models.TypeEffectiveness, error) {
	rules, err := s.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[models.AlertType]models.TypeEffectiveness)
	impactSums := make(map[models.AlertType]float64)
	impactCounts := make(map[models.AlertType]int)
	for _, r := range rules {
		t := r.Threshold.AlertType
		agg := out[t]
		agg.TotalTriggers += r.Effectiveness.TotalTriggers
		agg.TruePositives += r.Effectiveness.TruePositives
		agg.FalsePositives += r.Effectiveness.FalsePositives
		if r.Effectiveness.AvgMarketImpact != 0 {
			impactSums[t] += r.Effectiveness.AvgMarketImpact
			impactCounts[t]++
		}
		out[t] = agg
	}
	for t, agg := range out {
		if judged := agg.TruePositives + agg.FalsePositives; judged > 0 {
			agg.Accuracy = float64(agg.TruePositives) / float64(judged)
		}
		if impactCounts[t] > 0 {
			agg.AvgMarketImpact = impactSums[t] / float64(impactCounts[t])
		}
		out[t] = agg
	}
	return out, nil
}

// PurgeOlderThan deletes alerts created before horizon.
func (s *SQLiteAlertStore) PurgeOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM alerts WHERE timestamp < ?", horizon)
	if err != nil {
		return 0, fmt.Errorf("purge alerts: %w", err)
	}
	return res.RowsAffected()
}

// Health pings the database.
func (s *SQLiteAlertStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteAlertStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
