package api

import (
	"database/sql"
	"errors"
	"time"

	"SignalFuse/internal/domain/models"
	domrepo "SignalFuse/internal/domain/repository"
	"SignalFuse/internal/usecase"
	xhttp "SignalFuse/pkg/http"
	xlogger "SignalFuse/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AlertsHandler exposes the alerting and signal query API over Echo.
type AlertsHandler struct {
	logger   *xlogger.Logger
	registry *usecase.Registry
	engine   *usecase.RuleEngine
	store    domrepo.AlertStore
	history  domrepo.SignalHistory // nil when ClickHouse is disabled
}

func NewAlertsHandler(logger *xlogger.Logger, registry *usecase.Registry, engine *usecase.RuleEngine, store domrepo.AlertStore, history domrepo.SignalHistory) *AlertsHandler {
	return &AlertsHandler{
		logger:   logger,
		registry: registry,
		engine:   engine,
		store:    store,
		history:  history,
	}
}

func (h *AlertsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/alerts", h.History)
	g.GET("/alerts/effectiveness", h.Effectiveness)
	g.GET("/alerts/:id", h.GetAlert)
	g.GET("/rules", h.ListRules)
	g.POST("/rules", h.CreateRule)
	g.PATCH("/rules/:id", h.UpdateRule)
	g.GET("/signals/:symbol", h.LatestSignal)
	g.GET("/signals/:symbol/history", h.SignalHistory)
	g.POST("/collect", h.Collect)
	g.GET("/collectors", h.Collectors)
	e.GET("/healthz", h.Healthz)
}

// History returns persisted alerts matching the query filters.
func (h *AlertsHandler) History(c echo.Context) error {
	req := &models.AlertHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	filter := domrepo.AlertFilter{
		Type:     models.AlertType(req.Type),
		Severity: models.Severity(req.Severity),
		Symbol:   req.Symbol,
		Limit:    req.Limit,
	}
	if req.StartTime != "" {
		t, ok := xhttp.ParseTime(req.StartTime)
		if !ok {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestError("start_time must be RFC3339 or unix seconds"))
		}
		filter.Start = t
	}
	if req.EndTime != "" {
		t, ok := xhttp.ParseTime(req.EndTime)
		if !ok {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestError("end_time must be RFC3339 or unix seconds"))
		}
		filter.End = t
	}
	filter.Start, filter.End = xhttp.ClampRange(filter.Start, filter.End, 90*24*time.Hour)

	alerts, err := h.store.QueryAlerts(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("alert history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, alerts, int64(len(alerts)))
}

// GetAlert returns one alert by id.
func (h *AlertsHandler) GetAlert(c echo.Context) error {
	id := c.Param("id")
	alert, err := h.store.GetAlert(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("alert %s not found", id))
		}
		h.logger.Error("alert get error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, alert)
}

// Effectiveness returns per-type trigger accuracy aggregates.
func (h *AlertsHandler) Effectiveness(c echo.Context) error {
	eff, err := h.store.Effectiveness(c.Request().Context())
	if err != nil {
		h.logger.Error("effectiveness query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, eff)
}

// ListRules returns all configured rules.
func (h *AlertsHandler) ListRules(c echo.Context) error {
	rules := h.engine.Rules()
	return xhttp.ListResponse(c, rules, int64(len(rules)))
}

// CreateRule adds a new rule.
func (h *AlertsHandler) CreateRule(c echo.Context) error {
	req := &models.CreateRuleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	now := time.Now()
	rule := &models.AlertRule{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Enabled:     enabled,
		Threshold: models.AlertThreshold{
			AlertType:             models.AlertType(req.AlertType),
			Severity:              models.Severity(req.Severity),
			Conditions:            req.Conditions,
			CooldownPeriodMinutes: req.CooldownPeriodMinutes,
			NotificationChannels:  req.NotificationChannels,
			AutoTriggerAnalysis:   req.AutoTriggerAnalysis,
			AnalysisModules:       req.AnalysisModules,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.engine.UpsertRule(c.Request().Context(), rule); err != nil {
		h.logger.Error("rule create error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, rule)
}

// UpdateRule patches an existing rule; nil fields are left untouched.
func (h *AlertsHandler) UpdateRule(c echo.Context) error {
	id := c.Param("id")
	rule, ok := h.engine.GetRule(id)
	if !ok {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("rule %s not found", id))
	}

	req := &models.UpdateRuleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	updated := *rule
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Enabled != nil {
		updated.Enabled = *req.Enabled
	}
	if req.Severity != nil {
		updated.Threshold.Severity = models.Severity(*req.Severity)
	}
	if req.Conditions != nil {
		updated.Threshold.Conditions = req.Conditions
	}
	if req.CooldownPeriodMinutes != nil {
		updated.Threshold.CooldownPeriodMinutes = *req.CooldownPeriodMinutes
	}
	if req.NotificationChannels != nil {
		updated.Threshold.NotificationChannels = req.NotificationChannels
	}
	if req.AutoTriggerAnalysis != nil {
		updated.Threshold.AutoTriggerAnalysis = *req.AutoTriggerAnalysis
	}
	if req.AnalysisModules != nil {
		updated.Threshold.AnalysisModules = req.AnalysisModules
	}

	if err := h.engine.UpsertRule(c.Request().Context(), &updated); err != nil {
		h.logger.Error("rule update error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &updated)
}

// LatestSignal returns the most recently fused signal for a symbol.
func (h *AlertsHandler) LatestSignal(c echo.Context) error {
	symbol := c.Param("symbol")
	sig, ok := h.registry.Latest(symbol)
	if !ok {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundErrorf("no signal for %s yet", symbol))
	}
	return xhttp.SuccessResponse(c, sig)
}

// SignalHistory returns recent fused signals from the audit trail.
func (h *AlertsHandler) SignalHistory(c echo.Context) error {
	if h.history == nil {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("signal history not enabled"))
	}
	symbol := c.Param("symbol")
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 50)
	if limit > 500 {
		limit = 500
	}
	sigs, err := h.history.Recent(c.Request().Context(), symbol, limit)
	if err != nil {
		h.logger.Error("signal history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, sigs, int64(len(sigs)))
}

// Collect runs one on-demand collection cycle for a symbol.
func (h *AlertsHandler) Collect(c echo.Context) error {
	req := &models.CollectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	sig, err := h.registry.CollectAll(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("on-demand collection error",
			xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sig)
}

// Collectors returns per-collector health metrics.
func (h *AlertsHandler) Collectors(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.registry.HealthSnapshot())
}

// Healthz reports storage and collector health.
func (h *AlertsHandler) Healthz(c echo.Context) error {
	ctx := c.Request().Context()
	out := map[string]interface{}{
		"status":     "ok",
		"collectors": h.registry.HealthSnapshot(),
	}
	if err := h.store.Health(ctx); err != nil {
		out["status"] = "degraded"
		out["alert_store"] = err.Error()
	}
	if h.history != nil {
		if err := h.history.Health(ctx); err != nil {
			out["status"] = "degraded"
			out["signal_history"] = err.Error()
		}
	}
	return xhttp.SuccessResponse(c, out)
}
