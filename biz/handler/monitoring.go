package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/biz/service"
)

// MonitoringHandler exposes threshold settings, alert history and
// per-pipeline alert rule overrides.
type MonitoringHandler struct {
	svc *service.Service
}

func NewMonitoringHandler(svc *service.Service) *MonitoringHandler {
	return &MonitoringHandler{svc: svc}
}

// GetSettings .
// @router /api/v1/monitoring/settings [GET]
func (h *MonitoringHandler) GetSettings(ctx context.Context, c *app.RequestContext) {
	settings, err := h.svc.GetMonitoringSettings(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, settings)
}

// UpdateSettings .
// @router /api/v1/monitoring/settings [PUT]
func (h *MonitoringHandler) UpdateSettings(ctx context.Context, c *app.RequestContext) {
	settings := &model.MonitoringSettings{}
	if err := bindJSON(c, settings); err != nil {
		respondBadRequest(c, err)
		return
	}
	updated, err := h.svc.UpdateMonitoringSettings(ctx, settings)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, updated)
}

// ListAlerts .
// @router /api/v1/pipelines/:id/alerts [GET]
func (h *MonitoringHandler) ListAlerts(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	unresolvedOnly := c.Query("unresolved") == "true"
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	alerts, err := h.svc.ListAlerts(ctx, id, unresolvedOnly, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, alerts)
}

// ListAlertRules .
// @router /api/v1/pipelines/:id/alert-rules [GET]
func (h *MonitoringHandler) ListAlertRules(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	rules, err := h.svc.ListAlertRules(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, rules)
}

// UpsertAlertRule .
// @router /api/v1/pipelines/:id/alert-rules [PUT]
func (h *MonitoringHandler) UpsertAlertRule(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	rule := &model.AlertRuleOverride{}
	if err := bindJSON(c, rule); err != nil {
		respondBadRequest(c, err)
		return
	}
	rule.PipelineID = id
	if err := h.svc.UpsertAlertRule(ctx, rule); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, rule)
}
