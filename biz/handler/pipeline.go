package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/biz/model/api"
	"github.com/yunolab/connect_bridge/biz/service"
)

// PipelineHandler exposes pipeline lifecycle, orchestration and cleanup
// endpoints.
type PipelineHandler struct {
	svc *service.Service
}

func NewPipelineHandler(svc *service.Service) *PipelineHandler {
	return &PipelineHandler{svc: svc}
}

// CreatePipeline .
// @router /api/v1/pipelines [POST]
func (h *PipelineHandler) CreatePipeline(ctx context.Context, c *app.RequestContext) {
	req := &api.CreatePipelineRequest{}
	if err := bindJSON(c, req); err != nil {
		respondBadRequest(c, err)
		return
	}
	pipe, err := h.svc.CreatePipeline(enrichContext(ctx, c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, pipe)
}

// ListPipelines .
// @router /api/v1/pipelines [GET]
func (h *PipelineHandler) ListPipelines(ctx context.Context, c *app.RequestContext) {
	pipelines, err := h.svc.ListPipelines(ctx, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, pipelines)
}

// GetPipeline .
// @router /api/v1/pipelines/:id [GET]
func (h *PipelineHandler) GetPipeline(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	pipe, connectors, err := h.svc.GetPipeline(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, map[string]interface{}{
		"pipeline":   pipe,
		"connectors": connectors,
	})
}

// DeletePipeline soft-deletes; the retention sweep purges later.
// @router /api/v1/pipelines/:id [DELETE]
func (h *PipelineHandler) DeletePipeline(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.SoftDeletePipeline(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, nil)
}

// RestorePipeline .
// @router /api/v1/pipelines/:id/restore [POST]
func (h *PipelineHandler) RestorePipeline(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.RestorePipeline(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, nil)
}

// DeployPipeline reconciles both connectors onto the engine. Sub-step
// failures come back in the payload with success=false, not as an HTTP
// error, so operators see the partial state.
// @router /api/v1/pipelines/:id/deploy [POST]
func (h *PipelineHandler) DeployPipeline(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := h.svc.DeployPipeline(enrichContext(ctx, c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, result.Succeeded(), result)
}

// StartPipeline .
// @router /api/v1/pipelines/:id/start [POST]
func (h *PipelineHandler) StartPipeline(ctx context.Context, c *app.RequestContext) {
	h.control(ctx, c, h.svc.StartPipeline)
}

// PausePipeline .
// @router /api/v1/pipelines/:id/pause [POST]
func (h *PipelineHandler) PausePipeline(ctx context.Context, c *app.RequestContext) {
	h.control(ctx, c, h.svc.PausePipeline)
}

// DeleteConnectors removes both connectors from the engine, keeping the
// pipeline metadata.
// @router /api/v1/pipelines/:id/connectors [DELETE]
func (h *PipelineHandler) DeleteConnectors(ctx context.Context, c *app.RequestContext) {
	h.control(ctx, c, h.svc.DeleteConnectors)
}

func (h *PipelineHandler) control(ctx context.Context, c *app.RequestContext, op func(context.Context, uint) (*api.ControlResult, error)) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	result, err := op(enrichContext(ctx, c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOutcome(c, len(result.Errors) == 0, result)
}

// GetStatus .
// @router /api/v1/pipelines/:id/status [GET]
func (h *PipelineHandler) GetStatus(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	status, err := h.svc.GetStatus(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, status)
}

// RecordProgress accepts one metrics sample from the data plane.
// @router /api/v1/pipelines/:id/progress [POST]
func (h *PipelineHandler) RecordProgress(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	report := &api.ProgressReport{}
	if err := bindJSON(c, report); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.RecordProgress(ctx, id, report); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, nil)
}

// StageConnectorConfig stages edited connector config without touching the
// engine; deploy picks it up.
// @router /api/v1/pipelines/:id/connectors/:type/config [PUT]
func (h *PipelineHandler) StageConnectorConfig(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	connType := c.Param("type")
	if connType != model.ConnectorTypeSource && connType != model.ConnectorTypeSink {
		respondBadRequest(c, errors.New("connector type must be source or sink"))
		return
	}
	config := map[string]string{}
	if err := bindJSON(c, &config); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.StagePendingConfig(ctx, id, connType, config); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, nil)
}

// Cleanup runs the retention sweep over soft-deleted pipelines.
// @router /api/v1/pipeline-cleanup [POST]
func (h *PipelineHandler) Cleanup(ctx context.Context, c *app.RequestContext) {
	req := &api.CleanupRequest{}
	if body := c.Request.Body(); len(body) > 0 {
		if err := bindJSON(c, req); err != nil {
			respondBadRequest(c, err)
			return
		}
	}
	result, err := h.svc.Sweep(ctx, req.DryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, result)
}
