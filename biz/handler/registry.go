package handler

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/yunolab/connect_bridge/biz/model/api"
	"github.com/yunolab/connect_bridge/biz/service"
)

// RegistryHandler exposes the versioned connector config registry.
type RegistryHandler struct {
	svc *service.Service
}

func NewRegistryHandler(svc *service.Service) *RegistryHandler {
	return &RegistryHandler{svc: svc}
}

// CreateVersion .
// @router /api/v1/registry/connectors/:name/versions [POST]
func (h *RegistryHandler) CreateVersion(ctx context.Context, c *app.RequestContext) {
	req := &api.CreateVersionRequest{}
	if err := bindJSON(c, req); err != nil {
		respondBadRequest(c, err)
		return
	}
	info, err := h.svc.CreateVersion(enrichContext(ctx, c), c.Param("name"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, info)
}

// ListVersions .
// @router /api/v1/registry/connectors/:name/versions [GET]
func (h *RegistryHandler) ListVersions(ctx context.Context, c *app.RequestContext) {
	versions, err := h.svc.ListVersions(ctx, c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, versions)
}

// ActivateVersion .
// @router /api/v1/registry/connectors/:name/versions/:v/activate [POST]
func (h *RegistryHandler) ActivateVersion(ctx context.Context, c *app.RequestContext) {
	version, err := paramInt(c, "v")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.svc.ActivateVersion(ctx, c.Param("name"), version); err != nil {
		respondError(c, err)
		return
	}
	respondData(c, nil)
}

// Diff .
// @router /api/v1/registry/connectors/:name/diff [GET]
func (h *RegistryHandler) Diff(ctx context.Context, c *app.RequestContext) {
	from, err := queryInt(c, "from")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	to, err := queryInt(c, "to")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	diff, err := h.svc.Diff(ctx, c.Param("name"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, diff)
}

// CreateDeployment records a pending deployment intent for a version.
// @router /api/v1/registry/deployments [POST]
func (h *RegistryHandler) CreateDeployment(ctx context.Context, c *app.RequestContext) {
	req := &api.CreateDeploymentRequest{}
	if err := bindJSON(c, req); err != nil {
		respondBadRequest(c, err)
		return
	}
	info, err := h.svc.CreateDeployment(enrichContext(ctx, c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, info)
}

// ApplyDeployment pushes the recorded version to its engine.
// @router /api/v1/registry/deployments/:id/apply [POST]
func (h *RegistryHandler) ApplyDeployment(ctx context.Context, c *app.RequestContext) {
	id, err := paramUint(c, "id")
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	info, err := h.svc.ApplyDeployment(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, info)
}

func queryInt(c *app.RequestContext, name string) (int, error) {
	raw := c.Query(name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
