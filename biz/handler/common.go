package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	pkgcommon "github.com/yunolab/connect_bridge/pkg/common"
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
)

// enrichContext propagates request headers into the service context.
// X-User-Id becomes the created_by attribution on registry writes.
func enrichContext(ctx context.Context, c *app.RequestContext) context.Context {
	if userHeader := c.GetHeader("X-User-Id"); len(userHeader) > 0 {
		if id, err := strconv.Atoi(string(userHeader)); err == nil {
			ctx = pkgcommon.ContextWithUserID(ctx, id)
		}
	}
	return ctx
}

func bindJSON(c *app.RequestContext, v interface{}) error {
	body := c.Request.Body()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}

func paramUint(c *app.RequestContext, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return uint(id), nil
}

func paramInt(c *app.RequestContext, name string) (int, error) {
	raw := c.Param(name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func respondData(c *app.RequestContext, data interface{}) {
	c.JSON(consts.StatusOK, pkgcommon.CommonResponse{Success: true, Data: data})
}

// respondOutcome reports a multi-step operation whose per-step failures are
// carried in the payload rather than an HTTP status. The success flag
// reflects whether every sub-step completed.
func respondOutcome(c *app.RequestContext, succeeded bool, data interface{}) {
	c.JSON(consts.StatusOK, pkgcommon.CommonResponse{Success: succeeded, Data: data})
}

func respondBadRequest(c *app.RequestContext, err error) {
	c.JSON(consts.StatusBadRequest, pkgcommon.CommonResponse{Success: false, Error: err.Error()})
}

// respondError maps the service error taxonomy onto HTTP status codes.
func respondError(c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	switch {
	case errors.Is(err, pkgcommon.ErrValidation):
		status = consts.StatusBadRequest
	case errors.Is(err, pkgcommon.ErrNotFound), errors.Is(err, kafkaconnect.ErrNotFound):
		status = consts.StatusNotFound
	case errors.Is(err, pkgcommon.ErrConflict):
		status = consts.StatusConflict
	case errors.Is(err, kafkaconnect.ErrUnreachable), errors.Is(err, kafkaconnect.ErrRejected):
		status = consts.StatusBadGateway
	}
	c.JSON(status, pkgcommon.CommonResponse{Success: false, Error: err.Error()})
}

// Ping is the liveness probe.
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}
