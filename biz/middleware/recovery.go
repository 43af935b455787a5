package middleware

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yunolab/connect_bridge/pkg/common"
)

// Recovery returns a middleware that turns a handler panic into a 500 with
// the standard response envelope, logging the stack trace.
func Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if err := recover(); err != nil {
				hlog.CtxErrorf(ctx, "panic recovered on %s %s: %v\n%s",
					string(c.Request.Method()), string(c.Request.URI().Path()),
					err, debug.Stack())

				c.JSON(consts.StatusInternalServerError, common.CommonResponse{
					Success: false,
					Error:   fmt.Sprintf("internal error: %v", err),
				})
				c.Abort()
			}
		}()

		c.Next(ctx)
	}
}
