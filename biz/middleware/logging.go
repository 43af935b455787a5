package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
)

// Logging returns a middleware that writes one line per admin API request:
// client, caller, method, path, status and latency.
func Logging() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()

		c.Next(ctx)

		caller := "-"
		if userHeader := c.GetHeader("X-User-Id"); len(userHeader) > 0 {
			caller = string(userHeader)
		}

		hlog.CtxInfof(ctx, "[%s user=%s] %s %s %d %v",
			c.ClientIP(),
			caller,
			string(c.Request.Method()),
			string(c.Request.URI().Path()),
			c.Response.StatusCode(),
			time.Since(start),
		)
	}
}
