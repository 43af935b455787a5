package middleware

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/yunolab/connect_bridge/pkg/common"
)

// Auth returns a middleware that extracts user information from request
// headers and adds it to the context. This middleware does NOT enforce
// authentication, it only enriches the context with user info if present.
func Auth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if userHeader := c.GetHeader("X-User-Id"); len(userHeader) > 0 {
			if id, err := strconv.Atoi(string(userHeader)); err == nil && id > 0 {
				ctx = common.ContextWithUserID(ctx, id)
			}
		}
		c.Next(ctx)
	}
}

// RequireAuth returns a middleware that enforces authentication.
// Requests without a valid X-User-Id header will be rejected with 401.
func RequireAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		userHeader := c.GetHeader("X-User-Id")
		if len(userHeader) == 0 {
			c.JSON(consts.StatusUnauthorized, common.CommonResponse{
				Success: false,
				Error:   "missing X-User-Id header",
			})
			c.Abort()
			return
		}
		if id, err := strconv.Atoi(string(userHeader)); err != nil || id <= 0 {
			c.JSON(consts.StatusUnauthorized, common.CommonResponse{
				Success: false,
				Error:   "invalid X-User-Id header",
			})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}
