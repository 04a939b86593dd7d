package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/internal/middleware"
)

// requestContext returns the request context, or Background when the gin
// context carries no request (unit tests calling handlers directly).
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// sessionSlug returns the authenticated slug, or "" for anonymous requests.
func sessionSlug(c *gin.Context) string {
	if session, ok := middleware.SessionFromContext(c); ok {
		return session.Slug
	}
	return ""
}
