package middleware

import (
	"net/http"
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/kawilabs/go-kawi/env"
	"github.com/kawilabs/go-kawi/service/logger"
	sentryutil "github.com/kawilabs/go-kawi/service/sentry"
	"github.com/kawilabs/go-kawi/util"
)

// HandleCORS sets the CORS headers for origins listed in ALLOWED_ORIGINS and
// answers preflight requests
func HandleCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.Request.Header.Get("Origin")
		if IsOriginAllowed(requestOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", requestOrigin)
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IsOriginAllowed reports whether the origin appears in ALLOWED_ORIGINS
func IsOriginAllowed(requestOrigin string) bool {
	allowedOrigins := strings.Split(env.GetString("ALLOWED_ORIGINS"), ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}
	return util.Contains(allowedOrigins, requestOrigin)
}

// ErrLogger logs and reports any errors the handler chain attached to the context
func ErrLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		for _, ginErr := range c.Errors {
			logger.For(c).Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, ginErr.Error())
			sentryutil.ReportError(c, ginErr.Err)
		}
	}
}

// Sentry binds a request-scoped sentry hub to the request
func Sentry() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{Repanic: true})
}

// Tracing tags the request's sentry hub with the matched route
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("route", c.FullPath())
		}
		c.Next()
	}
}
