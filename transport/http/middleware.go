package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/service"
)

const (
	identityKey = "identity"
	reroutedKey = "rerouted"
)

// RequireToken creates middleware that validates a bearer token
func RequireToken(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		// Check if the Authorization header is present and in correct format
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			abortWithError(c, http.StatusForbidden, core.ErrInvalidToken.Error())
			return
		}

		identity, err := authService.Verify(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, http.StatusForbidden, core.ErrInvalidToken.Error())
			return
		}

		c.Set(identityKey, identity)

		c.Next()
	}
}

// RequestLogger writes one access log line per request. The path is
// logged without parameters so tokens in /verify/:jwt never reach the log.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if c.GetBool(reroutedKey) {
			return
		}

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := c.Writer.Status()
		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("route", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("remote", c.ClientIP()).
			Msg("request")
	}
}
