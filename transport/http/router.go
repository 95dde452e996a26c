package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/service"
)

// Options configures the router
type Options struct {
	Issuer     string
	Production bool
	Logger     zerolog.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, opts Options) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RemoveExtraSlash = true
	router.Use(gin.Recovery(), RequestLogger(opts.Logger))
	router.NoRoute(stripTrailingSlash(router))

	// Create handlers
	handlers := NewAuthHandlers(authService, opts)

	router.GET("/", handlers.Index)
	router.OPTIONS("/", handlers.Index)
	router.POST("/", handlers.Login)

	if authService.ChallengesEnabled() {
		router.GET("/captcha", handlers.Challenge)
		router.POST("/captcha", handlers.Challenge)
		router.GET("/captcha.html", handlers.ChallengePage)

		if !opts.Production {
			router.GET("/captcha-sessions", handlers.Sessions)
		}
	}

	router.GET("/verify/:jwt", handlers.VerifyParam)
	router.GET("/verify", RequireToken(authService), handlers.VerifyBearer)

	return router
}

// stripTrailingSlash serves "/verify/x/" as "/verify/x" in place of a redirect
func stripTrailingSlash(router *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		trimmed := strings.TrimRight(path, "/")
		if trimmed == path || trimmed == "" {
			return
		}

		c.Request.URL.Path = trimmed
		router.HandleContext(c)

		// The rerouted chain already logged the request.
		c.Set(reroutedKey, true)
		c.Abort()
	}
}
