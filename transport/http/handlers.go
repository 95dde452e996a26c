package http

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/layer-3/jwtgate/core"
	"github.com/layer-3/jwtgate/service"
)

// LoginRequest is the login body when captcha mode is off
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CaptchaLoginRequest is the login body when captcha mode is on
type CaptchaLoginRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
	Captcha   string `json:"captcha" binding:"required"`
}

// ChallengeResponse is returned by the captcha endpoint
type ChallengeResponse struct {
	SessionID string `json:"sessionId"`
	Puzzle    string `json:"puzzle"`
	TTL       int64  `json:"ttl"` // milliseconds
}

// ClaimsResponse is the decoded content of a verified token
type ClaimsResponse struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Scope     any    `json:"scope,omitempty"`
	Issuer    string `json:"iss"`
}

// SessionResponse describes a pending challenge on the debug endpoint
type SessionResponse struct {
	SessionID string    `json:"sessionId"`
	Captcha   string    `json:"captcha"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	issuer      string
	production  bool
	logger      zerolog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, opts Options) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		issuer:      opts.Issuer,
		production:  opts.Production,
		logger:      opts.Logger,
	}
}

// Index identifies the gateway
func (h *AuthHandlers) Index(c *gin.Context) {
	c.String(http.StatusOK, "JWT server: %s", h.issuer)
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req core.LoginRequest

	if h.authService.ChallengesEnabled() {
		var body CaptchaLoginRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, err)
			return
		}
		req = core.LoginRequest{
			Username:  body.Username,
			Password:  body.Password,
			SessionID: body.SessionID,
			Answer:    body.Captcha,
		}
	} else {
		var body LoginRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			h.badRequest(c, err)
			return
		}
		req = core.LoginRequest{
			Username: body.Username,
			Password: body.Password,
		}
	}

	token, err := h.authService.Authenticate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidLogin) {
			abortWithError(c, http.StatusUnauthorized, core.ErrInvalidLogin.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	c.String(http.StatusOK, "%s", token)
}

// Challenge creates a new captcha session
func (h *AuthHandlers) Challenge(c *gin.Context) {
	ticket, err := h.authService.CreateChallenge(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create challenge")
		abortWithError(c, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	c.JSON(http.StatusOK, ChallengeResponse{
		SessionID: ticket.SessionID,
		Puzzle:    ticket.Puzzle,
		TTL:       ticket.TTL.Milliseconds(),
	})
}

// ChallengePage creates a captcha session and renders it as HTML
func (h *AuthHandlers) ChallengePage(c *gin.Context) {
	ticket, err := h.authService.CreateChallenge(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create challenge")
		abortWithError(c, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	page := fmt.Sprintf(`<html><body>
  <h4>sessionId: %s</h4>
  <h4>ttl (ms): %d</h4>
  <img src="%s" alt="captcha">
</body></html>
`, html.EscapeString(ticket.SessionID), ticket.TTL.Milliseconds(), html.EscapeString(ticket.Puzzle))

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Sessions lists pending captcha sessions. Debug only.
func (h *AuthHandlers) Sessions(c *gin.Context) {
	pending, err := h.authService.Challenges().Pending(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list challenges")
		abortWithError(c, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	out := make([]SessionResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, SessionResponse{
			SessionID: p.SessionID,
			Captcha:   p.Answer,
			ExpiresAt: p.ExpiresAt,
		})
	}

	c.JSON(http.StatusOK, out)
}

// VerifyParam verifies the token given in the path
func (h *AuthHandlers) VerifyParam(c *gin.Context) {
	token := c.Param("jwt")
	if token == "" {
		h.badRequest(c, errors.New("jwt is required"))
		return
	}

	identity, err := h.authService.Verify(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, http.StatusForbidden, core.ErrInvalidToken.Error())
		return
	}

	c.JSON(http.StatusOK, claimsResponse(identity))
}

// VerifyBearer returns the claims of the token already checked by RequireToken
func (h *AuthHandlers) VerifyBearer(c *gin.Context) {
	identity, exists := c.Get(identityKey)
	if !exists {
		abortWithError(c, http.StatusForbidden, core.ErrInvalidToken.Error())
		return
	}

	c.JSON(http.StatusOK, claimsResponse(identity.(*core.Identity)))
}

func (h *AuthHandlers) badRequest(c *gin.Context, err error) {
	if h.production {
		h.logger.Error().Err(err).Msg("invalid request")
		abortWithError(c, http.StatusBadRequest, "invalid.request")
		return
	}
	h.logger.Warn().Err(err).Msg("invalid request")
	abortWithError(c, http.StatusBadRequest, err.Error())
}

func claimsResponse(identity *core.Identity) ClaimsResponse {
	return ClaimsResponse{
		Subject:   identity.Subject,
		IssuedAt:  identity.IssuedAt.Unix(),
		ExpiresAt: identity.ExpiresAt.Unix(),
		Scope:     identity.Scope,
		Issuer:    identity.Issuer,
	}
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}
