package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/vibe-gaming/account-recovery/internal/service"
	"github.com/vibe-gaming/account-recovery/pkg/csrf"
	"github.com/vibe-gaming/account-recovery/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	startResetMessage  = "If an account exists for this email, a reset code has been sent"
	verifyResetMessage = "Code verified, use the reset token to set a new password"
)

func (h *Handler) initPasswordResetRoutes(api *gin.RouterGroup) {
	reset := api.Group("/password-reset")

	reset.GET("/csrf", h.issueCSRFToken)
	reset.POST("/start", h.csrfMiddleware, h.startReset)
	reset.POST("/verify", h.csrfMiddleware, h.verifyReset)
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
	ExpiresIn int64  `json:"expiresIn"`
}

// @Summary Issue CSRF token
// @Tags Password Reset
// @Description Sets the csrf cookie and returns the same value to echo in X-CSRF-Token
// @ModuleID issueCSRFToken
// @Produce  json
// @Success 200 {object} csrfTokenResponse
// @Failure 500 {object} ErrorStruct
// @Router /password-reset/csrf [get]
func (h *Handler) issueCSRFToken(c *gin.Context) {
	token, ttl, err := h.csrf.Issue()
	if err != nil {
		logger.Error("issue csrf token failed", zap.Error(err))
		internalErrorResponse(c)
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(csrf.CookieName, token, int(ttl.Seconds()), "/", "", h.config.CSRF.Secure, true)

	c.JSON(http.StatusOK, csrfTokenResponse{
		CSRFToken: token,
		ExpiresIn: int64(ttl.Seconds()),
	})
}

type startResetInput struct {
	Email string `json:"email" binding:"required,resetemail"`
}

type startResetResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expiresIn"`
}

// @Summary Start password reset
// @Tags Password Reset
// @Description Sends a one-time code when the account exists. The response is the same either way
// @ModuleID startReset
// @Accept  json
// @Produce  json
// @Param input body startResetInput true "email"
// @Success 200 {object} startResetResponse
// @Failure 400 {object} ValidationErrorStruct
// @Failure 403 {object} ErrorStruct
// @Failure 429 {object} RateLimitStruct
// @Failure 500 {object} ErrorStruct
// @Security CSRFToken
// @Router /password-reset/start [post]
func (h *Handler) startReset(c *gin.Context) {
	var input startResetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		validationErrorResponse(c, err)
		return
	}

	res, err := h.services.PasswordReset.Start(c.Request.Context(), input.Email)
	if err != nil {
		h.resetErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, startResetResponse{
		Success:   true,
		Message:   startResetMessage,
		Email:     res.Email,
		ExpiresIn: seconds(res.ExpiresIn),
	})
}

type verifyResetInput struct {
	Email string `json:"email" binding:"required,resetemail"`
	Code  string `json:"code" binding:"required,otpcode"`
}

type verifyResetResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Email      string `json:"email"`
	ResetToken string `json:"resetToken"`
	ExpiresIn  int64  `json:"expiresIn"`
}

// @Summary Verify reset code
// @Tags Password Reset
// @Description Exchanges a valid code for a short-lived reset token
// @ModuleID verifyReset
// @Accept  json
// @Produce  json
// @Param input body verifyResetInput true "email and code"
// @Success 200 {object} verifyResetResponse
// @Failure 400 {object} ErrorStruct
// @Failure 403 {object} ErrorStruct
// @Failure 429 {object} RateLimitStruct
// @Failure 500 {object} ErrorStruct
// @Security CSRFToken
// @Router /password-reset/verify [post]
func (h *Handler) verifyReset(c *gin.Context) {
	var input verifyResetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		validationErrorResponse(c, err)
		return
	}

	res, err := h.services.PasswordReset.Verify(c.Request.Context(), input.Email, input.Code)
	if err != nil {
		h.resetErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResetResponse{
		Success:    true,
		Message:    verifyResetMessage,
		Email:      res.Email,
		ResetToken: res.ResetToken,
		ExpiresIn:  seconds(res.ExpiresIn),
	})
}

func (h *Handler) resetErrorResponse(c *gin.Context, err error) {
	var rateLimitErr *service.RateLimitError

	switch {
	case errors.As(err, &rateLimitErr):
		rateLimitResponse(c, rateLimitErr.RetryAfter)
	case errors.Is(err, service.ErrNoPendingReset):
		errorResponse(c, ResetNotFoundCode)
	case errors.Is(err, service.ErrResetCodeExpired):
		errorResponse(c, ResetCodeExpiredCode)
	case errors.Is(err, service.ErrTooManyAttempts):
		errorResponse(c, ResetTooManyAttemptsCode)
	case errors.Is(err, service.ErrInvalidResetCode):
		errorResponse(c, ResetInvalidCodeCode)
	default:
		logger.Error("password reset failed", zap.String("path", c.FullPath()), zap.Error(err))
		internalErrorResponse(c)
	}
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
