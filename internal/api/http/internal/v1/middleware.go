package v1

import (
	"net/http"

	"github.com/vibe-gaming/account-recovery/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *Handler) csrfMiddleware(c *gin.Context) {
	if !h.csrf.IsValid(c.Request) {
		logger.Warn("csrf check failed", zap.String("path", c.FullPath()), zap.String("ip", c.ClientIP()))
		errorResponseWithStatus(c, http.StatusForbidden, CSRFTokenInvalidCode)
		return
	}

	c.Next()
}
