package v1

import (
	"time"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/service"
	"github.com/vibe-gaming/account-recovery/pkg/csrf"

	"github.com/gin-gonic/gin"
)

// @title Account Recovery API
// @version 1.0
// @description Email OTP password reset

// @BasePath /api/v1

// @securityDefinitions.apikey CSRFToken
// @in header
// @name X-CSRF-Token

// CSRFManager issues double-submit tokens and checks them on mutating requests.
type CSRFManager interface {
	csrf.Validator
	Issue() (string, time.Duration, error)
}

type Handler struct {
	services *service.Services
	csrf     CSRFManager
	config   *config.Config
}

func NewHandler(
	services *service.Services,
	csrfManager CSRFManager,
	config *config.Config,
) *Handler {
	return &Handler{
		services: services,
		csrf:     csrfManager,
		config:   config,
	}
}

func (h *Handler) Init(api *gin.RouterGroup) {
	v1 := api.Group("v1")

	h.initPasswordResetRoutes(v1)
}
