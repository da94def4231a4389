package apiHttp

import (
	"context"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"

	"github.com/vibe-gaming/account-recovery/pkg/limiter"
	"github.com/vibe-gaming/account-recovery/pkg/logger"
	"github.com/vibe-gaming/account-recovery/pkg/validator"

	internalV1 "github.com/vibe-gaming/account-recovery/internal/api/http/internal/v1"
	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services    *service.Services
	csrfManager internalV1.CSRFManager
	config      *config.Config
}

func NewHandlers(
	services *service.Services,
	csrfManager internalV1.CSRFManager,
	cfg *config.Config,
) *Handler {
	return &Handler{
		services:    services,
		csrfManager: csrfManager,
		config:      cfg,
	}
}

// Init builds the router. Background work started by its middleware stops when ctx is done.
func (h *Handler) Init(ctx context.Context, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	validator.RegisterGinValidator()

	router.Use(
		ginzap.Ginzap(logger.Logger(), time.RFC3339, true),
		limiter.Limit(ctx, cfg.Limiter.RPS, cfg.Limiter.Burst, cfg.Limiter.TTL),
		corsMiddleware(cfg.HttpServer.CORSOrigins),
	)
	router.Use(ginzap.RecoveryWithZap(logger.Logger(), true))

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	h.initAPI(router)

	return router
}

func (h *Handler) initAPI(router *gin.Engine) {
	internalHandlersV1 := internalV1.NewHandler(h.services, h.csrfManager, h.config)
	api := router.Group("/api")
	internalHandlersV1.Init(api)
}
