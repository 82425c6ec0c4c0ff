package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/config"
	"github.com/fleveque/review-jury/internal/handler"
	"github.com/fleveque/review-jury/internal/middleware"
	"github.com/fleveque/review-jury/internal/service"
	"github.com/fleveque/review-jury/internal/storage"
	"github.com/fleveque/review-jury/internal/web"
)

// Deps holds the services the handlers need. main builds them once; tests
// substitute their own.
type Deps struct {
	Reviews  *service.ReviewService
	Uploads  *storage.UploadStore
	Defaults []string
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// Dependencies are passed explicitly; each handler gets exactly what it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	uploads := handler.Uploads{Store: deps.Uploads, MaxBytes: cfg.Image.MaxBytes}

	healthHandler := handler.NewHealthHandler()
	uiHandler := handler.NewUIHandler(deps.Reviews, uploads, cfg.LLM, deps.Defaults, web.NewMarkdown(), logger)
	apiHandler := handler.NewAPIHandler(deps.Reviews, uploads, cfg.LLM, deps.Defaults, logger)

	r.GET("/healthz", healthHandler.Healthz)

	limit := middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	r.GET("/", uiHandler.Index)
	ui := r.Group("")
	ui.Use(limit, middleware.Credential())
	{
		ui.POST("/personas", uiHandler.AddPersona)
		ui.POST("/review", uiHandler.Review)
	}

	// Group middleware only runs on matched routes, hence the OPTIONS catch-all.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	api.OPTIONS("/*path", func(c *gin.Context) {})
	api.GET("/personas", apiHandler.ListPersonas)

	limited := api.Group("")
	limited.Use(limit, middleware.Credential())
	{
		limited.POST("/personas", apiHandler.AddPersona)
		limited.POST("/uploads", apiHandler.Upload)
		limited.POST("/review", apiHandler.Review)
	}
}
