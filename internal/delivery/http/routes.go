package http

import (
	"github.com/gin-gonic/gin"

	"github.com/buildledger/unitfilter/config"
	"github.com/buildledger/unitfilter/internal/platform/logger"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log *logger.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		units := v1.Group("/units")
		{
			units.GET("", handler.ListUnits)
			units.GET("/:code", handler.GetUnit)
			units.POST("/convert", handler.Convert)
			units.POST("/compare", handler.Compare)
			units.POST("/range", handler.Range)
			units.POST("/parse", handler.Parse)
		}

		v1.GET("/properties/:key", handler.GetProperty)

		products := v1.Group("/products")
		{
			products.GET("", handler.SearchProducts)
			products.POST("", handler.IngestProducts)
			products.GET("/query", handler.QueryProducts)
		}
	}

	return router
}
