package routes

import (
	"net/http"

	"github.com/creativedesignseo/taxi-bcn/internal/config"
	"github.com/creativedesignseo/taxi-bcn/internal/handlers/public"
	"github.com/creativedesignseo/taxi-bcn/internal/middleware"
	"github.com/creativedesignseo/taxi-bcn/internal/services"
	"github.com/creativedesignseo/taxi-bcn/pkg/cache"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDependencies carries everything the HTTP layer is built from.
type RouterDependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       cache.Store
	Forms       services.FormService
	FormHandler *public.FormHandler
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	if len(deps.Config.Security.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(deps.Config.Security.TrustedProxies); err != nil {
			deps.Logger.WithError(err).Warn("Ignoring invalid trusted proxies")
		}
	}

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(deps.Config.Security.CORSAllowedOrigins))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(deps.Store, deps.Config.Security.RateLimitPerMinute, deps.Logger))
	{
		SetupBookingRoutes(v1, deps.FormHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"version":      deps.Config.App.Version,
			"active_forms": deps.Forms.Count(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
