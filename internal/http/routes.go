package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env) {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := env.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{corsOrigin},
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Admin-Token"},
		ExposeHeaders: []string{"Content-Length"},
		// Credentials cannot be combined with a wildcard origin.
		AllowCredentials: corsOrigin != "*",
	}))

	router.GET("/health", env.Health)

	api := router.Group("/api")
	{
		api.GET("/questions", env.GetQuestions)
		// Stats are only exposed when an admin token is configured.
		if env.AdminToken != "" {
			api.GET("/stats", AdminAuthMiddleware(env.AdminToken), env.GetStats)
		}
	}

	wsHandlers := []gin.HandlerFunc{env.ServeWs}
	if env.ConnLimiter != nil {
		wsHandlers = append([]gin.HandlerFunc{RateLimitMiddleware(env.ConnLimiter)}, wsHandlers...)
	}
	router.GET("/ws", wsHandlers...)
}
