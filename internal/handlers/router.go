// internal/handlers/router.go
package handlers

import (
	"net/http"
	"time"

	"alertmap/internal/config"
	"alertmap/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var serverStartTime = time.Now()

// RouterDeps - всё, что нужно для сборки роутера
type RouterDeps struct {
	Config      *config.Config
	Alerts      *AlertHandler
	WebSocket   *WebSocketHandler
	Hub         *Hub
	RateLimiter *middleware.RateLimiter // nil - без ограничения
	Version     string
}

// NewRouter настраивает все маршруты
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Глобальные middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())

	// CORS настройки для поддержки frontend
	corsConfig := cors.Config{
		AllowOrigins:  deps.Config.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(deps.Config.AllowedOrigins) == 1 && deps.Config.AllowedOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// WebSocket endpoint
	router.GET("/ws", deps.WebSocket.HandleWebSocket)

	setupHealthRoutes(router, deps)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/alerts", deps.Alerts.GetAlerts)
		v1.GET("/alerts/latest", deps.Alerts.GetLatestTimestamp)

		write := v1.Group("")
		if deps.RateLimiter != nil {
			write.Use(deps.RateLimiter.RateLimit())
		}
		write.POST("/alerts", deps.Alerts.CreateAlert)
		write.PUT("/alerts/:id", deps.Alerts.CommitAlert)
	}

	// 404 handler для неизвестных маршрутов
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}

// setupHealthRoutes настраивает маршруты health check
func setupHealthRoutes(router *gin.Engine, deps RouterDeps) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(serverStartTime).String(),
			"version":   deps.Version,
			"stats": gin.H{
				"websocket_connections": deps.Hub.GetConnectionsCount(),
			},
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ready": true})
	})

	router.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alive": true})
	})
}
