package routes

import (
	"net/http"
	"strings"

	"reviewflow/internal/handlers"
	"reviewflow/internal/logger"
	"reviewflow/internal/monitoring"
	"reviewflow/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers,
	wsHandler *ws.WebSocketHandler,
	db *gorm.DB,
	uploadsURL, uploadsDir string,
) {
	ginRouter.GET("/health", healthCheck(db))
	ginRouter.GET("/metrics", gin.WrapH(monitoring.Handler()))

	// локальное хранилище раздается самим сервером
	if uploadsDir != "" && strings.HasPrefix(uploadsURL, "/") {
		ginRouter.Static(uploadsURL, uploadsDir)
	}

	api := ginRouter.Group("/api/v1")
	{
		appHandlers.PublicHandler.RegisterRoutes(api)
		appHandlers.AuthHandler.RegisterRoutes(api)
		appHandlers.AdminHandler.RegisterRoutes(api)
		appHandlers.SellerHandler.RegisterRoutes(api)
		appHandlers.ClientHandler.RegisterRoutes(api)
	}

	ginRouter.GET("/ws/feedback", wsHandler.ServeWS)
	logger.Info("WebSocket route /ws/feedback registered")
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.CtxWithError(c.Request.Context(), "Health check failed", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
	}
}
