package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"travel-buddy-server/config"
	"travel-buddy-server/middleware"
	"travel-buddy-server/websocket"
)

// Dependencies are the services the HTTP surface reads from
type Dependencies struct {
	Notifications NotificationReader
	Hub           *websocket.Hub
	Upgrader      *gws.Upgrader
	Ping          Pinger
	Schedules     ScheduleLister
	Limiter       *middleware.RateLimiter
}

// SetupRoutes registers middleware and every route on the router
func SetupRoutes(router *gin.Engine, cfg *config.Config, deps Dependencies, log *zap.SugaredLogger) {
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewRateLimiter(rate.Every(time.Second), 20)
	}

	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(log.Named("http")),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(cfg.CORS.AllowedOrigins),
	)

	var online func() []uint
	if deps.Hub != nil {
		online = deps.Hub.ConnectedUsers
	}
	router.GET("/health", NewHealthHandler(deps.Ping, deps.Schedules, online).Health)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(deps.Limiter))

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	NewNotificationHandler(deps.Notifications, log.Named("notifications")).RegisterNotificationRoutes(authed)

	if deps.Hub != nil {
		realtime := NewRealtimeHandler(deps.Hub, deps.Upgrader)
		api.GET("/ws", middleware.WebSocketAuthMiddleware(cfg.JWT.Secret), realtime.HandleWebSocket)
	}
}
