package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"

	"travel-buddy-server/middleware"
	"travel-buddy-server/websocket"
)

// RealtimeHandler joins authenticated users to their notification room
type RealtimeHandler struct {
	hub      *websocket.Hub
	upgrader *gws.Upgrader
}

func NewRealtimeHandler(hub *websocket.Hub, upgrader *gws.Upgrader) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, upgrader: upgrader}
}

func (h *RealtimeHandler) HandleWebSocket(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	websocket.ServeWebSocket(h.hub, h.upgrader, c.Writer, c.Request, userID)
}
