package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"travel-buddy-server/scheduler"
)

type Pinger func(ctx context.Context) error

type ScheduleLister interface {
	Entries() []scheduler.EntryInfo
}

// HealthHandler reports database reachability and the registered jobs
type HealthHandler struct {
	ping      Pinger
	schedules ScheduleLister
	online    func() []uint
}

func NewHealthHandler(ping Pinger, schedules ScheduleLister, online func() []uint) *HealthHandler {
	return &HealthHandler{ping: ping, schedules: schedules, online: online}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "ok"}
	if h.ping == nil {
		body["database"] = "unknown"
	} else if err := h.ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["database"] = err.Error()
	}
	if h.schedules != nil {
		body["jobs"] = h.schedules.Entries()
	}
	if h.online != nil {
		body["connected_users"] = len(h.online())
	}
	c.JSON(status, body)
}
