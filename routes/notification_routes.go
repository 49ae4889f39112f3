package routes

import (
	"context"
	"math"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"travel-buddy-server/middleware"
	"travel-buddy-server/models"
	"travel-buddy-server/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// NotificationReader is the read side of the notification store
type NotificationReader interface {
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkAsRead(ctx context.Context, userID, id uint) error
	MarkAllAsRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
}

type NotificationHandler struct {
	store NotificationReader
	log   *zap.SugaredLogger
}

func NewNotificationHandler(store NotificationReader, log *zap.SugaredLogger) *NotificationHandler {
	return &NotificationHandler{store: store, log: log}
}

// RegisterNotificationRoutes mounts the handler under an authenticated group
func (h *NotificationHandler) RegisterNotificationRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	{
		n.GET("", h.GetUserNotifications)
		n.GET("/unread-count", h.GetUnreadCount)
		n.PATCH("/read-all", h.MarkAllNotificationsAsRead)
		n.PATCH("/:id/read", h.MarkNotificationAsRead)
		n.DELETE("/:id", h.DeleteNotification)
	}
}

// GetUserNotifications returns a page of the caller's notifications, newest first
func (h *NotificationHandler) GetUserNotifications(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	page, limit, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notifications, total, err := h.store.ListByUser(c.Request.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		h.log.Errorw("Failed to fetch notifications", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
		"page":          page,
		"limit":         limit,
		"total":         total,
	})
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	count, err := h.store.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorw("Failed to count unread notifications", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unread count"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := notificationID(c)
	if !ok {
		return
	}

	if err := h.store.MarkAsRead(c.Request.Context(), userID, id); err != nil {
		h.respondWriteError(c, "Failed to update notification", userID, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marked as read",
	})
}

func (h *NotificationHandler) MarkAllNotificationsAsRead(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	updated, err := h.store.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorw("Failed to mark notifications as read", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All notifications marked as read",
		"updated": updated,
	})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := notificationID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), userID, id); err != nil {
		h.respondWriteError(c, "Failed to delete notification", userID, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification deleted",
	})
}

func (h *NotificationHandler) respondWriteError(c *gin.Context, msg string, userID, id uint, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	h.log.Errorw(msg, "user_id", userID, "notification_id", id, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return userID, ok
}

func notificationID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return 0, false
	}
	return uint(id), true
}

func pagination(c *gin.Context) (page, limit int, err error) {
	page, err = strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, errors.New("page must be a positive integer")
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		return 0, 0, errors.New("limit must be a positive integer")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	// offset must stay a positive int32 for the query
	if page > math.MaxInt32/limit {
		return 0, 0, errors.New("page is out of range")
	}
	return page, limit, nil
}
