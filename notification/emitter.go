// Package notification persists user notifications and pushes them to the
// recipient's realtime channel.
package notification

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"travel-buddy-server/models"
)

// EventNewNotification is the realtime event every emitted notification is
// pushed under.
const EventNewNotification = "newNotification"

// Store is the write side of notification persistence.
type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	MarkNotified(ctx context.Context, id uint) error
}

// Publisher delivers an event to one user's channel. Delivery is fire and
// forget; a nil error only means the event was handed off.
type Publisher interface {
	PushToUser(userID uint, event string, payload interface{}) error
}

// Draft is a notification about to be emitted.
type Draft struct {
	UserID   uint
	Content  string
	Type     models.NotificationType
	Priority models.NotificationPriority
	Data     map[string]interface{}
}

// Payload is what clients receive for EventNewNotification.
type Payload struct {
	ID        uint                        `json:"id"`
	Content   string                      `json:"content"`
	Type      models.NotificationType     `json:"type"`
	Priority  models.NotificationPriority `json:"priority"`
	Data      map[string]interface{}      `json:"data"`
	CreatedAt time.Time                   `json:"createdAt"`
	IsRead    bool                        `json:"isRead"`
}

type Emitter struct {
	store     Store
	publisher Publisher
	log       *zap.SugaredLogger
}

// NewEmitter wires an emitter. publisher may be nil, in which case
// notifications are only persisted.
func NewEmitter(store Store, publisher Publisher, log *zap.SugaredLogger) *Emitter {
	return &Emitter{store: store, publisher: publisher, log: log}
}

// Emit persists the draft and then attempts a realtime push. Push failures
// are logged and never undo the persisted notification.
func (e *Emitter) Emit(ctx context.Context, d Draft) (*models.Notification, error) {
	if d.UserID == 0 {
		return nil, errors.Newf("notification %s has no recipient", d.Type)
	}
	if d.Content == "" {
		return nil, errors.Newf("notification %s for user %d has no content", d.Type, d.UserID)
	}
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}

	n := &models.Notification{
		UserID:   d.UserID,
		Content:  d.Content,
		Type:     d.Type,
		Priority: d.Priority,
		Data:     datatypes.JSONMap(d.Data),
	}
	if err := e.store.Create(ctx, n); err != nil {
		return nil, err
	}

	if e.publisher == nil {
		return n, nil
	}

	payload := Payload{
		ID:        n.ID,
		Content:   n.Content,
		Type:      n.Type,
		Priority:  n.Priority,
		Data:      d.Data,
		CreatedAt: n.CreatedAt,
		IsRead:    n.IsRead,
	}
	if err := e.publisher.PushToUser(n.UserID, EventNewNotification, payload); err != nil {
		e.log.Warnw("Realtime push failed", "notification_id", n.ID, "user_id", n.UserID, "error", err)
		return n, nil
	}

	if err := e.store.MarkNotified(ctx, n.ID); err != nil {
		e.log.Warnw("Failed to record push", "notification_id", n.ID, "error", err)
		return n, nil
	}
	n.NotifyStatus = true
	return n, nil
}
