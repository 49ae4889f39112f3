package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTravelReminder       NotificationType = "travel_reminder"
	NotificationTravelStatusReminder NotificationType = "travel_status_reminder"
	NotificationTravelAutoCancelled  NotificationType = "travel_auto_cancelled"
	NotificationTravelStarted        NotificationType = "travel_started"
	NotificationTravelCompleted      NotificationType = "travel_completed"
	NotificationTravelRatingReminder NotificationType = "travel_rating_reminder"
	NotificationVipReminder          NotificationType = "vip_reminder"
	NotificationSystem               NotificationType = "system"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// Notification is a persisted, pre-rendered message for one recipient.
// IsRead is owned by the user; NotifyStatus only records that a realtime
// push went out on the recipient's channel.
type Notification struct {
	ID           uint                 `json:"id" gorm:"primaryKey"`
	UserID       uint                 `json:"user_id" gorm:"not null;index"`
	Content      string               `json:"content" gorm:"type:text;not null"`
	Type         NotificationType     `json:"type" gorm:"type:varchar(50);not null;index"`
	Priority     NotificationPriority `json:"priority" gorm:"type:varchar(10);not null;default:'medium';check:priority IN ('low','medium','high')"`
	Data         datatypes.JSONMap    `json:"data" gorm:"type:jsonb"`
	IsRead       bool                 `json:"is_read" gorm:"default:false;index"`
	NotifyStatus bool                 `json:"notify_status" gorm:"default:false"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	DeletedAt    gorm.DeletedAt       `json:"-" gorm:"index"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
