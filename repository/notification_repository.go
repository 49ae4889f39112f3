package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"travel-buddy-server/models"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return errors.Wrapf(err, "failed to create %s notification for user %d", n.Type, n.UserID)
	}
	return nil
}

// MarkNotified records that a realtime push was attempted
func (r *NotificationRepository) MarkNotified(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("notify_status", true)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to mark notification %d as notified", id)
	}
	if result.RowsAffected == 0 {
		return errors.WithStack(ErrNotFound)
	}
	return nil
}

// ListByUser returns a page of the user's notifications, newest first, and
// the total count.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, int64, error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrapf(err, "failed to count notifications of user %d", userID)
	}

	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, errors.Wrapf(err, "failed to list notifications of user %d", userID)
	}
	return notifications, total, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count unread notifications of user %d", userID)
	}
	return count, nil
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to mark notification %d as read", id)
	}
	if result.RowsAffected == 0 {
		return errors.WithStack(ErrNotFound)
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "failed to mark notifications of user %d as read", userID)
	}
	return result.RowsAffected, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to delete notification %d", id)
	}
	if result.RowsAffected == 0 {
		return errors.WithStack(ErrNotFound)
	}
	return nil
}
