package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"travel-buddy-server/models"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindProExpiringInRange lists VIP accounts expiring in [from, to)
func (r *AccountRepository) FindProExpiringInRange(ctx context.Context, from, to time.Time) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("pro_is_pro = ? AND pro_expire_at >= ? AND pro_expire_at < ?", true, from, to).
		Order("id").
		Find(&accounts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find expiring pro accounts")
	}
	return accounts, nil
}

func (r *AccountRepository) FindProExpiredBefore(ctx context.Context, before time.Time) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("pro_is_pro = ? AND pro_expire_at < ?", true, before).
		Order("id").
		Find(&accounts).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to find expired pro accounts")
	}
	return accounts, nil
}

// ResetProInfo clears the subscription of a still-pro account and returns
// the number of rows it changed.
func (r *AccountRepository) ResetProInfo(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND pro_is_pro = ?", id, true).
		Updates(map[string]interface{}{
			"pro_is_pro":       false,
			"pro_plan":         nil,
			"pro_expire_at":    nil,
			"pro_activated_at": nil,
		})
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "failed to reset pro info of account %d", id)
	}
	return result.RowsAffected, nil
}

func (r *AccountRepository) Reread(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Preload("User").First(&account, id).Error; err != nil {
		return nil, wrapNotFound(err, "failed to reload account %d", id)
	}
	return &account, nil
}
