package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"travel-buddy-server/models"
)

type TravelRepository struct {
	db *gorm.DB
}

func NewTravelRepository(db *gorm.DB) *TravelRepository {
	return &TravelRepository{db: db}
}

// withMembers resolves the creator and participants so callers never see
// foreign keys only.
func (r *TravelRepository) withMembers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Participants")
}

func (r *TravelRepository) FindByStatus(ctx context.Context, status models.TravelStatus) ([]models.TravelHistory, error) {
	var trips []models.TravelHistory
	err := r.withMembers(ctx).
		Where("status = ?", status).
		Order("id").
		Find(&trips).Error
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find trips with status %s", status)
	}
	return trips, nil
}

// FindByStatusAndDateRange returns trips in the given status whose date field
// lies in [from, to). A zero bound leaves that side open.
func (r *TravelRepository) FindByStatusAndDateRange(
	ctx context.Context,
	status models.TravelStatus,
	field models.TravelDateField,
	from, to time.Time,
) ([]models.TravelHistory, error) {
	switch field {
	case models.ArrivalDateField, models.ReturnDateField:
	default:
		return nil, errors.Newf("unsupported trip date field %q", field)
	}

	q := r.withMembers(ctx).Where("status = ?", status)
	if !from.IsZero() {
		q = q.Where(fmt.Sprintf("%s >= ?", field), from)
	}
	if !to.IsZero() {
		q = q.Where(fmt.Sprintf("%s < ?", field), to)
	}

	var trips []models.TravelHistory
	if err := q.Order("id").Find(&trips).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to find %s trips by %s", status, field)
	}
	return trips, nil
}

// UpdateStatus moves a trip from one status to another. It reports false
// when the trip was no longer in the expected status.
func (r *TravelRepository) UpdateStatus(ctx context.Context, id uint, from, to models.TravelStatus) (bool, error) {
	if !to.IsValid() {
		return false, errors.Wrapf(models.ErrUnknownStatus, "trip %d target %q", id, to)
	}
	result := r.db.WithContext(ctx).
		Model(&models.TravelHistory{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "failed to move trip %d from %s to %s", id, from, to)
	}
	return result.RowsAffected == 1, nil
}
