package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"travel-buddy-server/models"
)

const acquireLeaseSQL = `INSERT INTO job_leases (name, holder, acquired_at, expires_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE
SET holder = EXCLUDED.holder, acquired_at = EXCLUDED.acquired_at, expires_at = EXCLUDED.expires_at
WHERE job_leases.expires_at < ?`

type LeaseRepository struct {
	db *gorm.DB
}

func NewLeaseRepository(db *gorm.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// Acquire takes the named lease for holder until now+ttl. An existing lease
// is only taken over once it has expired.
func (r *LeaseRepository) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).Exec(acquireLeaseSQL, name, holder, now, now.Add(ttl), now)
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "failed to acquire lease %s", name)
	}
	return result.RowsAffected == 1, nil
}

// Release drops the lease if holder still owns it
func (r *LeaseRepository) Release(ctx context.Context, name, holder string) error {
	err := r.db.WithContext(ctx).
		Where("name = ? AND holder = ?", name, holder).
		Delete(&models.JobLease{}).Error
	if err != nil {
		return errors.Wrapf(err, "failed to release lease %s", name)
	}
	return nil
}
