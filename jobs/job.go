// Package jobs holds the daily batch jobs that drive trip lifecycle
// transitions and reminder fan-out.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

const (
	TravelReminderJob     = "travel_reminder"
	VipReminderJob        = "vip_reminder"
	TravelStatusUpdateJob = "travel_status_update"
	RatingReminderJob     = "travel_rating_reminder"
)

// TripStore is the part of the travel store the jobs rely on. Trips come
// back with creator and participants resolved.
type TripStore interface {
	FindByStatus(ctx context.Context, status models.TravelStatus) ([]models.TravelHistory, error)
	FindByStatusAndDateRange(ctx context.Context, status models.TravelStatus, field models.TravelDateField, from, to time.Time) ([]models.TravelHistory, error)
	UpdateStatus(ctx context.Context, id uint, from, to models.TravelStatus) (bool, error)
}

type AccountStore interface {
	FindProExpiringInRange(ctx context.Context, from, to time.Time) ([]models.Account, error)
	FindProExpiredBefore(ctx context.Context, before time.Time) ([]models.Account, error)
	ResetProInfo(ctx context.Context, id uint) (int64, error)
	Reread(ctx context.Context, id uint) (*models.Account, error)
}

// Notifier emits one notification to one recipient
type Notifier interface {
	Emit(ctx context.Context, d notification.Draft) (*models.Notification, error)
}

type Clock func() time.Time

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) Result
}

// Deps are shared by every job.
type Deps struct {
	Trips    TripStore
	Accounts AccountStore
	Notifier Notifier
	Calendar Calendar
	Clock    Clock
	Log      *zap.SugaredLogger
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock()
}

func (d Deps) logger(name string) *zap.SugaredLogger {
	if d.Log == nil {
		return zap.NewNop().Sugar()
	}
	return d.Log.Named("jobs." + name)
}

// All builds every job keyed by name
func All(deps Deps) map[string]Job {
	jobs := []Job{
		NewTravelReminder(deps),
		NewVipReminder(deps),
		NewTravelStatusUpdate(deps),
		NewRatingReminder(deps),
	}
	out := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		out[j.Name()] = j
	}
	return out
}
