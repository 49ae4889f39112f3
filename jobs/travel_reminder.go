package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

var travelReminderDays = []int{5, 3, 1}

type TravelReminderStats struct {
	NotificationsCreated int `json:"notificationsCreated"`
	Errors               int `json:"errors"`
}

// TravelReminder reminds every member of an active trip 5, 3 and 1 days
// before arrival.
type TravelReminder struct {
	deps Deps
	log  *zap.SugaredLogger
}

func NewTravelReminder(deps Deps) *TravelReminder {
	return &TravelReminder{deps: deps, log: deps.logger(TravelReminderJob)}
}

func (j *TravelReminder) Name() string { return TravelReminderJob }

func (j *TravelReminder) Run(ctx context.Context) Result {
	return guard(j.log, j.deps.now, func() (interface{}, error) {
		stats := &TravelReminderStats{}
		today := j.deps.Calendar.StartOfDay(j.deps.now())

		var errs []error
		for _, days := range travelReminderDays {
			if err := j.remind(ctx, today, days, stats); err != nil {
				errs = append(errs, err)
			}
		}
		return stats, errors.Join(errs...)
	})
}

// remind notifies members of active trips arriving exactly days from today
func (j *TravelReminder) remind(ctx context.Context, today time.Time, days int, stats *TravelReminderStats) error {
	from, to := j.deps.Calendar.DayWindow(today, days)
	trips, err := j.deps.Trips.FindByStatusAndDateRange(ctx, models.TravelStatusActive, models.ArrivalDateField, from, to)
	if err != nil {
		return errors.Wrapf(err, "%d day reminders", days)
	}
	j.log.Infow("Found trips to remind", "days_before_trip", days, "count", len(trips))

	for _, trip := range trips {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%d day reminders", days)
		}
		if err := checkTrip(trip); err != nil {
			j.log.Errorw("Skipping malformed trip", "trip_id", trip.ID, "error", err)
			stats.Errors++
			continue
		}
		sent, failed := fanOut(ctx, j.deps.Notifier, j.log, trip, func(member models.User, role notification.Role) (notification.Draft, error) {
			content, err := notification.Render(models.NotificationTravelReminder, role, notification.Vars{Destination: trip.Destination, Days: days})
			if err != nil {
				return notification.Draft{}, err
			}
			return notification.Draft{
				UserID:   member.ID,
				Content:  content,
				Type:     models.NotificationTravelReminder,
				Priority: models.PriorityHigh,
				Data: creatorFields(map[string]interface{}{
					"travelId":      trip.ID,
					"destination":   trip.Destination,
					"arrivalDate":   trip.ArrivalDate,
					"daysRemaining": days,
				}, trip, role),
			}, nil
		})
		stats.NotificationsCreated += sent
		stats.Errors += failed
	}
	return nil
}
