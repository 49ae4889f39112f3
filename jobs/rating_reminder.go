package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

var ratingReminderDays = []int{1, 3}

type RatingReminderStats struct {
	TripsProcessed int `json:"tripsProcessed"`
	RemindersSent  int `json:"remindersSent"`
	Errors         int `json:"errors"`
}

// PersonToRate is one entry of a rating reminder's peopleToRate list
type PersonToRate struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// RatingReminder asks members of a completed trip to rate each other 1 and
// 3 days after return.
type RatingReminder struct {
	deps Deps
	log  *zap.SugaredLogger
}

func NewRatingReminder(deps Deps) *RatingReminder {
	return &RatingReminder{deps: deps, log: deps.logger(RatingReminderJob)}
}

func (j *RatingReminder) Name() string { return RatingReminderJob }

func (j *RatingReminder) Run(ctx context.Context) Result {
	return guard(j.log, j.deps.now, func() (interface{}, error) {
		stats := &RatingReminderStats{}
		today := j.deps.Calendar.StartOfDay(j.deps.now())

		var errs []error
		for _, days := range ratingReminderDays {
			if err := j.remind(ctx, today, days, stats); err != nil {
				errs = append(errs, err)
			}
		}
		return stats, errors.Join(errs...)
	})
}

func (j *RatingReminder) remind(ctx context.Context, today time.Time, days int, stats *RatingReminderStats) error {
	from, to := j.deps.Calendar.DayWindow(today, -days)
	trips, err := j.deps.Trips.FindByStatusAndDateRange(ctx, models.TravelStatusCompleted, models.ReturnDateField, from, to)
	if err != nil {
		return errors.Wrapf(err, "%d day rating reminders", days)
	}
	j.log.Infow("Found completed trips to rate", "days_since_return", days, "count", len(trips))

	for _, trip := range trips {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%d day rating reminders", days)
		}
		if err := checkTrip(trip); err != nil {
			j.log.Errorw("Skipping malformed trip", "trip_id", trip.ID, "error", err)
			stats.Errors++
			continue
		}

		members := trip.Members()
		vars := notification.Vars{
			Destination: trip.Destination,
			From:        j.deps.Calendar.FormatDayMonth(trip.ArrivalDate),
			To:          j.deps.Calendar.FormatDayMonth(trip.ReturnDate),
		}
		sent, failed := fanOut(ctx, j.deps.Notifier, j.log, trip, func(member models.User, role notification.Role) (notification.Draft, error) {
			content, err := notification.Render(models.NotificationTravelRatingReminder, role, vars)
			if err != nil {
				return notification.Draft{}, err
			}
			return notification.Draft{
				UserID:   member.ID,
				Content:  content,
				Type:     models.NotificationTravelRatingReminder,
				Priority: models.PriorityMedium,
				Data: map[string]interface{}{
					"travelHistoryId": trip.ID,
					"destination":     trip.Destination,
					"arrivalDate":     trip.ArrivalDate,
					"returnDate":      trip.ReturnDate,
					"daysSinceReturn": days,
					"isCreator":       role == notification.RoleCreator,
					"peopleToRate":    peopleToRate(members, member.ID),
				},
			}, nil
		})
		stats.TripsProcessed++
		stats.RemindersSent += sent
		stats.Errors += failed
	}
	return nil
}

// peopleToRate lists every member except the recipient
func peopleToRate(members []models.User, recipient uint) []PersonToRate {
	out := make([]PersonToRate, 0, len(members))
	for _, m := range members {
		if m.ID == recipient || m.ID == 0 {
			continue
		}
		out = append(out, PersonToRate{ID: m.ID, FullName: m.FullName, Avatar: m.AvatarURL()})
	}
	return out
}
