package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

// Planning trips get a reminder at these many days before arrival and are
// cancelled once fewer than planningCancelBelow days remain.
var planningReminderDays = map[int]bool{5: true, 3: true}

const planningCancelBelow = 3

type TravelStatusStats struct {
	RemindersSent  int `json:"remindersSent"`
	CancelledPlans int `json:"cancelledPlans"`
	StartedTrips   int `json:"startedTrips"`
	CompletedTrips int `json:"completedTrips"`
	Errors         int `json:"errors"`
}

// TravelStatusUpdate advances trips through planning, active, inprogress
// and completed.
type TravelStatusUpdate struct {
	deps Deps
	log  *zap.SugaredLogger
}

func NewTravelStatusUpdate(deps Deps) *TravelStatusUpdate {
	return &TravelStatusUpdate{deps: deps, log: deps.logger(TravelStatusUpdateJob)}
}

func (j *TravelStatusUpdate) Name() string { return TravelStatusUpdateJob }

func (j *TravelStatusUpdate) Run(ctx context.Context) Result {
	return guard(j.log, j.deps.now, func() (interface{}, error) {
		stats := &TravelStatusStats{}
		today := j.deps.Calendar.StartOfDay(j.deps.now())
		j.log.Infow("Starting travel status update", "today", today)

		// Phases are independent; a failing one does not stop the next.
		return stats, errors.Join(
			j.planningPhase(ctx, today, stats),
			j.activePhase(ctx, today, stats),
			j.inProgressPhase(ctx, today, stats),
		)
	})
}

func (j *TravelStatusUpdate) planningPhase(ctx context.Context, today time.Time, stats *TravelStatusStats) error {
	trips, err := j.deps.Trips.FindByStatus(ctx, models.TravelStatusPlanning)
	if err != nil {
		return errors.Wrap(err, "planning phase")
	}
	j.log.Infow("Found planning trips", "count", len(trips))

	for _, trip := range trips {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "planning phase")
		}
		if err := checkTrip(trip); err != nil {
			j.log.Errorw("Skipping malformed trip", "trip_id", trip.ID, "error", err)
			stats.Errors++
			continue
		}

		days := j.deps.Calendar.DaysUntil(trip.ArrivalDate, today)
		switch {
		case planningReminderDays[days]:
			sent, failed := fanOut(ctx, j.deps.Notifier, j.log, trip, j.planningReminder(trip, days))
			stats.RemindersSent += sent
			stats.Errors += failed

		case days < planningCancelBelow:
			moved, err := j.transition(ctx, trip, models.TravelStatusPlanning, models.TravelStatusCancelled, stats)
			if err != nil || !moved {
				continue
			}
			stats.CancelledPlans++
			_, failed := fanOut(ctx, j.deps.Notifier, j.log, trip, j.autoCancelled(trip))
			stats.Errors += failed
		}
	}
	return nil
}

func (j *TravelStatusUpdate) activePhase(ctx context.Context, today time.Time, stats *TravelStatusStats) error {
	from, to := j.deps.Calendar.DayWindow(today, 0)
	trips, err := j.deps.Trips.FindByStatusAndDateRange(ctx, models.TravelStatusActive, models.ArrivalDateField, from, to)
	if err != nil {
		return errors.Wrap(err, "active phase")
	}
	j.log.Infow("Found active trips arriving today", "count", len(trips))

	for _, trip := range trips {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "active phase")
		}
		if err := checkTrip(trip); err != nil {
			j.log.Errorw("Skipping malformed trip", "trip_id", trip.ID, "error", err)
			stats.Errors++
			continue
		}
		moved, err := j.transition(ctx, trip, models.TravelStatusActive, models.TravelStatusInProgress, stats)
		if err != nil || !moved {
			continue
		}
		stats.StartedTrips++
		_, failed := fanOut(ctx, j.deps.Notifier, j.log, trip, tripEvent(trip, models.NotificationTravelStarted, models.PriorityHigh, "arrivalDate", trip.ArrivalDate))
		stats.Errors += failed
	}
	return nil
}

func (j *TravelStatusUpdate) inProgressPhase(ctx context.Context, today time.Time, stats *TravelStatusStats) error {
	trips, err := j.deps.Trips.FindByStatusAndDateRange(ctx, models.TravelStatusInProgress, models.ReturnDateField, time.Time{}, today)
	if err != nil {
		return errors.Wrap(err, "inprogress phase")
	}
	j.log.Infow("Found finished inprogress trips", "count", len(trips))

	for _, trip := range trips {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "inprogress phase")
		}
		if err := checkTrip(trip); err != nil {
			j.log.Errorw("Skipping malformed trip", "trip_id", trip.ID, "error", err)
			stats.Errors++
			continue
		}
		moved, err := j.transition(ctx, trip, models.TravelStatusInProgress, models.TravelStatusCompleted, stats)
		if err != nil || !moved {
			continue
		}
		stats.CompletedTrips++
		_, failed := fanOut(ctx, j.deps.Notifier, j.log, trip, tripEvent(trip, models.NotificationTravelCompleted, models.PriorityMedium, "returnDate", trip.ReturnDate))
		stats.Errors += failed
	}
	return nil
}

// transition persists the status change before anyone is notified. A trip
// another writer already moved is skipped without notifications.
func (j *TravelStatusUpdate) transition(ctx context.Context, trip models.TravelHistory, from, to models.TravelStatus, stats *TravelStatusStats) (bool, error) {
	moved, err := j.deps.Trips.UpdateStatus(ctx, trip.ID, from, to)
	if err != nil {
		j.log.Errorw("Failed to update trip status", "trip_id", trip.ID, "from", from, "to", to, "error", err)
		stats.Errors++
		return false, err
	}
	if !moved {
		j.log.Infow("Trip already left status, skipping", "trip_id", trip.ID, "from", from)
		return false, nil
	}
	j.log.Infow("Trip status updated", "trip_id", trip.ID, "from", from, "to", to)
	return true, nil
}

func (j *TravelStatusUpdate) planningReminder(trip models.TravelHistory, days int) buildDraft {
	return func(member models.User, role notification.Role) (notification.Draft, error) {
		content, err := notification.Render(models.NotificationTravelStatusReminder, role, notification.Vars{Destination: trip.Destination, Days: days})
		if err != nil {
			return notification.Draft{}, err
		}
		return notification.Draft{
			UserID:   member.ID,
			Content:  content,
			Type:     models.NotificationTravelStatusReminder,
			Priority: models.PriorityMedium,
			Data: creatorFields(map[string]interface{}{
				"travelHistoryId":  trip.ID,
				"destination":      trip.Destination,
				"arrivalDate":      trip.ArrivalDate,
				"daysUntilArrival": days,
			}, trip, role),
		}, nil
	}
}

func (j *TravelStatusUpdate) autoCancelled(trip models.TravelHistory) buildDraft {
	return func(member models.User, role notification.Role) (notification.Draft, error) {
		content, err := notification.Render(models.NotificationTravelAutoCancelled, role, notification.Vars{Destination: trip.Destination})
		if err != nil {
			return notification.Draft{}, err
		}
		return notification.Draft{
			UserID:   member.ID,
			Content:  content,
			Type:     models.NotificationTravelAutoCancelled,
			Priority: models.PriorityMedium,
			Data: creatorFields(map[string]interface{}{
				"travelHistoryId": trip.ID,
				"destination":     trip.Destination,
				"arrivalDate":     trip.ArrivalDate,
			}, trip, role),
		}, nil
	}
}

// tripEvent builds the started and completed notifications, which read the
// same for every member.
func tripEvent(trip models.TravelHistory, kind models.NotificationType, priority models.NotificationPriority, dateKey string, date time.Time) buildDraft {
	return func(member models.User, role notification.Role) (notification.Draft, error) {
		content, err := notification.Render(kind, role, notification.Vars{Destination: trip.Destination})
		if err != nil {
			return notification.Draft{}, err
		}
		return notification.Draft{
			UserID:   member.ID,
			Content:  content,
			Type:     kind,
			Priority: priority,
			Data: map[string]interface{}{
				"travelHistoryId": trip.ID,
				"destination":     trip.Destination,
				dateKey:           date,
			},
		}, nil
	}
}
