package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-buddy-server/models"
)

func TestTravelStatusUpdate_PlanningReminders(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(
		trip(1, models.TravelStatusPlanning, f.day(5), f.day(8)),
		trip(2, models.TravelStatusPlanning, f.day(3), f.day(6)),
		trip(3, models.TravelStatusPlanning, f.day(4), f.day(6)),
		trip(4, models.TravelStatusPlanning, f.day(9), f.day(12)),
	)

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, res.Success, res.Error)

	reminders := f.notifier.ofType(models.NotificationTravelStatusReminder)
	require.Len(t, reminders, 6, "one per member for each of the 5 and 3 day trips")
	assert.Equal(t, []uint{1, 2, 3, 1, 2, 3}, recipients(reminders))

	for _, id := range []uint{1, 2, 3, 4} {
		assert.Equal(t, models.TravelStatusPlanning, f.trips.status(id), "reminders never transition")
	}

	assert.Equal(t, "Please update your travel plan to Da Lat that starts in 5 days", reminders[0].Content)
	assert.Equal(t, 5, reminders[0].Data["daysUntilArrival"])
	assert.NotContains(t, reminders[0].Data, "creatorId")
	assert.Equal(t, "A trip to Da Lat you're part of needs to be updated. It starts in 5 days", reminders[1].Content)
	assert.Equal(t, creator.ID, reminders[1].Data["creatorId"])
	assert.Equal(t, creator.FullName, reminders[1].Data["creatorName"])

	stats := res.Stats.(*TravelStatusStats)
	assert.Equal(t, 6, stats.RemindersSent)
	assert.Zero(t, stats.CancelledPlans)
}

func TestTravelStatusUpdate_PlanningAutoCancel(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(
		trip(1, models.TravelStatusPlanning, f.day(2), f.day(4)),
		trip(2, models.TravelStatusPlanning, f.day(0), f.day(2)),
		trip(3, models.TravelStatusPlanning, f.day(-4), f.day(-1)),
	)

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, res.Success, res.Error)

	for _, id := range []uint{1, 2, 3} {
		assert.Equal(t, models.TravelStatusCancelled, f.trips.status(id))
	}
	cancelled := f.notifier.ofType(models.NotificationTravelAutoCancelled)
	assert.Len(t, cancelled, 9)
	assert.Equal(t, "Your trip to Da Lat has been automatically cancelled as it was not activated in time", cancelled[0].Content)
	assert.Equal(t, "A trip to Da Lat you were part of has been automatically cancelled", cancelled[1].Content)
	assert.Equal(t, 3, res.Stats.(*TravelStatusStats).CancelledPlans)

	// Same day rerun finds nothing left in planning.
	again := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, again.Success)
	assert.Zero(t, again.Stats.(*TravelStatusStats).CancelledPlans)
	assert.Len(t, f.notifier.ofType(models.NotificationTravelAutoCancelled), 9)
}

func TestTravelStatusUpdate_ActiveTripStartsOnArrivalDay(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(
		trip(1, models.TravelStatusActive, f.day(0), f.day(3)),
		trip(2, models.TravelStatusActive, f.day(1), f.day(3)),
		trip(3, models.TravelStatusActive, f.day(-1), f.day(3)),
	)

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, res.Success, res.Error)

	assert.Equal(t, models.TravelStatusInProgress, f.trips.status(1))
	assert.Equal(t, models.TravelStatusActive, f.trips.status(2))
	assert.Equal(t, models.TravelStatusActive, f.trips.status(3))

	started := f.notifier.ofType(models.NotificationTravelStarted)
	require.Len(t, started, 3)
	assert.Equal(t, []uint{1, 2, 3}, recipients(started))
	assert.Equal(t, models.PriorityHigh, started[0].Priority)
	assert.Equal(t, "Your trip to Da Lat has started! Have a great journey!", started[2].Content)
	assert.Equal(t, 1, res.Stats.(*TravelStatusStats).StartedTrips)
}

func TestTravelStatusUpdate_CompletesAfterReturnDate(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(
		trip(1, models.TravelStatusInProgress, f.day(-4), f.day(-1)),
		trip(2, models.TravelStatusInProgress, f.day(-3), f.day(0)),
	)

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, res.Success, res.Error)

	assert.Equal(t, models.TravelStatusCompleted, f.trips.status(1))
	assert.Equal(t, models.TravelStatusInProgress, f.trips.status(2), "returning today is not finished yet")

	completed := f.notifier.ofType(models.NotificationTravelCompleted)
	assert.Len(t, completed, 3)
	assert.Equal(t, f.day(-1), completed[0].Data["returnDate"])
}

func TestTravelStatusUpdate_SkipsTripMovedByAnotherWriter(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(trip(1, models.TravelStatusActive, f.day(0), f.day(3)))
	f.trips.stale[1] = true

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, res.Success)
	assert.Empty(t, f.notifier.ofType(models.NotificationTravelStarted))
	assert.Zero(t, res.Stats.(*TravelStatusStats).StartedTrips)
}

func TestTravelStatusUpdate_RecordErrorsDoNotAbort(t *testing.T) {
	f := newFixture(t)
	broken := trip(1, models.TravelStatusActive, f.day(0), f.day(3))
	broken.Creator = models.User{}
	f.trips = newFakeTrips(
		broken,
		trip(2, models.TravelStatusActive, f.day(0), f.day(3)),
		trip(3, models.TravelStatusActive, f.day(0), f.day(3)),
	)
	f.trips.updateErr[2] = assert.AnError
	f.notifier.failOn[alice.ID] = assert.AnError

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	require.True(t, res.Success, "record errors are not run failures")

	assert.Equal(t, models.TravelStatusActive, f.trips.status(1))
	assert.Equal(t, models.TravelStatusActive, f.trips.status(2))
	assert.Equal(t, models.TravelStatusInProgress, f.trips.status(3))

	started := f.notifier.ofType(models.NotificationTravelStarted)
	assert.Equal(t, []uint{creator.ID, bob.ID}, recipients(started))

	stats := res.Stats.(*TravelStatusStats)
	assert.Equal(t, 1, stats.StartedTrips)
	assert.Equal(t, 3, stats.Errors)
}

func TestTravelStatusUpdate_PhaseFailureKeepsOtherPhases(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(
		trip(1, models.TravelStatusPlanning, f.day(1), f.day(3)),
		trip(2, models.TravelStatusActive, f.day(0), f.day(3)),
	)
	f.trips.findErr[models.TravelStatusPlanning] = assert.AnError

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "planning phase")
	assert.NotEmpty(t, res.Stack)
	assert.False(t, res.CompletedAt.IsZero())

	assert.Equal(t, models.TravelStatusInProgress, f.trips.status(2))
	assert.Equal(t, 1, res.Stats.(*TravelStatusStats).StartedTrips)
}

func TestTravelStatusUpdate_PanicBecomesFailedResult(t *testing.T) {
	f := newFixture(t)
	f.trips.panics = true

	res := NewTravelStatusUpdate(f.deps()).Run(context.Background())
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "store exploded")
	assert.NotEmpty(t, res.Stack)
}

func TestTravelStatusUpdate_CancelledContextStopsPhase(t *testing.T) {
	f := newFixture(t)
	f.trips = newFakeTrips(trip(1, models.TravelStatusPlanning, f.day(1), f.day(3)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewTravelStatusUpdate(f.deps()).Run(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, models.TravelStatusPlanning, f.trips.status(1))
}
