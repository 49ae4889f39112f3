package jobs

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

type buildDraft func(member models.User, role notification.Role) (notification.Draft, error)

// checkTrip rejects trips whose members were not resolved
func checkTrip(trip models.TravelHistory) error {
	if trip.Creator.ID == 0 {
		return errors.Newf("trip %d has no resolved creator", trip.ID)
	}
	return nil
}

// fanOut emits one notification per trip member, creator first. A failure
// for one member is logged and the rest are still notified.
func fanOut(ctx context.Context, notifier Notifier, log *zap.SugaredLogger, trip models.TravelHistory, build buildDraft) (sent, failed int) {
	for _, member := range trip.Members() {
		if member.ID == 0 {
			log.Warnw("Skipping unresolved trip member", "trip_id", trip.ID)
			failed++
			continue
		}
		draft, err := build(member, notification.RoleOf(trip.Creator.ID, member.ID))
		if err == nil {
			_, err = notifier.Emit(ctx, draft)
		}
		if err != nil {
			log.Warnw("Failed to notify trip member", "trip_id", trip.ID, "user_id", member.ID, "error", err)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

// creatorFields are added to payloads sent to non-creators
func creatorFields(data map[string]interface{}, trip models.TravelHistory, role notification.Role) map[string]interface{} {
	if role == notification.RoleParticipant {
		data["creatorId"] = trip.Creator.ID
		data["creatorName"] = trip.Creator.FullName
	}
	return data
}
