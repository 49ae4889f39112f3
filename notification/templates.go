package notification

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"travel-buddy-server/models"
)

type Role string

const (
	RoleCreator     Role = "creator"
	RoleParticipant Role = "participant"
	anyRole         Role = ""
)

// anyDays matches every day count for templates that do not vary by it.
const anyDays = -1

// Vars are the values substituted into a template.
type Vars struct {
	Destination string
	Days        int
	Plan        string
	From        string
	To          string
}

type templateKey struct {
	kind models.NotificationType
	role Role
	days int
}

var templates = map[templateKey]string{
	{models.NotificationTravelReminder, RoleCreator, 5}:     "Reminder: Your trip to {destination} is in 5 days!",
	{models.NotificationTravelReminder, RoleCreator, 3}:     "Reminder: Your trip to {destination} is in 3 days! Time to start preparing.",
	{models.NotificationTravelReminder, RoleParticipant, 5}: "Reminder: You have a trip to {destination} in 5 days! Please check your travel details and prepare luggage for your trip.",
	{models.NotificationTravelReminder, RoleParticipant, 3}: "Reminder: You have a trip to {destination} in 3 days! Time to start preparing.",
	{models.NotificationTravelReminder, anyRole, 1}:         "Reminder: Tomorrow is your trip to {destination}! Make sure you've prepared everything for your journey. We hope you have a great trip!",

	{models.NotificationTravelStatusReminder, RoleCreator, anyDays}:     "Please update your travel plan to {destination} that starts in {days} days",
	{models.NotificationTravelStatusReminder, RoleParticipant, anyDays}: "A trip to {destination} you're part of needs to be updated. It starts in {days} days",

	{models.NotificationTravelAutoCancelled, RoleCreator, anyDays}:     "Your trip to {destination} has been automatically cancelled as it was not activated in time",
	{models.NotificationTravelAutoCancelled, RoleParticipant, anyDays}: "A trip to {destination} you were part of has been automatically cancelled",

	{models.NotificationTravelStarted, anyRole, anyDays}:   "Your trip to {destination} has started! Have a great journey!",
	{models.NotificationTravelCompleted, anyRole, anyDays}: "Your trip to {destination} has been marked as completed. We hope you had a great time!",

	{models.NotificationTravelRatingReminder, RoleCreator, anyDays}:     "Don't forget to rate your travel companions from your trip to {destination} from {from} to {to}!",
	{models.NotificationTravelRatingReminder, RoleParticipant, anyDays}: "Please take a moment to rate your experience with your travel companions to {destination} from {from} to {to}!",

	{models.NotificationVipReminder, anyRole, 3}: "Your {plan} VIP subscription will expire in 3 days. Renew now to continue enjoying premium features!",
	{models.NotificationVipReminder, anyRole, 1}: "Your {plan} VIP subscription expires tomorrow! Don't miss out on premium features - renew your subscription today.",
	{models.NotificationVipReminder, anyRole, 0}: "Your {plan} VIP subscription has expired. Upgrade now to restore premium features and benefits!",
}

// ErrNoTemplate is returned when no template covers a (type, role, days) key.
var ErrNoTemplate = errors.New("no notification template")

// Render produces the plain-text content for a notification. The most
// specific template wins: exact role and day count first, then any day
// count, then any role.
func Render(kind models.NotificationType, role Role, vars Vars) (string, error) {
	candidates := []templateKey{
		{kind, role, vars.Days},
		{kind, role, anyDays},
		{kind, anyRole, vars.Days},
		{kind, anyRole, anyDays},
	}
	for _, key := range candidates {
		if tmpl, ok := templates[key]; ok {
			return fill(tmpl, vars), nil
		}
	}
	return "", errors.Wrapf(ErrNoTemplate, "type=%s role=%s days=%d", kind, role, vars.Days)
}

func fill(tmpl string, vars Vars) string {
	plan := "{plan}"
	if vars.Plan == "" {
		// drop the slot together with its trailing space
		plan = "{plan} "
	}
	return strings.NewReplacer(
		"{destination}", vars.Destination,
		"{days}", strconv.Itoa(vars.Days),
		plan, vars.Plan,
		"{from}", vars.From,
		"{to}", vars.To,
	).Replace(tmpl)
}

// FormatPlan is the display name of a VIP plan, empty for unknown plans
func FormatPlan(plan models.ProPlan) string {
	switch plan {
	case models.ProPlanMonth:
		return "Monthly"
	case models.ProPlanYear:
		return "Yearly"
	default:
		return ""
	}
}

// RoleOf reports whether userID is the trip creator
func RoleOf(creatorID, userID uint) Role {
	if creatorID == userID {
		return RoleCreator
	}
	return RoleParticipant
}
