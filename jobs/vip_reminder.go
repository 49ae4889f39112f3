package jobs

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

var vipReminderDays = []int{3, 1}

// Values of data.type on vip_reminder notifications
const (
	vipExpiration = "vip_expiration"
	vipExpired    = "vip_expired"
)

type VipReminderStats struct {
	NotificationsCreated int `json:"notificationsCreated"`
	AccountsReset        int `json:"accountsReset"`
	RemindersSent        int `json:"remindersSent"`
	ExpirationNotices    int `json:"expirationNotices"`
	Errors               int `json:"errors"`
}

// VipReminder warns VIP accounts before they expire and resets the ones
// that already have.
type VipReminder struct {
	deps Deps
	log  *zap.SugaredLogger
}

func NewVipReminder(deps Deps) *VipReminder {
	return &VipReminder{deps: deps, log: deps.logger(VipReminderJob)}
}

func (j *VipReminder) Name() string { return VipReminderJob }

func (j *VipReminder) Run(ctx context.Context) Result {
	return guard(j.log, j.deps.now, func() (interface{}, error) {
		stats := &VipReminderStats{}
		today := j.deps.Calendar.StartOfDay(j.deps.now())

		var errs []error
		for _, days := range vipReminderDays {
			if err := j.remind(ctx, today, days, stats); err != nil {
				errs = append(errs, err)
			}
		}
		if err := j.resetExpired(ctx, today, stats); err != nil {
			errs = append(errs, err)
		}
		return stats, errors.Join(errs...)
	})
}

func (j *VipReminder) remind(ctx context.Context, today time.Time, days int, stats *VipReminderStats) error {
	from, to := j.deps.Calendar.DayWindow(today, days)
	accounts, err := j.deps.Accounts.FindProExpiringInRange(ctx, from, to)
	if err != nil {
		return errors.Wrapf(err, "%d day vip reminders", days)
	}
	j.log.Infow("Found expiring vip accounts", "days_before_expiration", days, "count", len(accounts))

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%d day vip reminders", days)
		}
		if account.User.ID == 0 {
			j.log.Errorw("Skipping vip account without a linked user", "account_id", account.ID, "user_id", account.UserID)
			stats.Errors++
			continue
		}
		if err := j.notify(ctx, account.User.ID, days, account.ID, account.ProInfo); err != nil {
			j.log.Warnw("Failed to send vip reminder", "account_id", account.ID, "error", err)
			stats.Errors++
			continue
		}
		stats.NotificationsCreated++
		stats.RemindersSent++
	}
	return nil
}

// resetExpired clears every lapsed subscription. The expired notice is only
// sent once the reset is confirmed by both the write and a fresh read.
func (j *VipReminder) resetExpired(ctx context.Context, today time.Time, stats *VipReminderStats) error {
	accounts, err := j.deps.Accounts.FindProExpiredBefore(ctx, today)
	if err != nil {
		return errors.Wrap(err, "vip reset")
	}
	j.log.Infow("Found expired vip accounts", "count", len(accounts))

	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "vip reset")
		}
		// An account nobody can be told about is left untouched.
		if account.User.ID == 0 {
			j.log.Errorw("Skipping vip account without a linked user", "account_id", account.ID, "user_id", account.UserID)
			stats.Errors++
			continue
		}
		before := account.ProInfo

		affected, err := j.deps.Accounts.ResetProInfo(ctx, account.ID)
		if err != nil {
			j.log.Errorw("Failed to reset vip account", "account_id", account.ID, "error", err)
			stats.Errors++
			continue
		}
		if affected != 1 {
			j.log.Errorw("Vip reset not confirmed by write", "account_id", account.ID, "rows_affected", affected)
			stats.Errors++
			continue
		}

		fresh, err := j.deps.Accounts.Reread(ctx, account.ID)
		if err != nil {
			j.log.Errorw("Failed to verify vip reset", "account_id", account.ID, "error", err)
			stats.Errors++
			continue
		}
		if fresh.ProInfo.IsPro {
			j.log.Errorw("Vip reset not confirmed by read", "account_id", account.ID)
			stats.Errors++
			continue
		}
		stats.AccountsReset++

		if err := j.notify(ctx, account.User.ID, 0, account.ID, before); err != nil {
			j.log.Warnw("Failed to send vip expired notice", "account_id", account.ID, "error", err)
			stats.Errors++
			continue
		}
		stats.NotificationsCreated++
		stats.ExpirationNotices++
	}
	return nil
}

// notify sends a vip_reminder. days == 0 means the subscription has lapsed.
func (j *VipReminder) notify(ctx context.Context, userID uint, days int, accountID uint, pro models.ProInfo) error {
	plan := pro.PlanName()
	formatted := notification.FormatPlan(plan)
	content, err := notification.Render(models.NotificationVipReminder, notification.RoleCreator, notification.Vars{Days: days, Plan: formatted})
	if err != nil {
		return err
	}

	kind := vipExpiration
	if days == 0 {
		kind = vipExpired
	}
	data := map[string]interface{}{
		"type":              kind,
		"priority":          models.PriorityHigh,
		"accountId":         accountID,
		"daysRemaining":     days,
		"planType":          plan,
		"formattedPlanType": formatted,
	}
	if pro.ExpireAt != nil {
		data["expirationDate"] = *pro.ExpireAt
	}
	if pro.ActivatedAt != nil {
		data["activatedAt"] = *pro.ActivatedAt
	}

	_, err = j.deps.Notifier.Emit(ctx, notification.Draft{
		UserID:   userID,
		Content:  content,
		Type:     models.NotificationVipReminder,
		Priority: models.PriorityHigh,
		Data:     data,
	})
	return err
}
