package jobs

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"travel-buddy-server/models"
	"travel-buddy-server/notification"
)

// fakeTrips is an in-memory TripStore with the same half-open range and
// conditional update semantics as the gorm store.
type fakeTrips struct {
	mu        sync.Mutex
	trips     map[uint]*models.TravelHistory
	findErr   map[models.TravelStatus]error
	updateErr map[uint]error
	// stale makes UpdateStatus report that another writer moved the trip
	stale map[uint]bool
	panics bool
}

func newFakeTrips(trips ...models.TravelHistory) *fakeTrips {
	f := &fakeTrips{
		trips:     make(map[uint]*models.TravelHistory),
		findErr:   make(map[models.TravelStatus]error),
		updateErr: make(map[uint]error),
		stale:     make(map[uint]bool),
	}
	for i := range trips {
		t := trips[i]
		f.trips[t.ID] = &t
	}
	return f
}

func (f *fakeTrips) status(id uint) models.TravelStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trips[id].Status
}

func (f *fakeTrips) list(match func(t *models.TravelHistory) bool) []models.TravelHistory {
	var out []models.TravelHistory
	for _, t := range f.trips {
		if match(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeTrips) FindByStatus(ctx context.Context, status models.TravelStatus) ([]models.TravelHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("store exploded")
	}
	if err := f.findErr[status]; err != nil {
		return nil, err
	}
	return f.list(func(t *models.TravelHistory) bool { return t.Status == status }), nil
}

func (f *fakeTrips) FindByStatusAndDateRange(ctx context.Context, status models.TravelStatus, field models.TravelDateField, from, to time.Time) ([]models.TravelHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.findErr[status]; err != nil {
		return nil, err
	}
	return f.list(func(t *models.TravelHistory) bool {
		if t.Status != status {
			return false
		}
		d := t.ArrivalDate
		if field == models.ReturnDateField {
			d = t.ReturnDate
		}
		if !from.IsZero() && d.Before(from) {
			return false
		}
		if !to.IsZero() && !d.Before(to) {
			return false
		}
		return true
	}), nil
}

func (f *fakeTrips) UpdateStatus(ctx context.Context, id uint, from, to models.TravelStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return false, err
	}
	if f.stale[id] {
		return false, nil
	}
	t, ok := f.trips[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[uint]*models.Account
	findErr  error
	// resetNoop makes ResetProInfo report zero rows without writing
	resetNoop map[uint]bool
	// stickyPro makes the reset write report success but leave IsPro set
	stickyPro map[uint]bool
}

func newFakeAccounts(accounts ...models.Account) *fakeAccounts {
	f := &fakeAccounts{
		accounts:  make(map[uint]*models.Account),
		resetNoop: make(map[uint]bool),
		stickyPro: make(map[uint]bool),
	}
	for i := range accounts {
		a := accounts[i]
		f.accounts[a.ID] = &a
	}
	return f
}

func (f *fakeAccounts) sorted(match func(a *models.Account) bool) []models.Account {
	var out []models.Account
	for _, a := range f.accounts {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeAccounts) FindProExpiringInRange(ctx context.Context, from, to time.Time) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.sorted(func(a *models.Account) bool {
		e := a.ProInfo.ExpireAt
		return a.ProInfo.IsPro && e != nil && !e.Before(from) && e.Before(to)
	}), nil
}

func (f *fakeAccounts) FindProExpiredBefore(ctx context.Context, before time.Time) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.sorted(func(a *models.Account) bool {
		e := a.ProInfo.ExpireAt
		return a.ProInfo.IsPro && e != nil && e.Before(before)
	}), nil
}

func (f *fakeAccounts) ResetProInfo(ctx context.Context, id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || !a.ProInfo.IsPro || f.resetNoop[id] {
		return 0, nil
	}
	if !f.stickyPro[id] {
		a.ProInfo = models.ProInfo{}
	}
	return 1, nil
}

func (f *fakeAccounts) Reread(ctx context.Context, id uint) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := *f.accounts[id]
	return &a, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	drafts []notification.Draft
	failOn map[uint]error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{failOn: make(map[uint]error)}
}

func (r *recordingNotifier) Emit(ctx context.Context, d notification.Draft) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[d.UserID]; err != nil {
		return nil, err
	}
	r.drafts = append(r.drafts, d)
	return &models.Notification{ID: uint(len(r.drafts)), UserID: d.UserID, Type: d.Type}, nil
}

func (r *recordingNotifier) ofType(kind models.NotificationType) []notification.Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Draft
	for _, d := range r.drafts {
		if d.Type == kind {
			out = append(out, d)
		}
	}
	return out
}

func recipients(drafts []notification.Draft) []uint {
	out := make([]uint, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, d.UserID)
	}
	return out
}

var (
	creator = models.User{ID: 1, FullName: "Linh"}
	alice   = models.User{ID: 2, FullName: "Alice"}
	bob     = models.User{ID: 3, FullName: "Bob"}
)

func saigon(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	require.NoError(t, err)
	return loc
}

// fixture pins the clock to 2026-03-10 00:01 in the business timezone.
type fixture struct {
	loc      *time.Location
	today    time.Time
	trips    *fakeTrips
	accounts *fakeAccounts
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	loc := saigon(t)
	return &fixture{
		loc:      loc,
		today:    time.Date(2026, 3, 10, 0, 0, 0, 0, loc),
		trips:    newFakeTrips(),
		accounts: newFakeAccounts(),
		notifier: newRecordingNotifier(),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Trips:    f.trips,
		Accounts: f.accounts,
		Notifier: f.notifier,
		Calendar: NewCalendar(f.loc),
		Clock:    func() time.Time { return f.today.Add(time.Minute) },
		Log:      zap.NewNop().Sugar(),
	}
}

// day returns local midnight offset days from the fixture's today
func (f *fixture) day(offset int) time.Time {
	return f.today.AddDate(0, 0, offset)
}

// trip builds a trip whose participants include the creator, as stored.
func trip(id uint, status models.TravelStatus, arrival, ret time.Time) models.TravelHistory {
	return models.TravelHistory{
		ID:           id,
		CreatorID:    creator.ID,
		Creator:      creator,
		Participants: []models.User{creator, alice, bob},
		Destination:  "Da Lat",
		ArrivalDate:  arrival,
		ReturnDate:   ret,
		Status:       status,
	}
}
