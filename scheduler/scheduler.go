// Package scheduler registers the batch jobs on their daily cron schedules
// and makes sure a job never overlaps its own previous run.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"travel-buddy-server/jobs"
	"travel-buddy-server/notification"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobBusy    = errors.New("job is already running")
)

const DefaultLeaseTTL = 23 * time.Hour

// Schedule is one job's cron registration
type Schedule struct {
	Job     string
	Spec    string
	enabled func(Options) bool
}

// Schedules are evaluated in Options.Location.
var Schedules = []Schedule{
	{jobs.TravelReminderJob, "0 19 * * *", func(o Options) bool { return o.EnableTravelReminders }},
	{jobs.VipReminderJob, "0 10 * * *", func(o Options) bool { return o.EnableVipReminders }},
	{jobs.TravelStatusUpdateJob, "1 0 * * *", func(o Options) bool { return o.EnableTravelStatusUpdates }},
	{jobs.RatingReminderJob, "0 12 * * *", func(o Options) bool { return o.EnableRatingReminders }},
}

type Options struct {
	EnableTravelReminders     bool
	EnableVipReminders        bool
	EnableTravelStatusUpdates bool
	EnableRatingReminders     bool
	Location                  *time.Location
	LeaseTTL                  time.Duration
}

// DefaultOptions enables every job
func DefaultOptions(loc *time.Location) Options {
	return Options{
		EnableTravelReminders:     true,
		EnableVipReminders:        true,
		EnableTravelStatusUpdates: true,
		EnableRatingReminders:     true,
		Location:                  loc,
		LeaseTTL:                  DefaultLeaseTTL,
	}
}

// Dependencies are injected once and threaded into every job run.
// Publisher may be nil; Locker defaults to a MemoryLocker.
type Dependencies struct {
	Trips         jobs.TripStore
	Accounts      jobs.AccountStore
	Notifications notification.Store
	Publisher     notification.Publisher
	Locker        Locker
	Clock         jobs.Clock
}

// EntryInfo describes a registered job
type EntryInfo struct {
	Job  string    `json:"job"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]jobs.Job
	specs   map[string]string
	entries map[string]cron.EntryID
	locker  Locker
	ttl     time.Duration
	clock   jobs.Clock
	log     *zap.SugaredLogger

	mu      sync.Mutex
	results map[string]jobs.Result
}

func New(opts Options, deps Dependencies, log *zap.SugaredLogger) *Scheduler {
	log = log.Named("scheduler")
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LeaseTTL <= 0 {
		opts.LeaseTTL = DefaultLeaseTTL
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Locker == nil {
		deps.Locker = NewMemoryLocker()
	}

	emitter := notification.NewEmitter(deps.Notifications, deps.Publisher, log.Named("notification"))
	all := jobs.All(jobs.Deps{
		Trips:    deps.Trips,
		Accounts: deps.Accounts,
		Notifier: emitter,
		Calendar: jobs.NewCalendar(opts.Location),
		Clock:    deps.Clock,
		Log:      log,
	})

	cl := cronLogger{log: log.Named("cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(opts.Location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    all,
		specs:   make(map[string]string),
		entries: make(map[string]cron.EntryID),
		locker:  deps.Locker,
		ttl:     opts.LeaseTTL,
		clock:   deps.Clock,
		log:     log,
		results: make(map[string]jobs.Result),
	}

	for _, sc := range Schedules {
		if !sc.enabled(opts) {
			log.Infow("Job disabled", "job", sc.Job)
			continue
		}
		// A job that fails to register leaves the others running.
		if err := s.register(sc.Job, sc.Spec); err != nil {
			log.Errorw("Failed to register job", "job", sc.Job, "spec", sc.Spec, "error", err)
		}
	}
	return s
}

func (s *Scheduler) register(name, spec string) error {
	if _, ok := s.jobs[name]; !ok {
		return errors.Wrapf(ErrUnknownJob, "%s", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.trigger(name) })
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q", spec)
	}
	s.entries[name] = id
	s.specs[name] = spec
	s.log.Infow("Job registered", "job", name, "spec", spec)
	return nil
}

// Start begins firing registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.Entries() {
		s.log.Infow("Job scheduled", "job", e.Job, "next", e.Next)
	}
}

// Stop stops new triggers and waits for running jobs, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Infow("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "scheduler stop")
	}
}

// RunNow runs one job synchronously under the same lease as a scheduled
// trigger.
func (s *Scheduler) RunNow(ctx context.Context, name string) (jobs.Result, error) {
	return s.execute(ctx, name)
}

func (s *Scheduler) trigger(name string) {
	if _, err := s.execute(context.Background(), name); err != nil {
		if errors.Is(err, ErrJobBusy) {
			s.log.Warnw("Skipping trigger, previous run still holds the lease", "job", name)
			return
		}
		s.log.Errorw("Job trigger failed", "job", name, "error", err)
	}
}

func (s *Scheduler) execute(ctx context.Context, name string) (jobs.Result, error) {
	job, ok := s.jobs[name]
	if !ok {
		return jobs.Result{}, errors.Wrapf(ErrUnknownJob, "%s", name)
	}

	runID := uuid.NewString()
	log := s.log.With("job", name, "run_id", runID)

	acquired, err := s.locker.Acquire(ctx, name, runID, s.clock(), s.ttl)
	if err != nil {
		return jobs.Result{}, errors.Wrapf(err, "lease for %s", name)
	}
	if !acquired {
		return jobs.Result{}, errors.Wrapf(ErrJobBusy, "%s", name)
	}
	defer func() {
		if err := s.locker.Release(context.Background(), name, runID); err != nil {
			log.Warnw("Failed to release lease", "error", err)
		}
	}()

	started := s.clock()
	log.Infow("Job started")
	res := job.Run(ctx)

	s.mu.Lock()
	s.results[name] = res
	s.mu.Unlock()

	if res.Success {
		log.Infow("Job finished", "stats", res.Stats, "took", res.CompletedAt.Sub(started))
	} else {
		log.Errorw("Job finished with errors", "error", res.Error, "stats", res.Stats, "stack", res.Stack)
	}
	return res, nil
}

// Entries lists registered jobs sorted by name
func (s *Scheduler) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(s.entries))
	for name, id := range s.entries {
		e := s.cron.Entry(id)
		out = append(out, EntryInfo{Job: name, Spec: s.specs[name], Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// LastResult is the outcome of the most recent run of a job
func (s *Scheduler) LastResult(name string) (jobs.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[name]
	return res, ok
}
