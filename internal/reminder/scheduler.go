package reminder

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"adabot/internal/db/models"
	"adabot/internal/logging"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TaskStore is the part of the task store the scheduler reads and writes.
type TaskStore interface {
	ListTasks(ctx context.Context, tenant string) ([]*models.Task, error)
	SetAnchorTime(ctx context.Context, tenant string, id int64, anchor time.Time) error
	SetOverdue(ctx context.Context, tenant string, id int64, status models.Status, anchor time.Time) error
}

type TenantSource interface {
	Tenants(ctx context.Context) ([]string, error)
}

// Notifier delivers text to a destination inside a tenant.
type Notifier interface {
	Notify(ctx context.Context, tenant string, dest Destination, text string) error
}

type Options struct {
	Store     TaskStore
	Tenants   TenantSource
	Directory Directory
	Notifier  Notifier
	Policy    Policy
	Location  *time.Location
	Tick      time.Duration
	Log       zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Stats summarises one sweep.
type Stats struct {
	Tenants    int
	Evaluated  int
	Fired      int
	Unresolved int
	Failed     int
}

// Scheduler walks every tenant's tasks once per tick and sends the reminders
// its policy asks for. Reads and the per-task anchor writes are not wrapped in
// a transaction: a status change made by a command between the two can be
// acted on with stale data.
type Scheduler struct {
	store     TaskStore
	tenants   TenantSource
	directory Directory
	notifier  Notifier
	policy    Policy
	loc       *time.Location
	tick      time.Duration
	now       func() time.Time
	log       zerolog.Logger

	running atomic.Bool

	mu   sync.Mutex
	cron *cron.Cron
}

func New(opts Options) *Scheduler {
	s := &Scheduler{
		store:     opts.Store,
		tenants:   opts.Tenants,
		directory: opts.Directory,
		notifier:  opts.Notifier,
		policy:    opts.Policy,
		loc:       opts.Location,
		tick:      opts.Tick,
		now:       opts.Now,
		log:       opts.Log.With().Str("component", "reminder").Logger(),
	}
	if s.policy == nil {
		s.policy = ResetPolicy{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.tick <= 0 {
		s.tick = time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start runs Tick every tick interval until Stop. A tick that is still
// running when the next one is due makes the next one skip.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cl := logging.CronLogger{Log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.tick), func() { s.Tick(ctx) }); err != nil {
		return fmt.Errorf("error scheduling reminder sweep: %w", err)
	}
	c.Start()
	s.cron = c

	s.log.Info().
		Str("policy", s.policy.Name()).
		Dur("tick", s.tick).
		Str("tz", s.loc.String()).
		Msg("reminder scheduler started")
	return nil
}

// Stop stops triggering and waits for a running sweep, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info().Msg("reminder scheduler stopped")
}

// Tick runs one sweep at the current time. It reports false without doing
// anything when another sweep is still in progress.
func (s *Scheduler) Tick(ctx context.Context) (Stats, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("previous sweep still running, skipping tick")
		return Stats{}, false
	}
	defer s.running.Store(false)
	return s.Sweep(ctx, s.now()), true
}

// Sweep evaluates every task of every tenant at now. Failures are logged and
// never stop the sweep of other tenants or tasks.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) Stats {
	var stats Stats
	log := s.log.With().Str("sweep_id", uuid.NewString()).Logger()
	start := time.Now()

	tenants, err := s.tenants.Tenants(ctx)
	if err != nil {
		log.Error().Err(err).Msg("error listing tenants")
		stats.Failed++
		return stats
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("sweep cancelled")
			break
		}
		stats.Tenants++
		s.sweepTenant(ctx, tenant, now, &stats, log.With().Str("guild_id", tenant).Logger())
	}

	log.Debug().
		Int("tenants", stats.Tenants).
		Int("evaluated", stats.Evaluated).
		Int("fired", stats.Fired).
		Int("unresolved", stats.Unresolved).
		Int("failed", stats.Failed).
		Dur("took", time.Since(start)).
		Msg("sweep finished")
	return stats
}

func (s *Scheduler) sweepTenant(ctx context.Context, tenant string, now time.Time, stats *Stats, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			stats.Failed++
			log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("panic while sweeping tenant")
		}
	}()

	tasks, err := s.store.ListTasks(ctx, tenant)
	if err != nil {
		stats.Failed++
		log.Error().Err(err).Msg("error listing tasks")
		return
	}

	dir := &tenantDirectory{source: s.directory, tenant: tenant}
	for _, task := range tasks {
		if task.Status.Terminal() {
			continue
		}
		stats.Evaluated++

		decision := s.policy.Evaluate(task, now)
		if !decision.Fire {
			continue
		}

		tlog := log.With().Int64("task_id", task.ID).Str("assignee", task.AssignedTo).Logger()
		if err := s.fire(ctx, task, decision, dir, stats, tlog); err != nil {
			stats.Failed++
			tlog.Error().Err(err).Msg("error sending reminder")
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, task *models.Task, d Decision, dir *tenantDirectory, stats *Stats, log zerolog.Logger) error {
	members, roles, err := dir.load(ctx)
	if err != nil {
		return fmt.Errorf("error loading directory: %w", err)
	}
	dest, ok := Resolve(task.AssignedTo, members, roles)
	if !ok {
		stats.Unresolved++
		log.Debug().Msg("assignee not resolvable, will retry next tick")
		return nil
	}

	text := Compose(task, dest, d.Overdue, s.loc)
	if err := s.notifier.Notify(ctx, task.TenantID, dest, text); err != nil {
		return fmt.Errorf("error notifying %s: %w", dest.Name, err)
	}

	if d.Status != "" {
		err = s.store.SetOverdue(ctx, task.TenantID, task.ID, d.Status, d.Anchor)
	} else {
		err = s.store.SetAnchorTime(ctx, task.TenantID, task.ID, d.Anchor)
	}
	if err != nil {
		return fmt.Errorf("error updating anchor: %w", err)
	}

	stats.Fired++
	log.Info().Bool("overdue", d.Overdue).Time("anchor", d.Anchor).Msg("reminder sent")
	return nil
}

// tenantDirectory loads members and roles once per tenant per sweep, and
// only when some task actually fires.
type tenantDirectory struct {
	source  Directory
	tenant  string
	loaded  bool
	members []Member
	roles   []Role
	err     error
}

func (d *tenantDirectory) load(ctx context.Context) ([]Member, []Role, error) {
	if !d.loaded {
		d.loaded = true
		d.members, d.err = d.source.Members(ctx, d.tenant)
		if d.err == nil {
			d.roles, d.err = d.source.Roles(ctx, d.tenant)
		}
	}
	return d.members, d.roles, d.err
}
