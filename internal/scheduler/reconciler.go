package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/servopoint/servopoint/internal/model"
)

// ScheduleSource is the slice of durable storage the reconciler reads.
type ScheduleSource interface {
	ListSchedules(ctx context.Context) ([]*model.Schedule, error)
}

// Pusher delivers a desired state to the device.
type Pusher interface {
	PushState(ctx context.Context, pairingCode string, state model.Action) (string, error)
}

// StateStore is the view of the servo state store the reconciler needs:
// the last-applied mark for dedup and the commit on successful delivery.
type StateStore interface {
	LastApplied(code string) (model.Action, bool)
	CommitApplied(code string, action model.Action)
}

// ActivityRecorder persists delivery attempts.
type ActivityRecorder interface {
	AppendActivity(ctx context.Context, entry *model.ActivityLog) error
}

// Reconciler compares wall-clock time in the reference timezone against
// stored schedules and drives device state at most once per (device, action)
// transition. It runs headless: delivery failures are logged and retried on
// the next tick while the entry remains due, never queued.
type Reconciler struct {
	schedules ScheduleSource
	pusher    Pusher
	state     StateStore
	activity  ActivityRecorder
	loc       *time.Location
	tick      time.Duration
	window    time.Duration
	now       func() time.Time
}

// New builds a Reconciler. timezone names the reference location the
// schedule times are expressed in.
func New(schedules ScheduleSource, pusher Pusher, state StateStore, activity ActivityRecorder, timezone string, tick, window time.Duration) (*Reconciler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		schedules: schedules,
		pusher:    pusher,
		state:     state,
		activity:  activity,
		loc:       loc,
		tick:      tick,
		window:    window,
		now:       time.Now,
	}, nil
}

// Run ticks on the configured period until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx, r.now())
		}
	}
}

// Tick runs one reconciliation pass against the given instant.
func (r *Reconciler) Tick(ctx context.Context, now time.Time) {
	rows, err := r.schedules.ListSchedules(ctx)
	if err != nil {
		log.Printf("scheduler: list schedules: %v", err)
		return
	}

	for code, entry := range dueSchedules(rows, now.In(r.loc), r.window) {
		// Skip entries whose action already reached the device. This is
		// the idempotence guard: a due row stays due for several ticks.
		if applied, ok := r.state.LastApplied(code); ok && applied == entry.Action {
			continue
		}
		r.deliver(ctx, code, entry)
	}
}

// deliver pushes one due entry. The in-memory commit happens only after the
// push succeeds; a failed push leaves the mark untouched so the next tick
// retries while the entry is still due. One device's failure never blocks
// the rest of the batch.
func (r *Reconciler) deliver(ctx context.Context, code string, entry *model.Schedule) {
	log.Printf("scheduler: triggering servo for %s to %s (scheduled at %s)", code, entry.Action, entry.ScheduleTime)
	result, err := r.pusher.PushState(ctx, code, entry.Action)
	if err != nil {
		log.Printf("scheduler: push %s to %s failed: %v", entry.Action, code, err)
		r.record(ctx, code, entry.Action, model.ActivityStatusFailed, err.Error())
		return
	}
	r.state.CommitApplied(code, entry.Action)
	r.record(ctx, code, entry.Action, model.ActivityStatusSuccess, result)
}

func (r *Reconciler) record(ctx context.Context, code string, action model.Action, status, result string) {
	if r.activity == nil {
		return
	}
	entry := &model.ActivityLog{
		PairingCode: code,
		Kind:        model.ActivityKindSchedule,
		Action:      action,
		Status:      status,
		Result:      result,
	}
	if err := r.activity.AppendActivity(ctx, entry); err != nil {
		log.Printf("scheduler: append activity failed: %v", err)
	}
}

// dueSchedules selects, per device, the most recently created row whose
// fire time has arrived within the matching window. A row never fires
// before its scheduled second; it stays due from the scheduled second until
// the window elapses, then is permanently missed. Stale or superseded rows
// for the same device never fire.
func dueSchedules(rows []*model.Schedule, now time.Time, window time.Duration) map[string]*model.Schedule {
	due := make(map[string]*model.Schedule)
	nowSec := secondOfDay(now)
	windowSec := int(window / time.Second)
	for _, row := range rows {
		fire, err := time.Parse("15:04:05", row.ScheduleTime)
		if err != nil {
			log.Printf("scheduler: skipping row %d: bad schedule time %q", row.ID, row.ScheduleTime)
			continue
		}
		// elapsed seconds since the fire time, wrapping at midnight so
		// 00:00:01 is two seconds after 23:59:59
		elapsed := (nowSec - secondOfDay(fire) + 86400) % 86400
		if elapsed > windowSec {
			continue
		}
		if current, ok := due[row.PairingCode]; ok && !row.CreatedAt.After(current.CreatedAt) {
			continue
		}
		due[row.PairingCode] = row
	}
	return due
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
