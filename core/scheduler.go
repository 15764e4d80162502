package core

import (
	"math/rand/v2"
	"time"

	"github.com/encodeous/ripd/state"
)

// Due describes the advertisements that must be sent now.
type Due struct {
	// Full is set when the periodic full update fired.
	Full bool
	// Triggered holds the coalesced changes to advertise, if Full is not set.
	Triggered ChangeSet
}

func (d Due) Empty() bool {
	return !d.Full && len(d.Triggered) == 0
}

// UpdateScheduler decides when periodic and triggered advertisements are sent.
// It is driven entirely by the times passed to it.
type UpdateScheduler struct {
	Interval    time.Duration
	Jitter      time.Duration
	Suppression time.Duration
	MinTick     time.Duration

	rng           *rand.Rand
	nextPeriodic  time.Time
	pending       ChangeSet
	triggerAt     time.Time
	lastTriggered time.Time
}

func NewUpdateScheduler(timers state.TimerCfg, now time.Time, rng *rand.Rand) *UpdateScheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	u := &UpdateScheduler{
		Interval:    timers.Update,
		Jitter:      timers.Jitter,
		Suppression: timers.TriggerSuppression,
		MinTick:     timers.MinTick,
		rng:         rng,
		pending:     make(ChangeSet),
	}
	u.nextPeriodic = now.Add(u.jittered())
	return u
}

func (u *UpdateScheduler) jittered() time.Duration {
	if u.Jitter <= 0 {
		return u.Interval
	}
	offset := time.Duration(u.rng.Int64N(int64(2*u.Jitter)+1)) - u.Jitter
	return u.Interval + offset
}

// Trigger records changes to advertise. The first trigger after a quiet period
// is due immediately, later ones are held until the suppression window since
// the last triggered update has passed.
func (u *UpdateScheduler) Trigger(changes ChangeSet, now time.Time) {
	if len(changes) == 0 {
		return
	}
	u.pending.Merge(changes)
	if u.triggerAt.IsZero() {
		u.triggerAt = now
		if !u.lastTriggered.IsZero() {
			if hold := u.lastTriggered.Add(u.Suppression); hold.After(now) {
				u.triggerAt = hold
			}
		}
	}
}

// Pending reports whether a triggered update is waiting to be sent.
func (u *UpdateScheduler) Pending() bool {
	return len(u.pending) > 0
}

func (u *UpdateScheduler) NextPeriodic() time.Time {
	return u.nextPeriodic
}

// NextDeadline returns the earliest of the periodic update, the pending
// triggered update, the given route expiry and now+MinTick.
func (u *UpdateScheduler) NextDeadline(now time.Time, expiry time.Time, hasExpiry bool) time.Time {
	next := u.nextPeriodic
	if !u.triggerAt.IsZero() && u.triggerAt.Before(next) {
		next = u.triggerAt
	}
	if hasExpiry && expiry.Before(next) {
		next = expiry
	}
	if tick := now.Add(u.MinTick); tick.Before(next) {
		next = tick
	}
	return next
}

// Due returns what must be advertised at now. A full update subsumes any pending triggered update.
func (u *UpdateScheduler) Due(now time.Time) Due {
	if !now.Before(u.nextPeriodic) {
		u.nextPeriodic = now.Add(u.jittered())
		u.pending = make(ChangeSet)
		u.triggerAt = time.Time{}
		return Due{Full: true}
	}
	if !u.triggerAt.IsZero() && !now.Before(u.triggerAt) {
		d := Due{Triggered: u.pending}
		u.pending = make(ChangeSet)
		u.triggerAt = time.Time{}
		u.lastTriggered = now
		return d
	}
	return Due{}
}
