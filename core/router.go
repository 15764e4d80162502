package core

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/encodeous/ripd/perf"
	"github.com/encodeous/ripd/state"
	"github.com/jellydator/ttlcache/v3"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteChanged
	RouteExpired
	RouteDeleted
)

// warn events

const (
	PacketDropped RouterEvent = iota + 1000
	EntryDropped
	UnknownNeighbor
	SendFailed
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteChanged:
		return "RouteChanged"
	case RouteExpired:
		return "RouteExpired"
	case RouteDeleted:
		return "RouteDeleted"
	case PacketDropped:
		return "PacketDropped"
	case EntryDropped:
		return "EntryDropped"
	case UnknownNeighbor:
		return "UnknownNeighbor"
	case SendFailed:
		return "SendFailed"
	default:
		return fmt.Sprintf("RouterEvent(%d)", int(e))
	}
}

// Sender delivers one encoded datagram to a neighbour.
type Sender interface {
	Send(to state.NeighborLink, data []byte) error
}

// Router owns the route table and the update scheduler. All of its methods
// run on the main loop.
type Router struct {
	*state.State
	Table *RouteTable
	Sched *UpdateScheduler
	// Out defaults to the LinkMgr module when nil.
	Out Sender
	// Rng seeds the update jitter, a random source is used when nil.
	Rng *rand.Rand

	unknownSrc *ttlcache.Cache[state.RouterId, state.Port]
}

func (r *Router) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	now := time.Now()
	r.Table = NewRouteTable(s.Id, s.Timers, now)
	r.Sched = NewUpdateScheduler(s.Timers, now, r.Rng)
	r.unknownSrc = ttlcache.New[state.RouterId, state.Port](
		ttlcache.WithTTL[state.RouterId, state.Port](state.UnknownSourceLogTTL),
		ttlcache.WithDisableTouchOnHit[state.RouterId, state.Port](),
	)
	if r.Out == nil {
		r.Out = Get[*LinkMgr](s)
	}

	// announce ourselves so neighbours learn about us before their next periodic update
	if err := r.SendAll(nil); err != nil {
		s.Log.Warn("initial advertisement incomplete", "err", err)
	}
	return nil
}

func (r *Router) Cleanup(s *state.State) error {
	if r.unknownSrc != nil {
		r.unknownSrc.DeleteAll()
	}
	r.State = nil
	return nil
}

func (r *Router) Log(event RouterEvent, desc string, args ...any) {
	level := slog.LevelDebug
	if event >= PacketDropped {
		level = slog.LevelWarn
	}
	r.Env.Log.Log(r.Context, level, fmt.Sprintf("%s %s", event.String(), desc), args...)
}

func (r *Router) NextDeadline(now time.Time) time.Time {
	expiry, ok := r.Table.NextExpiry()
	return r.Sched.NextDeadline(now, expiry, ok)
}

// Tick expires stale routes and sends whatever advertisements are due.
func (r *Router) Tick(s *state.State, now time.Time) error {
	changes, deleted := r.Table.ExpireStaleRoutes(now)
	for _, dest := range changes.Sorted() {
		e, _ := r.Table.Get(dest)
		r.Log(RouteExpired, "route timed out", "dest", dest, "route", e)
	}
	for _, dest := range deleted {
		r.Log(RouteDeleted, "route garbage collected", "dest", dest)
	}
	if len(deleted) > 0 {
		dbgPrintRouteTable(r)
	}
	r.Sched.Trigger(changes, now)
	r.unknownSrc.DeleteExpired()

	due := r.Sched.Due(now)
	if due.Empty() {
		return nil
	}
	if due.Full {
		perf.FullUpdates.Add(1)
		s.Log.Debug("sending periodic update", "next", r.Sched.NextPeriodic().Sub(now))
	} else {
		perf.TriggeredUpdates.Add(1)
		s.Log.Debug("sending triggered update", "changes", due.Triggered.Sorted())
	}
	// failures are per neighbour and have been logged already
	_ = r.SendAll(due.Triggered)
	return nil
}
