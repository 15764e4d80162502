package core

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/encodeous/ripd/state"
)

// ErrSelfReferential is returned for advertisements of the router's own id. They are ignored.
var ErrSelfReferential = errors.New("self referential route")

// ChangeSet holds the destinations whose metric or next hop changed.
type ChangeSet map[state.RouterId]struct{}

func (c ChangeSet) Add(id state.RouterId) {
	c[id] = struct{}{}
}

func (c ChangeSet) Merge(o ChangeSet) {
	for id := range o {
		c[id] = struct{}{}
	}
}

func (c ChangeSet) Contains(id state.RouterId) bool {
	_, ok := c[id]
	return ok
}

func (c ChangeSet) Sorted() []state.RouterId {
	return slices.Sorted(maps.Keys(c))
}

// AddMetric adds a link cost to a metric, saturating at state.INF.
func AddMetric(a, b state.Metric) state.Metric {
	if a >= state.INF || b >= state.INF {
		return state.INF
	}
	return min(a+b, state.INF)
}

// RouteTable holds the best known route to every destination, including the
// router itself. It performs no I/O, time is always passed in by the caller.
type RouteTable struct {
	Id      state.RouterId
	Routes  map[state.RouterId]state.RouteEntry
	Timeout time.Duration
	Gc      time.Duration
}

func NewRouteTable(id state.RouterId, timers state.TimerCfg, now time.Time) *RouteTable {
	t := &RouteTable{
		Id:      id,
		Routes:  make(map[state.RouterId]state.RouteEntry),
		Timeout: timers.Timeout,
		Gc:      timers.GarbageCollect,
	}
	t.Routes[id] = state.RouteEntry{
		Dest:      id,
		Metric:    0,
		Nh:        id,
		Refreshed: now,
		State:     state.Valid,
	}
	return t
}

func (t *RouteTable) Get(dest state.RouterId) (state.RouteEntry, bool) {
	e, ok := t.Routes[dest]
	return e, ok
}

// ApplyEntry applies the distance-vector relaxation rule for one advertisement
// received from a neighbour, and reports whether the metric or next hop changed.
func (t *RouteTable) ApplyEntry(adv state.Advert, from state.RouterId, cost state.Metric, now time.Time) (bool, error) {
	if adv.Dest == t.Id {
		return false, ErrSelfReferential
	}
	candidate := AddMetric(adv.Metric, cost)
	cur, ok := t.Routes[adv.Dest]
	if !ok {
		if candidate >= state.INF {
			// unreachable routes we never had are not worth learning
			return false, nil
		}
		t.Routes[adv.Dest] = state.RouteEntry{
			Dest:      adv.Dest,
			Metric:    candidate,
			Nh:        from,
			Refreshed: now,
			State:     state.Valid,
		}
		return true, nil
	}

	if cur.Nh == from {
		// the next hop is the authority on routes learned through it, accept even if worse
		changed := cur.Metric != candidate
		cur.Metric = candidate
		cur.Refreshed = now
		if candidate >= state.INF {
			if cur.State == state.Valid {
				cur.State = state.PendingDelete
				cur.GcSince = now
			}
		} else {
			cur.State = state.Valid
			cur.GcSince = time.Time{}
		}
		t.Routes[adv.Dest] = cur
		return changed, nil
	}

	if candidate < cur.Metric {
		t.Routes[adv.Dest] = state.RouteEntry{
			Dest:      adv.Dest,
			Metric:    candidate,
			Nh:        from,
			Refreshed: now,
			State:     state.Valid,
		}
		return true, nil
	}
	return false, nil
}

// Apply applies every advertisement from a neighbour and returns the changed destinations.
func (t *RouteTable) Apply(advs []state.Advert, from state.RouterId, cost state.Metric, now time.Time) ChangeSet {
	changes := make(ChangeSet)
	for _, adv := range advs {
		changed, err := t.ApplyEntry(adv, from, cost, now)
		if err != nil {
			continue
		}
		if changed {
			changes.Add(adv.Dest)
		}
	}
	return changes
}

// EntriesToAdvertise returns the whole table as seen by the neighbour toward.
// Routes learned through toward are poisoned.
func (t *RouteTable) EntriesToAdvertise(toward state.RouterId) []state.Advert {
	return t.AdvertiseTo(toward, nil)
}

// AdvertiseTo is EntriesToAdvertise restricted to only, or the whole table if only is nil.
func (t *RouteTable) AdvertiseTo(toward state.RouterId, only ChangeSet) []state.Advert {
	advs := make([]state.Advert, 0, len(t.Routes))
	for _, dest := range slices.Sorted(maps.Keys(t.Routes)) {
		if only != nil && !only.Contains(dest) {
			continue
		}
		e := t.Routes[dest]
		metric := e.Metric
		if e.Nh == toward && dest != t.Id {
			metric = state.INF
		}
		advs = append(advs, state.Advert{Dest: dest, Metric: metric})
	}
	return advs
}

// ExpireStaleRoutes times out valid routes that have not been refreshed, and
// deletes unreachable routes whose garbage collection interval has passed.
// Expired routes are returned as changes, deleted routes need no advertisement.
func (t *RouteTable) ExpireStaleRoutes(now time.Time) (ChangeSet, []state.RouterId) {
	changes := make(ChangeSet)
	deleted := make([]state.RouterId, 0)
	for dest, e := range t.Routes {
		if dest == t.Id {
			continue
		}
		switch e.State {
		case state.Valid:
			if now.Sub(e.Refreshed) >= t.Timeout {
				e.State = state.Expired
				e.Metric = state.INF
				e.GcSince = now
				t.Routes[dest] = e
				changes.Add(dest)
			}
		case state.Expired, state.PendingDelete:
			if now.Sub(e.GcSince) >= t.Gc {
				delete(t.Routes, dest)
				deleted = append(deleted, dest)
			}
		}
	}
	slices.Sort(deleted)
	return changes, deleted
}

// NextExpiry returns the earliest time at which ExpireStaleRoutes would change the table.
func (t *RouteTable) NextExpiry() (time.Time, bool) {
	var next time.Time
	found := false
	for dest, e := range t.Routes {
		if dest == t.Id {
			continue
		}
		var at time.Time
		if e.State == state.Valid {
			at = e.Refreshed.Add(t.Timeout)
		} else {
			at = e.GcSince.Add(t.Gc)
		}
		if !found || at.Before(next) {
			next = at
			found = true
		}
	}
	return next, found
}

// Snapshot returns every entry sorted by destination.
func (t *RouteTable) Snapshot() []state.RouteEntry {
	out := make([]state.RouteEntry, 0, len(t.Routes))
	for _, dest := range slices.Sorted(maps.Keys(t.Routes)) {
		out = append(out, t.Routes[dest])
	}
	return out
}

func (t *RouteTable) String() string {
	rt := make([]string, 0, len(t.Routes))
	for _, e := range t.Snapshot() {
		rt = append(rt, fmt.Sprintf("%d via %s", e.Dest, e))
	}
	return strings.Join(rt, "\n")
}
