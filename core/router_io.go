package core

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/encodeous/ripd/perf"
	"github.com/encodeous/ripd/protocol"
	"github.com/encodeous/ripd/state"
	"github.com/jellydator/ttlcache/v3"
)

// MaxEntriesPerPacket bounds the size of a single advertisement datagram.
var MaxEntriesPerPacket = 25

// HandlePacket decodes one datagram and applies it to the route table.
// Failures are local to the packet and are never returned to the main loop.
func (r *Router) HandlePacket(s *state.State, data []byte, port state.Port) error {
	pkt, err := protocol.Decode(data)
	if err != nil {
		perf.DroppedPackets.Add(1)
		r.Log(PacketDropped, "discarded packet", "port", port, "len", len(data), "err", err)
		return nil
	}
	if pkt.Dropped > 0 {
		perf.DroppedEntries.Add(float64(pkt.Dropped))
		r.Log(EntryDropped, "dropped invalid entries", "from", pkt.Source, "count", pkt.Dropped)
	}

	from := state.RouterId(pkt.Source)
	neigh, ok := s.GetNeighbor(from)
	if !ok {
		r.warnUnknown(from, port)
		return nil
	}

	// the header itself tells us the neighbour is reachable
	advs := make([]state.Advert, 0, len(pkt.Entries)+1)
	advs = append(advs, state.Advert{Dest: from, Metric: 0})
	for _, e := range pkt.Entries {
		advs = append(advs, state.Advert{
			Dest:   state.RouterId(e.RouterId),
			Metric: state.Metric(e.Metric),
		})
	}

	r.ApplyAdverts(advs, neigh, time.Now())
	return nil
}

// ApplyAdverts applies advertisements received from neigh and schedules a triggered update for any change.
func (r *Router) ApplyAdverts(advs []state.Advert, neigh state.NeighborLink, now time.Time) ChangeSet {
	known := make(map[state.RouterId]bool, len(advs))
	for _, adv := range advs {
		_, known[adv.Dest] = r.Table.Get(adv.Dest)
	}
	changes := r.Table.Apply(advs, neigh.Id, neigh.Cost, now)
	if len(changes) == 0 {
		return changes
	}
	for _, dest := range changes.Sorted() {
		e, _ := r.Table.Get(dest)
		if known[dest] {
			r.Log(RouteChanged, "route changed", "dest", dest, "route", e)
		} else {
			r.Log(RouteAdded, "route added", "dest", dest, "route", e)
		}
	}
	r.Sched.Trigger(changes, now)
	dbgPrintRouteTable(r)
	return changes
}

func (r *Router) warnUnknown(from state.RouterId, port state.Port) {
	perf.DroppedPackets.Add(1)
	if r.unknownSrc.Has(from) {
		return
	}
	r.unknownSrc.Set(from, port, ttlcache.DefaultTTL)
	r.Log(UnknownNeighbor, "received packet from unknown router", "from", from, "port", port)
}

// EncodeAdverts packs advertisements destined to neigh into datagrams of at
// most MaxEntriesPerPacket entries. Our own entry is carried by the header.
func (r *Router) EncodeAdverts(neigh state.NeighborLink, advs []state.Advert) ([][]byte, error) {
	out := make([][]byte, 0, 1)
	b, err := protocol.NewBuilder(uint16(r.Id))
	if err != nil {
		return nil, err
	}
	empty := b
	for _, adv := range advs {
		if adv.Dest == r.Id {
			continue
		}
		b, err = b.Add(protocol.Entry{
			Port:     uint16(neigh.Port),
			RouterId: uint32(adv.Dest),
			Metric:   uint32(adv.Metric),
		})
		if err != nil {
			perf.DroppedEntries.Add(1)
			r.Log(EntryDropped, "omitted entry from advertisement", "to", neigh.Id, "adv", adv, "err", err)
			continue
		}
		if b.Len() == MaxEntriesPerPacket {
			data, err := b.Bytes()
			if err != nil {
				return nil, err
			}
			out = append(out, data)
			b = empty
		}
	}
	if b.Len() > 0 || len(out) == 0 {
		data, err := b.Bytes()
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// SendAll advertises to every neighbour, either the full table (only == nil)
// or just the destinations in only. A failure toward one neighbour does not
// stop delivery to the others; all failures are returned joined.
func (r *Router) SendAll(only ChangeSet) error {
	var errs []error
	for _, neigh := range r.Neighbors {
		advs := r.Table.AdvertiseTo(neigh.Id, only)
		if only != nil && len(advs) == 0 {
			continue
		}
		dgrams, err := r.EncodeAdverts(neigh, advs)
		if err != nil {
			errs = append(errs, fmt.Errorf("neighbour %d: %w", neigh.Id, err))
			continue
		}
		for _, data := range dgrams {
			if err := r.Out.Send(neigh, data); err != nil {
				perf.SendFailures.Add(1)
				r.Log(SendFailed, "failed to send advertisement", "to", neigh.Id, "port", neigh.Port, "err", err)
				errs = append(errs, fmt.Errorf("neighbour %d: %w", neigh.Id, err))
				break
			}
			perf.SentPackets.Add(1)
		}
	}
	return errors.Join(errs...)
}

func dbgPrintRouteTable(r *Router) {
	if !r.Env.Log.Enabled(r.Context, slog.LevelDebug) {
		return
	}
	r.Env.Log.Debug("route table:\n" + r.Table.String())
}
