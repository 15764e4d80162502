package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/ripd/protocol"
	"github.com/encodeous/ripd/state"
	"github.com/stretchr/testify/require"
)

type HarnessEvent struct {
	To      state.RouterId
	Source  uint16
	Entries []protocol.Entry
}

func (e HarnessEvent) String() string {
	advs := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		advs = append(advs, fmt.Sprintf("%d:%d", entry.RouterId, entry.Metric))
	}
	return fmt.Sprintf("SEND %d [%s]", e.To, strings.Join(advs, " "))
}

// RouterHarness records every datagram the router sends instead of touching sockets.
type RouterHarness struct {
	t       *testing.T
	actions []HarnessEvent
	fail    map[state.RouterId]error
}

func (h *RouterHarness) Send(to state.NeighborLink, data []byte) error {
	if err := h.fail[to.Id]; err != nil {
		return err
	}
	pkt, err := protocol.Decode(data)
	require.NoError(h.t, err)
	require.Zero(h.t, pkt.Dropped)
	for _, e := range pkt.Entries {
		require.Equal(h.t, uint16(to.Port), e.Port)
	}
	h.actions = append(h.actions, HarnessEvent{To: to.Id, Source: pkt.Source, Entries: pkt.Entries})
	return nil
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		out = append(out, action.String())
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

// GetActions returns and clears the recorded sends.
func (h *RouterHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

func link(id state.RouterId, cost state.Metric) state.NeighborLink {
	return state.NeighborLink{Id: id, Port: state.Port(5000 + id), Cost: cost}
}

func testCfg(id state.RouterId, neighbors ...state.NeighborLink) state.RouterCfg {
	return state.RouterCfg{
		Id:         id,
		InputPorts: []state.Port{state.Port(6000 + id)},
		Neighbors:  neighbors,
		Timers:     testTimers,
	}
}

func NewTestRouter(t *testing.T, cfg state.RouterCfg) (*Router, *RouterHarness) {
	s, _ := newTestState(t, cfg)
	return registerRouter(t, s)
}

func newTestState(t *testing.T, cfg state.RouterCfg) (*state.State, <-chan func(*state.State) error) {
	s, dispatch := NewState(cfg, slog.New(slog.DiscardHandler))
	t.Cleanup(func() {
		s.Cancel(context.Canceled)
	})
	return s, dispatch
}

func registerModule(s *state.State, m state.RipModule) {
	name := reflect.TypeOf(m).String()
	s.Modules[name] = m
	s.ModuleOrder = append(s.ModuleOrder, name)
}

func registerRouter(t *testing.T, s *state.State) (*Router, *RouterHarness) {
	h := &RouterHarness{t: t, fail: make(map[state.RouterId]error)}
	r := &Router{Out: h, Rng: rand.New(rand.NewPCG(1, 2))}
	registerModule(s, r)
	require.NoError(t, r.Init(s))
	return r, h
}

func encodePacket(t *testing.T, src uint16, entries ...protocol.Entry) []byte {
	data, dropped, err := protocol.Encode(protocol.Packet{Source: src, Entries: entries})
	require.NoError(t, err)
	require.Zero(t, dropped)
	return data
}

func entry(id uint32, metric uint32) protocol.Entry {
	return protocol.Entry{Port: 6001, RouterId: id, Metric: metric}
}

// afterTrigger is later than any triggered update scheduled by a packet handled just now.
func afterTrigger() time.Time {
	return time.Now().Add(time.Millisecond)
}
