//go:build integration

package integration

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"

	"github.com/encodeous/ripd/core"
	"github.com/encodeous/ripd/state"
)

type Signal chan bool

func NewSignal() Signal {
	return make(chan bool)
}
func (s Signal) Trigger() {
	select {
	case <-s:
	default:
		close(s)
	}
}
func (s Signal) Triggered() bool {
	select {
	case <-s:
		return true
	default:
		return false
	}
}
func (s Signal) Wait() {
	<-s
}

// LocalHarness runs several routers in this process, talking over loopback UDP.
type LocalHarness struct {
	Cfgs     []state.RouterCfg
	States   []*state.State
	Timers   state.TimerCfg
	LogLevel slog.Level
	done     []chan struct{}
}

func freePort() state.Port {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	return state.Port(conn.LocalAddr().(*net.UDPAddr).Port)
}

func (h *LocalHarness) IndexOf(id state.RouterId) int {
	return slices.IndexFunc(h.Cfgs, func(cfg state.RouterCfg) bool {
		return cfg.Id == id
	})
}

func (h *LocalHarness) NewNode(id state.RouterId) {
	port := freePort()
	h.Cfgs = append(h.Cfgs, state.RouterCfg{
		Id:         id,
		InputPorts: []state.Port{port},
		Timers:     h.Timers,
		CtlPath:    filepath.Join(os.TempDir(), fmt.Sprintf("ripd-it-%d-%d-%d.sock", os.Getpid(), port, id)),
	})
}

// AddDirected makes from send its advertisements to to. to does not learn about from.
func (h *LocalHarness) AddDirected(from, to state.RouterId, cost state.Metric) {
	fi, ti := h.IndexOf(from), h.IndexOf(to)
	h.Cfgs[fi].Neighbors = append(h.Cfgs[fi].Neighbors, state.NeighborLink{
		Id:   to,
		Port: h.Cfgs[ti].InputPorts[0],
		Cost: cost,
	})
}

func (h *LocalHarness) AddLink(a, b state.RouterId, cost state.Metric) {
	h.AddDirected(a, b, cost)
	h.AddDirected(b, a, cost)
}

func (h *LocalHarness) Start() chan error {
	errs := make(chan error, len(h.Cfgs))
	h.States = make([]*state.State, len(h.Cfgs))
	h.done = make([]chan struct{}, len(h.Cfgs))
	for idx, cfg := range h.Cfgs {
		logger, _, err := core.NewLogger(cfg, h.LogLevel, os.Stderr)
		if err != nil {
			panic(err)
		}
		s, dispatch := core.NewState(cfg, logger)
		h.States[idx] = s
		done := make(chan struct{})
		h.done[idx] = done
		go func() {
			defer close(done)
			if err := core.Run(s, dispatch); err != nil {
				errs <- fmt.Errorf("router %d: %w", cfg.Id, err)
			}
		}()
	}
	return errs
}

// StopNode shuts one router down and waits for it to exit.
func (h *LocalHarness) StopNode(id state.RouterId) {
	idx := h.IndexOf(id)
	h.States[idx].Cancel(errors.New("stopped by harness"))
	<-h.done[idx]
}

func (h *LocalHarness) Stop() {
	for _, s := range h.States {
		s.Cancel(errors.New("harness stopped"))
	}
	for _, done := range h.done {
		<-done
	}
}

// Route reads a route table entry from the main loop of router id.
func (h *LocalHarness) Route(id, dest state.RouterId) (state.RouteEntry, bool) {
	s := h.States[h.IndexOf(id)]
	res, err := s.DispatchWait(func(s *state.State) (any, error) {
		e, ok := core.Get[*core.Router](s).Table.Get(dest)
		return state.Pair[state.RouteEntry, bool]{V1: e, V2: ok}, nil
	})
	if err != nil {
		return state.RouteEntry{}, false
	}
	p := res.(state.Pair[state.RouteEntry, bool])
	return p.V1, p.V2
}

// HasRoute reports whether id currently reaches dest with the given metric through nh.
func (h *LocalHarness) HasRoute(id, dest, nh state.RouterId, metric state.Metric) bool {
	e, ok := h.Route(id, dest)
	return ok && e.State == state.Valid && e.Nh == nh && e.Metric == metric
}

func (h *LocalHarness) Inspect(id state.RouterId) (string, error) {
	return core.IPCGet(h.Cfgs[h.IndexOf(id)].CtlPath)
}
