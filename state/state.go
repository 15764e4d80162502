package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

type RipModule interface {
	Init(s *State) error
	Cleanup(s *State) error
}

// Timed is implemented by modules that own deadlines. The main loop never
// sleeps past the earliest NextDeadline and calls Tick once it has passed.
type Timed interface {
	NextDeadline(now time.Time) time.Time
	Tick(s *State, now time.Time) error
}

type Phase int32

const (
	Initializing Phase = iota
	Running
	ShuttingDown
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// State access must be done only on the main loop goroutine
type State struct {
	*Env
	Modules map[string]RipModule
	// ModuleOrder preserves initialization order, cleanup runs in reverse.
	ModuleOrder []string
}

// Env can be read from any Goroutine
type Env struct {
	DispatchChannel chan<- func(s *State) error
	RouterCfg
	Context context.Context
	Cancel  context.CancelCauseFunc
	Log     *slog.Logger
	phase   atomic.Int32
}

func (e *Env) Phase() Phase {
	return Phase(e.phase.Load())
}

func (e *Env) SetPhase(p Phase) {
	e.phase.Store(int32(p))
}
