package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/encodeous/ripd/perf"
	"github.com/encodeous/ripd/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the console logger, fanned out to cfg.LogPath if set.
func NewLogger(cfg state.RouterCfg, logLevel slog.Level, console io.Writer) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: fmt.Sprintf("r%d", cfg.Id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer = nopCloser{}
	if cfg.LogPath != "" {
		err := os.MkdirAll(path.Dir(cfg.LogPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// NewState creates the context object owned by the main loop for its entire lifetime.
func NewState(cfg state.RouterCfg, logger *slog.Logger) (*state.State, <-chan func(*state.State) error) {
	ctx, cancel := context.WithCancelCause(context.Background())
	dispatch := make(chan func(*state.State) error, state.DispatchQueueSize)
	s := &state.State{
		Modules: make(map[string]state.RipModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			RouterCfg:       cfg,
			Log:             logger,
		},
	}
	s.SetPhase(state.Initializing)
	return s, dispatch
}

// Start runs the daemon until it receives SIGINT or SIGTERM.
func Start(cfg state.RouterCfg, logLevel slog.Level) error {
	logger, closer, err := NewLogger(cfg, logLevel, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	s, dispatch := NewState(cfg, logger)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			s.Cancel(errors.New("received shutdown signal"))
		case <-s.Context.Done():
		}
	}()

	return Run(s, dispatch)
}

// Run initializes every module, then serves the main loop until the state's context is cancelled.
func Run(s *state.State, dispatch <-chan func(*state.State) error, modules ...state.RipModule) error {
	if len(modules) == 0 {
		modules = DefaultModules(s)
	}
	s.Log.Info("init modules")
	err := initModules(s, modules)
	if err != nil {
		s.Log.Error("startup failed", "err", err)
		s.Cancel(err)
		Stop(s)
		return err
	}
	s.Log.Info("init modules complete")
	s.SetPhase(state.Running)
	s.Log.Info("ripd has been initialized. To gracefully exit, send SIGINT or Ctrl+C.", "id", s.Id)
	return MainLoop(s, dispatch)
}

func DefaultModules(s *state.State) []state.RipModule {
	modules := []state.RipModule{
		&LinkMgr{},
		&Router{},
		&CtlServer{},
	}
	if s.DebugAddr != "" {
		modules = append(modules, &DebugServer{})
	}
	return modules
}

func initModules(s *state.State, modules []state.RipModule) error {
	for _, module := range modules {
		name := reflect.TypeOf(module).String()
		s.Modules[name] = module
		s.ModuleOrder = append(s.ModuleOrder, name)
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func nextDeadline(s *state.State, now time.Time) time.Time {
	next := now.Add(state.DefaultMinTick)
	for _, name := range s.ModuleOrder {
		if t, ok := s.Modules[name].(state.Timed); ok {
			if d := t.NextDeadline(now); d.Before(next) {
				next = d
			}
		}
	}
	return next
}

func tick(s *state.State, now time.Time) error {
	for _, name := range s.ModuleOrder {
		if t, ok := s.Modules[name].(state.Timed); ok {
			if err := t.Tick(s, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	timer := time.NewTimer(time.Until(nextDeadline(s, time.Now())))
	defer timer.Stop()
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatchThreshold {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-timer.C:
			err := tick(s, time.Now())
			if err != nil {
				s.Log.Error("error occurred during tick: ", "error", err)
				s.Cancel(err)
			}
		case <-s.Context.Done():
			goto endLoop
		}
		// the wait bound is recomputed every iteration, go 1.23 timers need no draining
		timer.Reset(time.Until(nextDeadline(s, time.Now())))
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	Stop(s)
	return nil
}

// Stop tears down every module in reverse initialization order. Pending dispatches are discarded.
func Stop(s *state.State) {
	if s.Phase() == state.ShuttingDown {
		return // don't stop twice
	}
	s.SetPhase(state.ShuttingDown)
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	for i := len(s.ModuleOrder) - 1; i >= 0; i-- {
		name := s.ModuleOrder[i]
		err := s.Modules[name].Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", name, "error", err)
		}
	}
	s.Log.Info("stopped")
}

// DebugServer exposes expvar and metrics over http.
type DebugServer struct {
	srv  *http.Server
	done chan struct{}
}

func (d *DebugServer) Init(s *state.State) error {
	d.srv = &http.Server{Addr: s.DebugAddr, Handler: http.DefaultServeMux}
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		err := d.srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Log.Warn("debug server stopped", "addr", s.DebugAddr, "err", err)
		}
	}()
	return nil
}

func (d *DebugServer) Cleanup(s *state.State) error {
	if d.srv == nil {
		return nil
	}
	err := d.srv.Close()
	<-d.done
	return err
}
