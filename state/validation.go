package state

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func cfgErr(field string, format string, args ...any) error {
	return &ConfigurationError{Field: field, Err: fmt.Errorf(format, args...)}
}

func PortValidator(p Port) error {
	if p < MinPort || p > MaxPort {
		return fmt.Errorf("port %d is outside %d-%d", p, MinPort, MaxPort)
	}
	return nil
}

func TimerValidator(t TimerCfg) error {
	periods := map[string]time.Duration{
		"update":              t.Update,
		"timeout":             t.Timeout,
		"garbage_collect":     t.GarbageCollect,
		"trigger_suppression": t.TriggerSuppression,
		"min_tick":            t.MinTick,
	}
	for name, d := range periods {
		if d < time.Millisecond {
			return cfgErr("timers."+name, "%s must be at least 1ms", d)
		}
	}
	if t.Jitter < 0 || t.Jitter >= t.Update {
		return cfgErr("timers.jitter", "jitter %s must be in [0, %s)", t.Jitter, t.Update)
	}
	if t.Timeout <= t.Update {
		return cfgErr("timers.timeout", "timeout %s must exceed the update interval %s", t.Timeout, t.Update)
	}
	return nil
}

func RouterConfigValidator(cfg *RouterCfg) error {
	if !cfg.Id.Valid() {
		return cfgErr("router_id", "%d is not a valid router id", cfg.Id)
	}
	if len(cfg.InputPorts) == 0 {
		return cfgErr("input_ports", "at least one input port is required")
	}
	seen := make([]Port, 0, len(cfg.InputPorts))
	for _, p := range cfg.InputPorts {
		if err := PortValidator(p); err != nil {
			return &ConfigurationError{Field: "input_ports", Err: err}
		}
		if slices.Contains(seen, p) {
			return cfgErr("input_ports", "duplicate input port %d", p)
		}
		seen = append(seen, p)
	}
	ids := make([]RouterId, 0, len(cfg.Neighbors))
	for _, n := range cfg.Neighbors {
		field := fmt.Sprintf("neighbors[%d]", n.Id)
		if !n.Id.Valid() {
			return cfgErr(field, "%d is not a valid router id", n.Id)
		}
		if n.Id == cfg.Id {
			return cfgErr(field, "a router cannot be its own neighbour")
		}
		if slices.Contains(ids, n.Id) {
			return cfgErr(field, "duplicate neighbour")
		}
		ids = append(ids, n.Id)
		if err := PortValidator(n.Port); err != nil {
			return &ConfigurationError{Field: field, Err: err}
		}
		if slices.Contains(cfg.InputPorts, n.Port) {
			return cfgErr(field, "port %d is also an input port", n.Port)
		}
		if !n.Cost.Valid() {
			return cfgErr(field, "cost %d must be in 1-%d", n.Cost, INF)
		}
	}
	return TimerValidator(cfg.Timers)
}

// IsConfigurationError reports whether err was caused by invalid configuration.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
