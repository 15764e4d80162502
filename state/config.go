package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

type TimerCfg struct {
	Update             time.Duration `yaml:"update,omitempty"`              // periodic full advertisement
	Timeout            time.Duration `yaml:"timeout,omitempty"`             // route expiry without refresh
	GarbageCollect     time.Duration `yaml:"garbage_collect,omitempty"`     // removal delay after expiry
	TriggerSuppression time.Duration `yaml:"trigger_suppression,omitempty"` // coalescing window for triggered updates
	Jitter             time.Duration `yaml:"jitter,omitempty"`              // +- random offset on the update interval
	MinTick            time.Duration `yaml:"min_tick,omitempty"`            // upper bound on time between expiry scans
}

func DefaultTimers() TimerCfg {
	return TimerCfg{
		Update:             DefaultUpdateInterval,
		Timeout:            DefaultRouteTimeout,
		GarbageCollect:     DefaultGarbageCollect,
		TriggerSuppression: DefaultTriggerSuppression,
		Jitter:             DefaultUpdateJitter,
		MinTick:            DefaultMinTick,
	}
}

// WithDefaults fills every unset timer from DefaultTimers.
func (t TimerCfg) WithDefaults() TimerCfg {
	def := DefaultTimers()
	if t.Update == 0 {
		t.Update = def.Update
	}
	if t.Timeout == 0 {
		t.Timeout = def.Timeout
	}
	if t.GarbageCollect == 0 {
		t.GarbageCollect = def.GarbageCollect
	}
	if t.TriggerSuppression == 0 {
		t.TriggerSuppression = def.TriggerSuppression
	}
	if t.Jitter == 0 {
		t.Jitter = min(def.Jitter, t.Update/6)
	}
	if t.MinTick == 0 {
		t.MinTick = def.MinTick
	}
	return t
}

// RouterCfg is the static configuration of one router process
type RouterCfg struct {
	Id         RouterId       `yaml:"router_id"`
	InputPorts []Port         `yaml:"input_ports"`
	Neighbors  []NeighborLink `yaml:"neighbors"`
	Timers     TimerCfg       `yaml:"timers,omitempty"`
	LogPath    string         `yaml:"log_path,omitempty"`   // if not empty, logs are also written to this file
	CtlPath    string         `yaml:"ctl_path,omitempty"`   // unix socket used by `ripd inspect`
	DebugAddr  string         `yaml:"debug_addr,omitempty"` // if not empty, expvar metrics are served here
}

func (c *RouterCfg) GetNeighbor(id RouterId) (NeighborLink, bool) {
	for _, n := range c.Neighbors {
		if n.Id == id {
			return n, true
		}
	}
	return NeighborLink{}, false
}

// GetCtlPath returns the control socket path, derived from the router id when unset.
func (c *RouterCfg) GetCtlPath() string {
	if c.CtlPath != "" {
		return c.CtlPath
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("ripd-%d.sock", c.Id))
}

func ParseConfig(data []byte) (*RouterCfg, error) {
	var cfg RouterCfg
	err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict())
	if err != nil {
		return nil, &ConfigurationError{Field: "yaml", Err: err}
	}
	cfg.Timers = cfg.Timers.WithDefaults()
	err = RouterConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads, defaults and validates the configuration at path.
func LoadConfig(path string) (*RouterCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Field: "path", Err: err}
	}
	return ParseConfig(file)
}
