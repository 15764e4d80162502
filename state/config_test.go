package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
router_id: 1
input_ports: [6110, 6201, 7345]
neighbors:
  - router_id: 2
    port: 5000
    cost: 1
  - router_id: 6
    port: 5001
    cost: 5
timers:
  update: 10s
  timeout: 60s
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	want := &RouterCfg{
		Id:         1,
		InputPorts: []Port{6110, 6201, 7345},
		Neighbors: []NeighborLink{
			{Id: 2, Port: 5000, Cost: 1},
			{Id: 6, Port: 5001, Cost: 5},
		},
		Timers: TimerCfg{
			Update:             10 * time.Second,
			Timeout:            60 * time.Second,
			GarbageCollect:     DefaultGarbageCollect,
			TriggerSuppression: DefaultTriggerSuppression,
			Jitter:             10 * time.Second / 6,
			MinTick:            DefaultMinTick,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("ParseConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("router_id: 3\ninput_ports: [4000]\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTimers(), cfg.Timers)
	assert.Empty(t, cfg.Neighbors)
}

func TestParseConfigRejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte("router_id: 3\ninput_ports: [4000]\noutputs: []\n"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestParseConfigInvalid(t *testing.T) {
	_, err := ParseConfig([]byte("router_id: 0\ninput_ports: [4000]\n"))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.ErrorContains(t, err, "router_id")
}

func TestConfigRoundTrip(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	again, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r1.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, RouterId(1), cfg.Id)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, IsConfigurationError(err))
}

func TestGetNeighbor(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	n, ok := cfg.GetNeighbor(6)
	assert.True(t, ok)
	assert.Equal(t, NeighborLink{Id: 6, Port: 5001, Cost: 5}, n)
	_, ok = cfg.GetNeighbor(3)
	assert.False(t, ok)
}

func TestGetCtlPath(t *testing.T) {
	cfg := RouterCfg{Id: 7}
	assert.Equal(t, filepath.Join(os.TempDir(), "ripd-7.sock"), cfg.GetCtlPath())
	cfg.CtlPath = "/run/ripd.sock"
	assert.Equal(t, "/run/ripd.sock", cfg.GetCtlPath())
}
