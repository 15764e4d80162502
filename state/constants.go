package state

import "time"

const (
	// INF is the metric of an unreachable destination.
	INF = Metric(16)
)

var (
	DefaultUpdateInterval     = time.Second * 30
	DefaultRouteTimeout       = time.Second * 180
	DefaultGarbageCollect     = time.Second * 120
	DefaultTriggerSuppression = time.Second * 2
	DefaultUpdateJitter       = time.Second * 5
	DefaultMinTick            = time.Second * 1

	LocalHost             = "127.0.0.1"
	RecvBufferSize        = 4096
	DispatchQueueSize     = 128
	SlowDispatchThreshold = time.Millisecond * 4
	UnknownSourceLogTTL   = time.Second * 10

	MinPort = Port(1024)
	MaxPort = Port(64000)
)
