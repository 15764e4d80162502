package state

import (
	"fmt"
	"time"

	"github.com/encodeous/ripd/protocol"
)

type RouterId uint16

func (r RouterId) Valid() bool {
	return protocol.IsValidRouterId(r)
}

type Metric uint32

func (m Metric) Valid() bool {
	return protocol.IsValidMetric(m)
}

type Port uint16

// NeighborLink describes a statically configured link to a directly connected router.
type NeighborLink struct {
	Id   RouterId `yaml:"router_id"`
	Port Port     `yaml:"port"` // input port of the neighbour, advertisements are sent here
	Cost Metric   `yaml:"cost"`
}

func (n NeighborLink) String() string {
	return fmt.Sprintf("%d (port: %d, cost: %d)", n.Id, n.Port, n.Cost)
}

type RouteState int

const (
	Valid RouteState = iota
	// Expired routes timed out without refresh and are advertised as unreachable until collected.
	Expired
	// PendingDelete routes were retracted by their next hop and are advertised as unreachable until collected.
	PendingDelete
)

func (s RouteState) String() string {
	switch s {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case PendingDelete:
		return "pending-delete"
	default:
		return fmt.Sprintf("RouteState(%d)", int(s))
	}
}

type RouteEntry struct {
	Dest      RouterId
	Metric    Metric
	Nh        RouterId // next hop router
	Refreshed time.Time
	State     RouteState
	// GcSince is when the entry left the Valid state. Zero for valid entries.
	GcSince time.Time
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("(nh: %d, metric: %d, state: %s)", e.Nh, e.Metric, e.State)
}

// Advert is a (destination, metric) pair as exchanged between neighbours.
type Advert struct {
	Dest   RouterId
	Metric Metric
}

func (a Advert) String() string {
	return fmt.Sprintf("%d:%d", a.Dest, a.Metric)
}
