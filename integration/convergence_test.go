//go:build integration

package integration

import (
	"testing"

	"github.com/encodeous/ripd/state"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLineConvergence(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := newHarness()
	for id := state.RouterId(1); id <= 4; id++ {
		vh.NewNode(id)
	}
	// 1 <-1-> 2 <-2-> 3 <-3-> 4
	vh.AddLink(1, 2, 1)
	vh.AddLink(2, 3, 2)
	vh.AddLink(3, 4, 3)
	vh.Start()
	defer vh.Stop()

	require.Eventually(t, func() bool {
		return vh.HasRoute(1, 4, 2, 6) &&
			vh.HasRoute(4, 1, 3, 6) &&
			vh.HasRoute(2, 4, 3, 5) &&
			vh.HasRoute(3, 1, 2, 3)
	}, waitFor, poll)
}

func TestPrefersCheaperPath(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := newHarness()
	vh.NewNode(1)
	vh.NewNode(2)
	vh.NewNode(3)
	// 1 <-1-> 2 <-1-> 3, 1 <-5-> 3
	vh.AddLink(1, 2, 1)
	vh.AddLink(2, 3, 1)
	vh.AddLink(1, 3, 5)
	vh.Start()
	defer vh.Stop()

	require.Eventually(t, func() bool {
		return vh.HasRoute(1, 3, 2, 2) && vh.HasRoute(3, 1, 2, 2)
	}, waitFor, poll)

	// the route times out and the direct link takes over
	vh.StopNode(2)
	require.Eventually(t, func() bool {
		return vh.HasRoute(1, 3, 3, 5) && vh.HasRoute(3, 1, 1, 5)
	}, waitFor, poll)
}

func TestFailedRouterIsForgotten(t *testing.T) {
	defer goleak.VerifyNone(t)
	vh := newHarness()
	vh.NewNode(1)
	vh.NewNode(2)
	vh.NewNode(3)
	vh.AddLink(1, 2, 1)
	vh.AddLink(2, 3, 1)
	vh.Start()
	defer vh.Stop()

	require.Eventually(t, func() bool {
		return vh.HasRoute(1, 3, 2, 2)
	}, waitFor, poll)

	vh.StopNode(3)
	unreachable := NewSignal()
	require.Eventually(t, func() bool {
		e, ok := vh.Route(1, 3)
		if ok && e.Metric == state.INF {
			unreachable.Trigger()
		}
		// the route must pass through unreachable before it is collected
		return !ok && unreachable.Triggered()
	}, waitFor, poll)
	require.Eventually(t, func() bool {
		_, ok := vh.Route(2, 3)
		return !ok
	}, waitFor, poll)
}
