package core

import (
	"net"
	"testing"
	"time"

	"github.com/encodeous/ripd/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func freePort(t *testing.T) state.Port {
	conn, err := net.ListenUDP("udp4", localAddr(0))
	require.NoError(t, err)
	defer conn.Close()
	return state.Port(conn.LocalAddr().(*net.UDPAddr).Port)
}

func TestLinkMgrDeliversToRouter(t *testing.T) {
	defer goleak.VerifyNone(t)
	p1, p2 := freePort(t), freePort(t)
	cfg := state.RouterCfg{
		Id:         1,
		InputPorts: []state.Port{p1, p2},
		Neighbors:  []state.NeighborLink{{Id: 2, Port: p2, Cost: 3}},
		Timers:     testTimers,
	}
	s, dispatch := newTestState(t, cfg)
	l := &LinkMgr{}
	registerModule(s, l)
	require.NoError(t, l.Init(s))
	r, _ := registerRouter(t, s)

	// pretend to be router 2 by sending to our own second port
	data := encodePacket(t, 2, entry(9, 4))
	require.NoError(t, l.Send(state.NeighborLink{Id: 2, Port: p2, Cost: 3}, data))

	select {
	case fun := <-dispatch:
		require.NoError(t, fun(s))
	case <-time.After(time.Second):
		t.Fatal("no datagram was dispatched")
	}
	e, ok := r.Table.Get(9)
	require.True(t, ok)
	assert.Equal(t, state.Metric(7), e.Metric)
	assert.Equal(t, state.RouterId(2), e.Nh)

	require.NoError(t, l.Cleanup(s))
}

func TestLinkMgrBindFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	busy, err := net.ListenUDP("udp4", localAddr(0))
	require.NoError(t, err)
	defer busy.Close()
	port := state.Port(busy.LocalAddr().(*net.UDPAddr).Port)

	s, _ := newTestState(t, state.RouterCfg{Id: 1, InputPorts: []state.Port{freePort(t), port}, Timers: testTimers})
	l := &LinkMgr{}
	err = l.Init(s)
	var sockErr *SocketIOError
	require.ErrorAs(t, err, &sockErr)
	assert.Equal(t, port, sockErr.Port)
	assert.Equal(t, "bind", sockErr.Op)
	require.NoError(t, l.Cleanup(s))
}
