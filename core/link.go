package core

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/encodeous/ripd/perf"
	"github.com/encodeous/ripd/state"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"
)

// SocketIOError is a failure confined to one socket.
type SocketIOError struct {
	Port state.Port
	Op   string
	Err  error
}

func (e *SocketIOError) Error() string {
	return fmt.Sprintf("%s on port %d: %v", e.Op, e.Port, e.Err)
}

func (e *SocketIOError) Unwrap() error {
	return e.Err
}

// SendTimeout bounds a single datagram write.
var SendTimeout = 100 * time.Millisecond

// LinkMgr owns one UDP socket per input port. Each socket has a reader that
// hands datagrams to the main loop; the first socket is also used for sending.
type LinkMgr struct {
	conns []*net.UDPConn
	ports []state.Port
	out   *ipv4.PacketConn
	group *errgroup.Group
}

func localAddr(port state.Port) *net.UDPAddr {
	return net.UDPAddrFromAddrPort(netip.AddrPortFrom(netip.MustParseAddr(state.LocalHost), uint16(port)))
}

func (l *LinkMgr) Init(s *state.State) error {
	s.Log.Debug("init link manager")
	l.group = &errgroup.Group{}
	for _, port := range s.InputPorts {
		conn, err := net.ListenUDP("udp4", localAddr(port))
		if err != nil {
			l.closeAll()
			return &SocketIOError{Port: port, Op: "bind", Err: err}
		}
		l.conns = append(l.conns, conn)
		l.ports = append(l.ports, port)
		s.Log.Debug("bound input port", "port", port)
	}

	l.out = ipv4.NewPacketConn(l.conns[0])
	// advertisements are only meant for directly connected routers
	if err := l.out.SetTTL(1); err != nil {
		s.Log.Warn("failed to set ttl on output socket", "err", err)
	}

	for i, conn := range l.conns {
		port := l.ports[i]
		l.group.Go(func() error {
			l.readLoop(s.Env, port, conn)
			return nil
		})
	}
	return nil
}

func (l *LinkMgr) readLoop(e *state.Env, port state.Port, conn *net.UDPConn) {
	buf := make([]byte, state.RecvBufferSize)
	for {
		n, _, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || e.Context.Err() != nil {
				return
			}
			e.Log.Error("input socket failed, traffic on this port is lost until restart",
				"err", &SocketIOError{Port: port, Op: "read", Err: err})
			return
		}
		perf.RecvPackets.Add(1)
		perf.RecvBytes.Add(float64(n))
		data := slices.Clone(buf[:n])
		e.Dispatch(func(s *state.State) error {
			return Get[*Router](s).HandlePacket(s, data, port)
		})
	}
}

func (l *LinkMgr) Send(to state.NeighborLink, data []byte) error {
	err := l.out.SetWriteDeadline(time.Now().Add(SendTimeout))
	if err != nil {
		return &SocketIOError{Port: l.ports[0], Op: "send", Err: err}
	}
	_, err = l.out.WriteTo(data, nil, localAddr(to.Port))
	if err != nil {
		return &SocketIOError{Port: l.ports[0], Op: "send", Err: err}
	}
	perf.SentBytes.Add(float64(len(data)))
	return nil
}

func (l *LinkMgr) closeAll() {
	for i, conn := range l.conns {
		_ = conn.Close()
		l.conns[i] = nil
	}
	l.conns = nil
}

func (l *LinkMgr) Cleanup(s *state.State) error {
	l.closeAll()
	if l.group != nil {
		return l.group.Wait()
	}
	return nil
}
