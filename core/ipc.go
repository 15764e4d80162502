package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/encodeous/ripd/state"
	"golang.org/x/sync/errgroup"
)

var IPCTimeout = 5 * time.Second

// CtlServer answers `ripd inspect` over a unix socket.
type CtlServer struct {
	path  string
	ln    net.Listener
	group *errgroup.Group
}

func (c *CtlServer) Init(s *state.State) error {
	c.path = s.GetCtlPath()
	c.group = &errgroup.Group{}
	// a previous instance may have left its socket behind
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		s.Log.Warn("failed to remove stale control socket", "path", c.path, "err", err)
	}
	ln, err := net.Listen("unix", c.path)
	if err != nil {
		s.Log.Warn("control socket unavailable, inspect is disabled", "path", c.path, "err", err)
		return nil
	}
	c.ln = ln
	s.Log.Debug("listening on control socket", "path", c.path)
	c.group.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			c.group.Go(func() error {
				defer conn.Close()
				if err := handleIPC(s.Env, conn); err != nil {
					s.Log.Debug("control request failed", "err", err)
				}
				return nil
			})
		}
	})
	return nil
}

func (c *CtlServer) Cleanup(s *state.State) error {
	if c.ln == nil {
		return nil
	}
	_ = c.ln.Close()
	err := c.group.Wait()
	_ = os.Remove(c.path)
	return err
}

func handleIPC(e *state.Env, conn net.Conn) error {
	err := conn.SetDeadline(time.Now().Add(IPCTimeout))
	if err != nil {
		return err
	}
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	cmd, err := rw.ReadString('\n')
	if err != nil {
		return err
	}
	switch cmd {
	case "inspect\n":
		res, err := e.DispatchWait(func(s *state.State) (any, error) {
			return Inspect(s), nil
		})
		if err != nil {
			return err
		}
		_, err = rw.WriteString(res.(string))
		if err != nil {
			return err
		}
		err = rw.WriteByte(0)
		if err != nil {
			return err
		}
	default:
		_, _ = rw.WriteString(fmt.Sprintf("unknown command %q\x00", strings.TrimSpace(cmd)))
		_ = rw.Flush()
		return fmt.Errorf("unknown command %s", cmd)
	}
	return rw.Flush()
}

// IPCGet asks the daemon listening on path to describe its state.
func IPCGet(path string) (string, error) {
	conn, err := net.DialTimeout("unix", path, IPCTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	err = conn.SetDeadline(time.Now().Add(IPCTimeout))
	if err != nil {
		return "", err
	}
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	_, err = rw.WriteString("inspect\n")
	if err != nil {
		return "", err
	}
	err = rw.Flush()
	if err != nil {
		return "", err
	}
	res, err := rw.ReadString(0)
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSuffix(res, "\x00"), nil
}

// Inspect renders the neighbours and the route table.
func Inspect(s *state.State) string {
	r := Get[*Router](s)
	now := time.Now()
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("Router %d (%s)\n", s.Id, s.Phase()))

	sb.WriteString("\nNeighbours:\n")
	if len(s.Neighbors) == 0 {
		sb.WriteString("    (none)\n")
	}
	for _, n := range s.Neighbors {
		sb.WriteString(fmt.Sprintf(" - %s\n", n))
	}

	sb.WriteString("\nRoute Table:\n")
	sb.WriteString(fmt.Sprintf(" %-8s %-7s %-9s %-15s %s\n", "dest", "metric", "next hop", "state", "age"))
	for _, e := range r.Table.Snapshot() {
		age := "-"
		if e.Dest != s.Id {
			age = fmt.Sprintf("%.1fs", now.Sub(e.Refreshed).Seconds())
		}
		sb.WriteString(fmt.Sprintf(" %-8d %-7d %-9d %-15s %s\n", e.Dest, e.Metric, e.Nh, e.State, age))
	}

	sb.WriteString(fmt.Sprintf("\nNext periodic update in %.1fs\n", r.Sched.NextPeriodic().Sub(now).Seconds()))
	return sb.String()
}
