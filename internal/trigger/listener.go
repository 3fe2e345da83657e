package trigger

import (
	"context"
	"fmt"
	"log"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// debounce ignores re-triggers arriving hot on the heels of a previous
// one: several operators or scripts may broadcast the same trigger.
const debounce = 500 * time.Millisecond

// Listener receives broadcast triggers on a UDP port. The socket is
// opened with SO_REUSEPORT so several processes on one machine can all
// hear the same broadcasts.
type Listener struct {
	conn net.PacketConn
}

// Listen opens the trigger socket on port.
func Listen(port uint16) (*Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return sockErr
		},
	}
	conn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen trigger port %d: %w", port, err)
	}
	return &Listener{conn: conn}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Run delivers each received trigger to fn until ctx is cancelled or the
// listener is closed. Malformed datagrams and debounced re-triggers are
// logged and dropped.
func (l *Listener) Run(ctx context.Context, fn func(Trigger)) error {
	go func() {
		<-ctx.Done()
		_ = l.conn.Close()
	}()

	buf := make([]byte, WireSize+1)
	var last time.Time
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		trig, err := Unmarshal(buf[:n])
		if err != nil {
			log.Printf("trigger: %v", err)
			continue
		}
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < debounce {
			log.Printf("trigger: dropping re-trigger %v after the last", now.Sub(last).Round(time.Millisecond))
			last = now
			continue
		}
		last = now
		fn(trig)
	}
}

// Close releases the socket. Run returns after Close.
func (l *Listener) Close() error { return l.conn.Close() }
