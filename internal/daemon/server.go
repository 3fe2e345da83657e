package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"
)

// connDeadline bounds how long a single IPC exchange may take; a stuck
// client must not pin a server goroutine.
const connDeadline = 5 * time.Second

// Handler is implemented by the daemon to respond to IPC requests.
type Handler interface {
	HandleStatus() *Status
	HandleShutdown()
}

// Server listens on a Unix socket and dispatches requests to a Handler.
type Server struct {
	sockPath string
	handler  Handler
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a new IPC server.
func NewServer(sockPath string, handler Handler) *Server {
	return &Server{sockPath: sockPath, handler: handler}
}

// Start begins accepting connections. Non-blocking — runs in background.
func (s *Server) Start() error {
	// A previous daemon may have left a stale socket behind.
	_ = os.Remove(s.sockPath)

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.sockPath, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return // listener closed
			}
			go s.serveConn(conn)
		}
	}()
	return nil
}

// Stop closes the listener and removes the socket file.
func (s *Server) Stop() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.sockPath)
}

func (s *Server) serveConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Now().Add(connDeadline))

	reply := func(resp Response) {
		_ = json.NewEncoder(conn).Encode(resp)
	}

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		reply(Response{Error: "invalid request"})
		return
	}

	switch req.Method {
	case "status":
		reply(Response{OK: true, State: s.handler.HandleStatus()})
	case "shutdown":
		// Acknowledge before triggering shutdown so the client is not
		// racing the socket teardown.
		reply(Response{OK: true})
		s.handler.HandleShutdown()
	default:
		reply(Response{Error: fmt.Sprintf("unknown method: %s", req.Method)})
	}
}
