package daemon

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSocketPath(t *testing.T) {
	path, err := SocketPath(30000)
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".config", "morgul", "run", "receiver-30000.sock")
	if path != want {
		t.Errorf("SocketPath = %q, want %q", path, want)
	}
}

func TestWaitForReady(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "receiver.sock")

	// Bring the socket up only after the client has started polling.
	go func() {
		time.Sleep(100 * time.Millisecond)
		ln, err := net.Listen("unix", sockPath)
		if err != nil {
			return
		}
		defer func() { _ = ln.Close() }()
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		var req Request
		_ = json.NewDecoder(conn).Decode(&req)
		_ = json.NewEncoder(conn).Encode(Response{OK: true, State: &Status{PID: 42}})
	}()

	c := &Client{SocketPath: sockPath}
	if err := c.WaitForReady(2 * time.Second); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
}

func TestWaitForReadyTimeout(t *testing.T) {
	c := &Client{SocketPath: filepath.Join(t.TempDir(), "absent.sock")}
	if err := c.WaitForReady(300 * time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}
