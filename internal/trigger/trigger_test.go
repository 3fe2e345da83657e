package trigger_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/morguldev/morgul/internal/trigger"
)

func TestTriggerRoundTrip(t *testing.T) {
	in := trigger.Trigger{Frames: 2000, ExpTime: 0.001}
	buf := make([]byte, trigger.WireSize)
	if err := in.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	out, err := trigger.Unmarshal(buf)
	if err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestTriggerRejectsWrongSize(t *testing.T) {
	if _, err := trigger.Unmarshal(make([]byte, trigger.WireSize-1)); err == nil {
		t.Error("short datagram accepted")
	}
	if _, err := trigger.Unmarshal(make([]byte, trigger.WireSize+1)); err == nil {
		t.Error("long datagram accepted")
	}
}

func TestListenerReceivesAndDebounces(t *testing.T) {
	l, err := trigger.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = l.Close() }()

	received := make(chan trigger.Trigger, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx, func(tr trigger.Trigger) { received <- tr }) }()

	port := l.Addr().(*net.UDPAddr).Port
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	want := trigger.Trigger{Frames: 10, ExpTime: 0.5}
	if err := trigger.Send(addr, want); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-received:
		if got != want {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never delivered")
	}

	// An immediate re-trigger is debounced.
	if err := trigger.Send(addr, want); err != nil {
		t.Fatal(err)
	}
	select {
	case <-received:
		t.Error("re-trigger within the debounce window was delivered")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestListenerSharesPort(t *testing.T) {
	a, err := trigger.Listen(0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = a.Close() }()

	port := uint16(a.Addr().(*net.UDPAddr).Port)
	b, err := trigger.Listen(port)
	if err != nil {
		t.Fatalf("second listener on shared port: %v", err)
	}
	_ = b.Close()
}
