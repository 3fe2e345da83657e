package stream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/morguldev/morgul/internal/stream"
)

// freePort grabs a port the kernel considers free right now.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	_ = l.Close()
	return port
}

func TestPublisherDeliversFrameToSubscriber(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	endpoint := fmt.Sprintf("tcp://127.0.0.1:%d", freePort(t))
	pub, err := stream.NewPublisher(ctx, endpoint)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = pub.Close() }()

	sub := zmq4.NewSub(ctx)
	defer func() { _ = sub.Close() }()
	if err := sub.Dial(endpoint); err != nil {
		t.Fatal(err)
	}
	if err := sub.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		t.Fatal(err)
	}

	hdr := stream.FrameHeader{
		FrameNumber: 17,
		AcqIndex:    2,
		Shape:       [2]uint32{1024, 256},
		BitDepth:    16,
		Size:        4,
		Complete:    true,
	}
	data := []byte{1, 2, 3, 4}

	// PUB drops messages sent before the subscriber has joined, so keep
	// publishing until one arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = pub.Publish(hdr, data)
			}
		}
	}()

	msgCh := make(chan zmq4.Msg, 1)
	go func() {
		if msg, err := sub.Recv(); err == nil {
			msgCh <- msg
		}
	}()

	select {
	case msg := <-msgCh:
		if len(msg.Frames) != 2 {
			t.Fatalf("message has %d parts, want 2", len(msg.Frames))
		}
		var got stream.FrameHeader
		if err := json.Unmarshal(msg.Frames[0], &got); err != nil {
			t.Fatalf("header part is not JSON: %v", err)
		}
		if got != hdr {
			t.Errorf("header = %+v, want %+v", got, hdr)
		}
		if string(msg.Frames[1]) != string(data) {
			t.Errorf("payload = %v, want %v", msg.Frames[1], data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber never received a frame")
	}
}

func TestPublishCopiesBorrowedData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	endpoint := fmt.Sprintf("tcp://127.0.0.1:%d", freePort(t))
	pub, err := stream.NewPublisher(ctx, endpoint)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = pub.Close() }()

	data := []byte{9, 9, 9}
	if err := pub.Publish(stream.FrameHeader{Size: 3}, data); err != nil {
		t.Fatal(err)
	}
	// Mutating the caller's buffer after Publish must be safe.
	data[0] = 0
}
