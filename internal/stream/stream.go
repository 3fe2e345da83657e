// Package stream publishes assembled detector frames over ZeroMQ.
//
// Each frame goes out as a two-part PUB message: a JSON header describing
// the frame, then the raw pixel payload. Downstream processing pipelines
// subscribe with a plain SUB socket.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// FrameHeader is the JSON part of a published frame message.
type FrameHeader struct {
	FrameNumber uint64    `json:"frameNumber"`
	AcqIndex    uint64    `json:"acqIndex"`
	Timestamp   uint64    `json:"timestamp"`
	BunchID     uint64    `json:"bunchId"`
	ModuleID    uint16    `json:"moduleId"`
	Row         uint16    `json:"row"`
	Column      uint16    `json:"column"`
	Shape       [2]uint32 `json:"shape"`
	BitDepth    uint32    `json:"bitmode"`
	Size        int       `json:"size"`
	Complete    bool      `json:"completeImage"`
}

// Publisher owns one PUB socket bound to a fixed endpoint.
type Publisher struct {
	endpoint string
	sock     zmq4.Socket
}

// NewPublisher binds a PUB socket to endpoint (e.g. "tcp://*:30101").
func NewPublisher(ctx context.Context, endpoint string) (*Publisher, error) {
	sock := zmq4.NewPub(ctx)
	if err := sock.Listen(endpoint); err != nil {
		return nil, fmt.Errorf("bind frame stream %s: %w", endpoint, err)
	}
	return &Publisher{endpoint: endpoint, sock: sock}, nil
}

// Endpoint returns the bound endpoint.
func (p *Publisher) Endpoint() string { return p.endpoint }

// Publish sends one frame. data is copied before the send, so callers may
// hand over borrowed buffers.
func (p *Publisher) Publish(hdr FrameHeader, data []byte) error {
	js, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("marshal frame header: %w", err)
	}
	payload := make([]byte, len(data))
	copy(payload, data)
	if err := p.sock.Send(zmq4.NewMsgFrom(js, payload)); err != nil {
		return fmt.Errorf("publish frame %d: %w", hdr.FrameNumber, err)
	}
	return nil
}

// Close shuts the PUB socket down.
func (p *Publisher) Close() error { return p.sock.Close() }
