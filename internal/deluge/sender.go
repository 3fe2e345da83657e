package deluge

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/morguldev/morgul/internal/packet"
	"github.com/morguldev/morgul/internal/trigger"
)

// sender owns one bound UDP socket and produces one stream of frames per
// trigger.
type sender struct {
	conn *net.UDPConn
	port uint16
}

func newSender(st stream) (*sender, error) {
	laddr := &net.UDPAddr{IP: st.source.AsSlice()}
	raddr := &net.UDPAddr{IP: st.target.AsSlice(), Port: int(st.port)}
	conn, err := net.DialUDP("udp4", laddr, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial %s -> %s:%d: %w", st.source, st.target, st.port, err)
	}
	return &sender{conn: conn, port: st.port}, nil
}

// run sends one acquisition per received trigger, signalling done after
// each. Frame production is paced so frame i is not sent before
// i*ExpTime has elapsed since the trigger.
func (s *sender) run(ctx context.Context, triggers <-chan trigger.Trigger, done chan<- struct{}) {
	defer func() { _ = s.conn.Close() }()

	buf := make([]byte, packet.PacketSize)
	var hdr packet.Header

	for {
		var trig trigger.Trigger
		select {
		case <-ctx.Done():
			return
		case trig = <-triggers:
		}

		log.Printf("deluge %d: starting %d images at %.0f Hz", s.port, trig.Frames, 1/trig.ExpTime)
		hdr.ExposureLength = uint32(float64(trig.ExpTime) * 1e7) // 100ns units
		start := time.Now()

		for img := uint64(0); img < trig.Frames; img++ {
			if wait := time.Duration(float64(img)*float64(trig.ExpTime)*float64(time.Second)) - time.Since(start); wait > 0 {
				time.Sleep(wait)
			}
			hdr.Timestamp = uint64(time.Since(start) / 100)
			for p := uint32(0); p < packet.PacketsPerFrame; p++ {
				hdr.PacketNumber = p
				if err := hdr.Marshal(buf); err != nil {
					log.Printf("deluge %d: %v", s.port, err)
					return
				}
				if _, err := s.conn.Write(buf); err != nil {
					log.Printf("deluge %d: send: %v", s.port, err)
					break
				}
			}
			hdr.FrameNumber++
		}

		log.Printf("deluge %d: sent %d images", s.port, trig.Frames)
		select {
		case done <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}
