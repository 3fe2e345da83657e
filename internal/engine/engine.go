// Package engine is an in-process SLS-compatible detector receiver: it
// listens for detector UDP packets on one port, reassembles module frames,
// and reports acquisition lifecycle events through the sls hook surface.
package engine

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/morguldev/morgul/internal/packet"
	"github.com/morguldev/morgul/internal/sls"
)

// libraryVersion is reported by Version, matching the vendor receiver's
// version accessor contract (non-empty, port-independent).
const libraryVersion = "morgul-engine 1.0.0"

const (
	defaultIdleTimeout = 500 * time.Millisecond
	defaultRecvBuffer  = 64 << 20
	frameBufferCount   = 10
)

// Config configures an Engine. Zero values take defaults matching a
// single Jungfrau module in 16-bit readout.
type Config struct {
	// Port is the UDP port to listen on.
	Port uint16
	// DynamicRange in bits per pixel. Default 16.
	DynamicRange uint32
	// Shape of the detector in pixels. Default 1024x256 (one module).
	Shape sls.Shape
	// IdleTimeout without packets mid-acquisition before the acquisition
	// is considered over. Default 500ms.
	IdleTimeout time.Duration
	// RecvBuffer is the requested kernel receive buffer size in bytes.
	RecvBuffer int
	// FilePath and FileName are carried verbatim into hook headers.
	FilePath string
	FileName string
}

func (c *Config) applyDefaults() {
	if c.DynamicRange == 0 {
		c.DynamicRange = 16
	}
	if c.Shape == (sls.Shape{}) {
		c.Shape = sls.Shape{X: packet.ModuleWidth, Y: packet.ModuleHeight}
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.RecvBuffer == 0 {
		c.RecvBuffer = defaultRecvBuffer
	}
}

// Engine listens on one UDP port and fires sls hooks. It implements
// sls.Receiver.
type Engine struct {
	cfg  Config
	conn *net.UDPConn

	mu       sync.Mutex
	startFn  sls.StartHookFunc
	startCtx sls.Context
	endFn    sls.EndHookFunc
	endCtx   sls.Context
	dataFn   sls.DataHookFunc
	dataCtx  sls.Context

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

var _ sls.Receiver = (*Engine)(nil)

// New binds the UDP port and starts listening. Bind failures are returned
// to the caller.
func New(cfg Config) (*Engine, error) {
	cfg.applyDefaults()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(cfg.Port)})
	if err != nil {
		return nil, fmt.Errorf("listen udp port %d: %w", cfg.Port, err)
	}
	if err := conn.SetReadBuffer(cfg.RecvBuffer); err != nil {
		// Kernel may clamp or refuse; acquisition still works, just with
		// a higher drop risk under burst load.
		log.Printf("engine: set receive buffer to %d: %v", cfg.RecvBuffer, err)
	}

	e := &Engine{cfg: cfg, conn: conn}
	e.wg.Add(1)
	go e.run()
	return e, nil
}

// Port returns the bound UDP port. Useful when cfg.Port was 0.
func (e *Engine) Port() uint16 {
	return uint16(e.conn.LocalAddr().(*net.UDPAddr).Port)
}

// Version implements sls.Receiver.
func (e *Engine) Version() string { return libraryVersion }

// RegisterStartHook implements sls.Receiver.
func (e *Engine) RegisterStartHook(fn sls.StartHookFunc, ctx sls.Context) {
	e.mu.Lock()
	e.startFn, e.startCtx = fn, ctx
	e.mu.Unlock()
}

// RegisterEndHook implements sls.Receiver.
func (e *Engine) RegisterEndHook(fn sls.EndHookFunc, ctx sls.Context) {
	e.mu.Lock()
	e.endFn, e.endCtx = fn, ctx
	e.mu.Unlock()
}

// RegisterDataHook implements sls.Receiver.
func (e *Engine) RegisterDataHook(fn sls.DataHookFunc, ctx sls.Context) {
	e.mu.Lock()
	e.dataFn, e.dataCtx = fn, ctx
	e.mu.Unlock()
}

// Close stops the listener and waits for the listen loop to drain, so no
// hook fires after Close returns.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closeErr = e.conn.Close()
		e.wg.Wait()
	})
	return e.closeErr
}

func (e *Engine) run() {
	defer e.wg.Done()

	buf := make([]byte, packet.PacketSize)
	asm := NewAssembler(frameBufferCount)
	var hdr packet.Header

	port := e.Port()
	acqIndex := uint64(0)
	inAcq := false
	aborted := false

	for {
		n, err := e.conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Idle mid-acquisition: the acquisition is over.
				if missing := asm.Flush(); missing > 0 {
					log.Printf("engine %d: lost packets: final image missed %d packets", port, missing)
				}
				log.Printf("engine %d: end of acquisition %d: seen %d images, %d complete, %d packets dropped",
					port, acqIndex, asm.FramesSeen, asm.CompleteFrames, asm.PacketsDropped)
				e.fireEnd(port, acqIndex, asm)
				asm.Reset()
				inAcq = false
				aborted = false
				_ = e.conn.SetReadDeadline(time.Time{})
				continue
			}
			return // socket closed
		}
		// Any wait from here on is mid-acquisition; bound it so a stalled
		// detector closes the acquisition.
		_ = e.conn.SetReadDeadline(time.Now().Add(e.cfg.IdleTimeout))

		if n != packet.PacketSize {
			log.Printf("engine %d: dropping datagram of %d bytes (want %d)", port, n, packet.PacketSize)
			continue
		}
		if err := hdr.Unmarshal(buf); err != nil {
			log.Printf("engine %d: %v", port, err)
			continue
		}
		if hdr.PacketNumber >= packet.PacketsPerFrame {
			log.Printf("engine %d: dropping packet %d of frame %d: packet number out of range",
				port, hdr.PacketNumber, hdr.FrameNumber)
			continue
		}

		if !inAcq {
			inAcq = true
			acqIndex++
			log.Printf("engine %d: new acquisition %d started with frame number %d", port, acqIndex, hdr.FrameNumber)
			if status := e.fireStart(port, acqIndex); status < 0 {
				log.Printf("engine %d: acquisition %d aborted by start callback (status %d)", port, acqIndex, status)
				aborted = true
			}
		}
		if aborted {
			continue // drain without assembling until idle
		}

		res := asm.Feed(&hdr, buf[packet.HeaderSize:n])
		if res.OutOfOrder {
			log.Printf("engine %d: warning: received out-of-order packets for image %d after closing",
				port, hdr.FrameNumber)
		}
		if res.Abandoned > 0 {
			log.Printf("engine %d: lost packets: image missed %d packets before frame %d",
				port, res.Abandoned, hdr.FrameNumber)
		}
		if res.Completed != nil {
			e.fireData(port, acqIndex, asm, res.Completed)
			asm.Release(res.Completed)
		}
	}
}

func (e *Engine) imageSize() int {
	return int(e.cfg.Shape.X) * int(e.cfg.Shape.Y) * int(e.cfg.DynamicRange) / 8
}

func (e *Engine) fireStart(port uint16, acqIndex uint64) int32 {
	e.mu.Lock()
	fn, ctx := e.startFn, e.startCtx
	e.mu.Unlock()
	if fn == nil {
		return 0
	}
	return fn(sls.StartHook{
		UDPPort:       []uint16{port},
		DynamicRange:  e.cfg.DynamicRange,
		DetectorShape: e.cfg.Shape,
		ImageSize:     e.imageSize(),
		FilePath:      e.cfg.FilePath,
		FileName:      e.cfg.FileName,
		FileIndex:     acqIndex,
	}, ctx)
}

func (e *Engine) fireEnd(port uint16, acqIndex uint64, asm *Assembler) {
	e.mu.Lock()
	fn, ctx := e.endFn, e.endCtx
	e.mu.Unlock()
	if fn == nil {
		return
	}
	fn(sls.EndHook{
		UDPPort:        []uint16{port},
		CompleteFrames: []uint64{asm.CompleteFrames},
		LastFrameIndex: []uint64{asm.LastFrameIndex},
		PacketsSeen:    []uint64{asm.PacketsSeen},
		PacketsDropped: []uint64{asm.PacketsDropped},
		FilePath:       e.cfg.FilePath,
		FileName:       e.cfg.FileName,
		FileIndex:      acqIndex,
	}, ctx)
}

func (e *Engine) fireData(port uint16, acqIndex uint64, asm *Assembler, f *Frame) {
	e.mu.Lock()
	fn, ctx := e.dataFn, e.dataCtx
	e.mu.Unlock()
	if fn == nil {
		return
	}
	size := len(f.Data)
	fn(&f.Header, sls.DataHook{
		UDPPort:       port,
		DynamicRange:  e.cfg.DynamicRange,
		DetectorShape: e.cfg.Shape,
		ImageSize:     e.imageSize(),
		AcqIndex:      acqIndex,
		FrameIndex:    f.Number,
		CompleteImage: true,
		FileName:      e.cfg.FileName,
	}, f.Data, &size, ctx)
}
