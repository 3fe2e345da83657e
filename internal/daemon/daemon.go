// Package daemon runs the receiver as a long-lived process: the bridge
// over the acquisition engine, a ZMQ frame stream, Prometheus metrics,
// and a Unix-socket IPC surface for morgul status/stop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morguldev/morgul/internal/config"
	"github.com/morguldev/morgul/internal/engine"
	"github.com/morguldev/morgul/internal/metrics"
	"github.com/morguldev/morgul/internal/receiver"
	"github.com/morguldev/morgul/internal/sls"
	"github.com/morguldev/morgul/internal/stream"
	"github.com/morguldev/morgul/internal/version"
)

// state is the mutable half of Status, updated from receiver callbacks
// and read by the IPC handler.
type state struct {
	mu sync.Mutex
	s  Status
}

func (st *state) snapshot() *Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.s
	return &s
}

func (st *state) acquisitionStarted(h receiver.StartHeader) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Acquiring = true
	st.s.AcquisitionIndex++
	st.s.CurrentFrames = 0
	st.s.DynamicRange = h.DynamicRange
	st.s.Shape = h.DetectorShape
}

func (st *state) frameAssembled(info receiver.FrameInfo) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CurrentFrames++
	st.s.TotalFrames++
	st.s.LastFrame = info.FrameNumber
}

func (st *state) acquisitionEnded(h receiver.EndHeader) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Acquiring = false
	st.s.PacketsSeen += h.PacketsSeen
	st.s.PacketsDropped += h.PacketsDropped
}

// Run starts the daemon and blocks until shutdown. This is the main
// entry point for `morgul receive`.
func Run(cfg *config.Config) error {
	// Survive terminal close; the daemon is stopped via `morgul stop`.
	signal.Ignore(syscall.SIGHUP)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	idle, err := cfg.IdleTimeoutDuration()
	if err != nil {
		return err
	}

	rcv, err := receiver.New(cfg.UDPPort, receiver.WithFactory(func(port uint16) (sls.Receiver, error) {
		return engine.New(engine.Config{
			Port:         port,
			DynamicRange: cfg.DynamicRange,
			Shape:        sls.Shape{X: cfg.Module.Width, Y: cfg.Module.Height},
			IdleTimeout:  idle,
			FilePath:     cfg.FilePath,
			FileName:     cfg.FileName,
		})
	}))
	if err != nil {
		return fmt.Errorf("start receiver: %w", err)
	}
	defer func() { _ = rcv.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New("morgul", reg)

	var pub *stream.Publisher
	if cfg.Stream != "" {
		pub, err = stream.NewPublisher(ctx, cfg.Stream)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()
	}

	st := &state{}
	st.s.PID = os.Getpid()
	st.s.Version = rcv.Version()
	st.s.UDPPort = cfg.UDPPort
	st.s.StreamEndpoint = cfg.Stream
	st.s.StartedAt = time.Now()

	rcv.OnStart(func(h receiver.StartHeader) int32 {
		log.Printf("acquisition started: %dx%d @ %d bit, image %d bytes",
			h.DetectorShape[0], h.DetectorShape[1], h.DynamicRange, h.ImageSize)
		st.acquisitionStarted(h)
		m.AcquisitionsTotal.Inc()
		m.AcquisitionActive.Set(1)
		return receiver.StatusContinue
	})

	rcv.OnData(func(info receiver.FrameInfo, data []byte) int {
		st.frameAssembled(info)
		m.FramesTotal.Inc()
		m.FrameBytesTotal.Add(float64(len(data)))
		m.LastFrameIndex.Set(float64(info.FrameNumber))
		if pub != nil {
			hdr := stream.FrameHeader{
				FrameNumber: info.FrameNumber,
				AcqIndex:    info.AcquisitionIndex,
				Timestamp:   info.Timestamp,
				BunchID:     info.BunchID,
				ModuleID:    info.ModuleID,
				Row:         info.Row,
				Column:      info.Column,
				Shape:       [2]uint32{cfg.Module.Width, cfg.Module.Height},
				BitDepth:    cfg.DynamicRange,
				Size:        len(data),
				Complete:    info.Complete,
			}
			if err := pub.Publish(hdr, data); err != nil {
				m.PublishErrors.Inc()
				log.Printf("publish frame %d: %v", info.FrameNumber, err)
			}
		}
		return len(data)
	})

	rcv.OnEnd(func(h receiver.EndHeader) {
		log.Printf("acquisition finished: %d complete frames, last frame %d, %d packets dropped",
			h.CompleteFrames, h.LastFrameIndex, h.PacketsDropped)
		st.acquisitionEnded(h)
		m.AcquisitionActive.Set(0)
		m.FramesPerAcq.Observe(float64(h.CompleteFrames))
		m.PacketsTotal.Add(float64(h.PacketsSeen))
		m.PacketsDropped.Add(float64(h.PacketsDropped))
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		msrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = msrv.Shutdown(shutdownCtx)
		}()
	}

	sockPath, err := SocketPath(cfg.UDPPort)
	if err != nil {
		return fmt.Errorf("socket path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(sockPath), 0700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	srv := NewServer(sockPath, &handler{state: st, cancel: cancel})
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer srv.Stop()

	log.Printf("receiver %s ready on udp port %d (PID %d)", version.Version, cfg.UDPPort, os.Getpid())

	<-ctx.Done()
	log.Println("shutting down...")
	return nil
}

// handler implements Handler for the IPC server.
type handler struct {
	state  *state
	cancel context.CancelFunc
}

func (h *handler) HandleStatus() *Status { return h.state.snapshot() }

func (h *handler) HandleShutdown() { h.cancel() }
