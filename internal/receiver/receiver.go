// Package receiver bridges the detector receiver's C-style hook surface to
// plain Go callbacks.
//
// A Receiver owns one backing sls.Receiver for its lifetime. Callers
// register at most one callback per event kind; registering again silently
// replaces the previous one. The backing receiver invokes fixed trampoline
// functions from its own goroutines; the trampolines resolve the bridge
// through a handle table, convert the vendor header record, and dispatch
// into whatever callback is registered at that moment
// (snapshot-at-invocation: a concurrent re-registration takes effect on
// the next event, never mid-call).
package receiver

import (
	"log"
	"sync"

	"github.com/morguldev/morgul/internal/engine"
	"github.com/morguldev/morgul/internal/packet"
	"github.com/morguldev/morgul/internal/sls"
)

// StatusContinue is the neutral start-callback status: the acquisition
// proceeds. Negative statuses abort it.
const StatusContinue int32 = 0

// StartFunc decides whether an acquisition proceeds. Return StatusContinue
// (or any non-negative value) to continue, a negative value to abort.
type StartFunc func(StartHeader) int32

// EndFunc is notified when an acquisition finishes.
type EndFunc func(EndHeader)

// DataFunc receives each assembled frame. data is borrowed: it is only
// valid until the callback returns and must be copied to be retained. The
// returned value is the number of leading bytes of data the receiver
// should consider valid; return len(data) to keep the frame whole.
type DataFunc func(info FrameInfo, data []byte) int

// Receiver owns one backing detector receiver and relays its hooks.
type Receiver struct {
	ext    sls.Receiver
	handle uintptr

	mu        sync.Mutex
	startFn   StartFunc
	endFn     EndFunc
	dataFn    DataFunc
	lastStart StartHeader
	hasStart  bool
	closed    bool
}

// Factory constructs the backing receiver for a port.
type Factory func(port uint16) (sls.Receiver, error)

// Option configures New.
type Option func(*options)

type options struct {
	factory Factory
}

// WithFactory overrides how the backing receiver is constructed. The
// default starts an in-process UDP acquisition engine on the port.
func WithFactory(f Factory) Option {
	return func(o *options) { o.factory = f }
}

func defaultFactory(port uint16) (sls.Receiver, error) {
	return engine.New(engine.Config{Port: port})
}

// New constructs a bridge owning one backing receiver bound to port.
// Construction failures (the port is taken, the bind fails) propagate from
// the backing receiver.
func New(port uint16, opts ...Option) (*Receiver, error) {
	o := options{factory: defaultFactory}
	for _, opt := range opts {
		opt(&o)
	}
	ext, err := o.factory(port)
	if err != nil {
		return nil, err
	}
	r := &Receiver{ext: ext}
	r.handle = newHandle(r)
	return r, nil
}

// Version returns the backing receiver library's version string.
func (r *Receiver) Version() string {
	return r.ext.Version()
}

// OnStart registers fn as the start-of-acquisition callback, replacing any
// previous one.
func (r *Receiver) OnStart(fn StartFunc) {
	r.mu.Lock()
	r.startFn = fn
	r.mu.Unlock()
	r.ext.RegisterStartHook(startTrampoline, sls.Context(r.handle))
}

// OnEnd registers fn as the end-of-acquisition callback, replacing any
// previous one.
func (r *Receiver) OnEnd(fn EndFunc) {
	r.mu.Lock()
	r.endFn = fn
	r.mu.Unlock()
	r.ext.RegisterEndHook(endTrampoline, sls.Context(r.handle))
}

// OnData registers fn as the per-frame data callback, replacing any
// previous one.
func (r *Receiver) OnData(fn DataFunc) {
	r.mu.Lock()
	r.dataFn = fn
	r.mu.Unlock()
	r.ext.RegisterDataHook(dataTrampoline, sls.Context(r.handle))
}

// LastStart returns the most recently observed start header, if any
// acquisition has started since the bridge was created.
func (r *Receiver) LastStart() (StartHeader, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStart, r.hasStart
}

// Close deregisters all hooks from the backing receiver, invalidates the
// bridge's handle, and closes the backing receiver. Hooks are torn down
// before the handle so an in-flight registration cannot outlive the
// bridge. Safe to call more than once.
func (r *Receiver) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.ext.RegisterStartHook(nil, 0)
	r.ext.RegisterEndHook(nil, 0)
	r.ext.RegisterDataHook(nil, 0)
	deleteHandle(r.handle)
	return r.ext.Close()
}

// Trampolines. These are the fixed functions handed to the backing
// receiver; they are the only code that runs on its hook-dispatch path.
// The hook ABI has no error channel, so a panicking callback is recovered
// here: start degrades to StatusContinue, end and data to a no-op.

func startTrampoline(hdr sls.StartHook, ctx sls.Context) (status int32) {
	status = StatusContinue
	defer func() {
		if p := recover(); p != nil {
			log.Printf("receiver: start callback panic: %v", p)
			status = StatusContinue
		}
	}()

	r, ok := lookupHandle(uintptr(ctx))
	if !ok {
		return StatusContinue
	}
	converted := convertStartHeader(hdr)

	r.mu.Lock()
	r.lastStart = converted
	r.hasStart = true
	fn := r.startFn
	r.mu.Unlock()

	if fn == nil {
		return StatusContinue
	}
	return fn(converted)
}

func endTrampoline(hdr sls.EndHook, ctx sls.Context) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("receiver: end callback panic: %v", p)
		}
	}()

	r, ok := lookupHandle(uintptr(ctx))
	if !ok {
		return
	}
	r.mu.Lock()
	fn := r.endFn
	r.mu.Unlock()

	if fn != nil {
		fn(convertEndHeader(hdr))
	}
}

func dataTrampoline(frame *packet.Header, hdr sls.DataHook, data []byte, size *int, ctx sls.Context) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("receiver: data callback panic: %v", p)
		}
	}()

	r, ok := lookupHandle(uintptr(ctx))
	if !ok {
		return
	}
	r.mu.Lock()
	fn := r.dataFn
	r.mu.Unlock()
	if fn == nil {
		return
	}

	info := FrameInfo{
		AcquisitionIndex: hdr.AcqIndex,
		FrameNumber:      hdr.FrameIndex,
		Complete:         hdr.CompleteImage,
	}
	if frame != nil {
		info.FrameNumber = frame.FrameNumber
		info.Timestamp = frame.Timestamp
		info.BunchID = frame.BunchID
		info.ModuleID = frame.ModuleID
		info.Row = frame.Row
		info.Column = frame.Column
	}

	if n := fn(info, data[:*size]); n >= 0 && n < *size {
		*size = n
	}
}
