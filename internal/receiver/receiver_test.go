package receiver

import (
	"errors"
	"sync"
	"testing"

	"github.com/morguldev/morgul/internal/packet"
	"github.com/morguldev/morgul/internal/sls"
)

// fakeExternal records hook registrations and lets tests fire hooks the
// way the vendor receiver would, from an arbitrary goroutine.
type fakeExternal struct {
	mu       sync.Mutex
	startFn  sls.StartHookFunc
	startCtx sls.Context
	endFn    sls.EndHookFunc
	endCtx   sls.Context
	dataFn   sls.DataHookFunc
	dataCtx  sls.Context
	closed   bool
}

func (f *fakeExternal) Version() string { return "fake 1.2.3" }

func (f *fakeExternal) RegisterStartHook(fn sls.StartHookFunc, ctx sls.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startFn, f.startCtx = fn, ctx
}

func (f *fakeExternal) RegisterEndHook(fn sls.EndHookFunc, ctx sls.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endFn, f.endCtx = fn, ctx
}

func (f *fakeExternal) RegisterDataHook(fn sls.DataHookFunc, ctx sls.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataFn, f.dataCtx = fn, ctx
}

func (f *fakeExternal) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeExternal) fireStart(hdr sls.StartHook) int32 {
	f.mu.Lock()
	fn, ctx := f.startFn, f.startCtx
	f.mu.Unlock()
	if fn == nil {
		panic("no start hook registered")
	}
	return fn(hdr, ctx)
}

func (f *fakeExternal) fireEnd(hdr sls.EndHook) {
	f.mu.Lock()
	fn, ctx := f.endFn, f.endCtx
	f.mu.Unlock()
	if fn == nil {
		panic("no end hook registered")
	}
	fn(hdr, ctx)
}

func (f *fakeExternal) fireData(hdr *packet.Header, det sls.DataHook, data []byte, size *int) {
	f.mu.Lock()
	fn, ctx := f.dataFn, f.dataCtx
	f.mu.Unlock()
	if fn == nil {
		panic("no data hook registered")
	}
	fn(hdr, det, data, size, ctx)
}

func newTestBridge(t *testing.T) (*Receiver, *fakeExternal) {
	t.Helper()
	ext := &fakeExternal{}
	r, err := New(30001, WithFactory(func(port uint16) (sls.Receiver, error) {
		return ext, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r, ext
}

var startHook = sls.StartHook{
	UDPPort:       []uint16{30001},
	DynamicRange:  16,
	DetectorShape: sls.Shape{X: 1024, Y: 256},
	ImageSize:     packet.FrameSize,
	FileName:      "scan",
	FileIndex:     3,
}

func TestVersionForwardsToExternal(t *testing.T) {
	r, _ := newTestBridge(t)
	if got := r.Version(); got != "fake 1.2.3" {
		t.Errorf("Version() = %q, want %q", got, "fake 1.2.3")
	}
}

func TestConstructionFailurePropagates(t *testing.T) {
	wantErr := errors.New("port in use")
	_, err := New(30001, WithFactory(func(uint16) (sls.Receiver, error) {
		return nil, wantErr
	}))
	if !errors.Is(err, wantErr) {
		t.Fatalf("New() error = %v, want %v", err, wantErr)
	}
}

func TestStartCallbackReceivesConvertedHeader(t *testing.T) {
	r, ext := newTestBridge(t)

	var got StartHeader
	calls := 0
	r.OnStart(func(h StartHeader) int32 {
		calls++
		got = h
		return 7
	})

	if status := ext.fireStart(startHook); status != 7 {
		t.Errorf("trampoline status = %d, want callback's 7", status)
	}
	if calls != 1 {
		t.Fatalf("start callback invoked %d times, want 1", calls)
	}
	if got.DynamicRange != 16 || got.DetectorShape != [2]uint32{1024, 256} || got.ImageSize != packet.FrameSize {
		t.Errorf("converted header = %+v", got)
	}
	if len(got.UDPPort) != 1 || got.UDPPort[0] != 30001 {
		t.Errorf("converted header ports = %v, want [30001]", got.UDPPort)
	}
}

func TestStartCachesLastHeader(t *testing.T) {
	r, ext := newTestBridge(t)
	if _, ok := r.LastStart(); ok {
		t.Fatal("LastStart set before any acquisition")
	}
	r.OnStart(func(StartHeader) int32 { return 0 })
	ext.fireStart(startHook)

	last, ok := r.LastStart()
	if !ok {
		t.Fatal("LastStart not cached")
	}
	if last.ImageSize != packet.FrameSize {
		t.Errorf("cached header = %+v", last)
	}
}

func TestReRegisterReplacesStartCallback(t *testing.T) {
	r, ext := newTestBridge(t)

	oldCalled := false
	r.OnStart(func(StartHeader) int32 {
		oldCalled = true
		return 1
	})
	newCalls := 0
	r.OnStart(func(StartHeader) int32 {
		newCalls++
		return 2
	})

	if status := ext.fireStart(startHook); status != 2 {
		t.Errorf("status = %d, want new callback's 2", status)
	}
	if oldCalled {
		t.Error("replaced callback was invoked")
	}
	if newCalls != 1 {
		t.Errorf("new callback invoked %d times, want 1", newCalls)
	}
}

func TestStartWithoutCallbackReturnsContinue(t *testing.T) {
	r, ext := newTestBridge(t)
	// Register then clear: the trampoline stays registered with the
	// external receiver, but the slot is empty.
	r.OnStart(func(StartHeader) int32 { return 9 })
	r.OnStart(nil)

	if status := ext.fireStart(startHook); status != StatusContinue {
		t.Errorf("status = %d, want neutral %d", status, StatusContinue)
	}
}

func TestStartCallbackPanicDegradesToContinue(t *testing.T) {
	r, ext := newTestBridge(t)
	r.OnStart(func(StartHeader) int32 { panic("boom") })

	if status := ext.fireStart(startHook); status != StatusContinue {
		t.Errorf("status after panic = %d, want %d", status, StatusContinue)
	}
}

func TestEndCallbackReceivesTotals(t *testing.T) {
	r, ext := newTestBridge(t)

	var got EndHeader
	calls := 0
	r.OnEnd(func(h EndHeader) {
		calls++
		got = h
	})

	ext.fireEnd(sls.EndHook{
		UDPPort:        []uint16{30001, 30002},
		CompleteFrames: []uint64{100, 90},
		LastFrameIndex: []uint64{199, 197},
		PacketsSeen:    []uint64{6400, 5780},
		PacketsDropped: []uint64{0, 20},
	})

	if calls != 1 {
		t.Fatalf("end callback invoked %d times, want 1", calls)
	}
	if got.CompleteFrames != 190 {
		t.Errorf("CompleteFrames = %d, want 190", got.CompleteFrames)
	}
	if got.LastFrameIndex != 199 {
		t.Errorf("LastFrameIndex = %d, want 199", got.LastFrameIndex)
	}
	if got.PacketsSeen != 12180 {
		t.Errorf("PacketsSeen = %d, want 12180", got.PacketsSeen)
	}
	if got.PacketsDropped != 20 {
		t.Errorf("PacketsDropped = %d, want 20", got.PacketsDropped)
	}
}

func TestEndCallbackPanicIsAbsorbed(t *testing.T) {
	r, ext := newTestBridge(t)
	r.OnEnd(func(EndHeader) { panic("boom") })
	ext.fireEnd(sls.EndHook{}) // must not propagate
}

func TestDataCallbackCanTruncate(t *testing.T) {
	r, ext := newTestBridge(t)

	r.OnData(func(info FrameInfo, data []byte) int {
		if info.FrameNumber != 55 {
			t.Errorf("FrameNumber = %d, want 55", info.FrameNumber)
		}
		return 128
	})

	hdr := packet.Header{FrameNumber: 55, Timestamp: 7}
	data := make([]byte, 4096)
	size := len(data)
	ext.fireData(&hdr, sls.DataHook{FrameIndex: 55, CompleteImage: true}, data, &size)

	if size != 128 {
		t.Errorf("size after truncation = %d, want 128", size)
	}
}

func TestDataCallbackKeepingWholeFrameLeavesSize(t *testing.T) {
	r, ext := newTestBridge(t)
	r.OnData(func(_ FrameInfo, data []byte) int { return len(data) })

	data := make([]byte, 4096)
	size := len(data)
	ext.fireData(&packet.Header{}, sls.DataHook{}, data, &size)
	if size != len(data) {
		t.Errorf("size = %d, want %d", size, len(data))
	}
}

func TestCloseDeregistersAndInvalidatesHandle(t *testing.T) {
	ext := &fakeExternal{}
	r, err := New(30001, WithFactory(func(uint16) (sls.Receiver, error) { return ext, nil }))
	if err != nil {
		t.Fatal(err)
	}

	called := false
	r.OnStart(func(StartHeader) int32 {
		called = true
		return 1
	})

	// Capture the registered trampoline and context, as a misbehaving
	// external receiver might after deregistration.
	ext.mu.Lock()
	fn, ctx := ext.startFn, ext.startCtx
	ext.mu.Unlock()

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !ext.closed {
		t.Error("external receiver not closed")
	}
	ext.mu.Lock()
	if ext.startFn != nil || ext.endFn != nil || ext.dataFn != nil {
		t.Error("hooks still registered after Close")
	}
	ext.mu.Unlock()

	// A stale invocation against the dead handle must be a harmless no-op.
	if status := fn(startHook, ctx); status != StatusContinue {
		t.Errorf("stale trampoline status = %d, want %d", status, StatusContinue)
	}
	if called {
		t.Error("callback invoked through a closed bridge")
	}

	if err := r.Close(); err != nil {
		t.Fatal("second Close failed:", err)
	}
}

func TestConcurrentReRegistrationIsSafe(t *testing.T) {
	r, ext := newTestBridge(t)
	r.OnStart(func(StartHeader) int32 { return 0 })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			r.OnStart(func(StartHeader) int32 { return 1 })
		}
	}()
	for i := 0; i < 1000; i++ {
		if s := ext.fireStart(startHook); s != 0 && s != 1 {
			t.Errorf("status = %d, want a registered callback's value", s)
		}
	}
	<-done
}
