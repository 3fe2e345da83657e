// Package sls declares the hook surface of an SLS-style detector receiver.
//
// The vendor receiver library exposes acquisition-lifecycle hooks as C
// function pointers paired with one untyped context argument. This package
// is the Go rendering of that surface: fixed hook signatures, an opaque
// Context token standing in for the void pointer, and the Receiver
// interface every backing implementation provides. Header records mirror
// the slsDetectorDefs callback headers field for field.
package sls

import "github.com/morguldev/morgul/internal/packet"

// Context is the opaque token a caller hands to the receiver at hook
// registration time. The receiver stores it and passes it back verbatim on
// every hook invocation. It carries no meaning to the receiver itself.
type Context uintptr

// Shape is a detector extent in modules or pixels, x by y.
type Shape struct {
	X uint32
	Y uint32
}

// StartHook is delivered once at the start of every acquisition.
type StartHook struct {
	UDPPort       []uint16
	DynamicRange  uint32
	DetectorShape Shape
	ImageSize     int
	FilePath      string
	FileName      string
	FileIndex     uint64
	Quad          bool
	AddJSONHeader map[string]string
}

// EndHook is delivered once when an acquisition finishes. Per-port slices
// are indexed the same way as StartHook.UDPPort.
type EndHook struct {
	UDPPort        []uint16
	CompleteFrames []uint64
	LastFrameIndex []uint64
	PacketsSeen    []uint64
	PacketsDropped []uint64
	FilePath       string
	FileName       string
	FileIndex      uint64
}

// DataHook is delivered with every assembled frame.
type DataHook struct {
	UDPPort       uint16
	DynamicRange  uint32
	DetectorShape Shape
	ImageSize     int
	AcqIndex      uint64
	FrameIndex    uint64
	Progress      float64
	CompleteImage bool
	FileName      string
}

// Hook signatures. The int32 returned by a StartHookFunc is the receiver's
// proceed/abort decision for the acquisition: zero or positive continues,
// negative aborts.
type (
	StartHookFunc func(hdr StartHook, ctx Context) int32
	EndHookFunc   func(hdr EndHook, ctx Context)
	DataHookFunc  func(frame *packet.Header, hdr DataHook, data []byte, size *int, ctx Context)
)

// Receiver is the surface of the detector receiver library consumed by the
// bridge. Registering a nil hook deregisters it. Implementations may invoke
// hooks from their own goroutines at any time between registration and
// Close returning.
type Receiver interface {
	// Version returns the receiver library version string.
	Version() string

	RegisterStartHook(fn StartHookFunc, ctx Context)
	RegisterEndHook(fn EndHookFunc, ctx Context)
	RegisterDataHook(fn DataHookFunc, ctx Context)

	// Close stops the receiver. No hook fires after Close returns.
	Close() error
}
