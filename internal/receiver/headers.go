package receiver

import "github.com/morguldev/morgul/internal/sls"

// StartHeader is the acquisition metadata handed to a start callback.
type StartHeader struct {
	UDPPort       []uint16
	DynamicRange  uint32
	DetectorShape [2]uint32
	ImageSize     int
}

// EndHeader is the acquisition summary handed to an end callback. Counts
// are totals across all UDP ports of the receiver.
type EndHeader struct {
	CompleteFrames uint64
	LastFrameIndex uint64
	PacketsSeen    uint64
	PacketsDropped uint64
}

// FrameInfo describes one assembled frame handed to a data callback.
type FrameInfo struct {
	FrameNumber      uint64
	AcquisitionIndex uint64
	Timestamp        uint64
	BunchID          uint64
	ModuleID         uint16
	Row              uint16
	Column           uint16
	Complete         bool
}

func convertStartHeader(h sls.StartHook) StartHeader {
	return StartHeader{
		UDPPort:       h.UDPPort,
		DynamicRange:  h.DynamicRange,
		DetectorShape: [2]uint32{h.DetectorShape.X, h.DetectorShape.Y},
		ImageSize:     h.ImageSize,
	}
}

func convertEndHeader(h sls.EndHook) EndHeader {
	var out EndHeader
	for _, n := range h.CompleteFrames {
		out.CompleteFrames += n
	}
	for _, idx := range h.LastFrameIndex {
		if idx > out.LastFrameIndex {
			out.LastFrameIndex = idx
		}
	}
	for _, n := range h.PacketsSeen {
		out.PacketsSeen += n
	}
	for _, n := range h.PacketsDropped {
		out.PacketsDropped += n
	}
	return out
}
