package engine

import "github.com/morguldev/morgul/internal/packet"

// Frame is one module image assembled from UDP packets. Data is owned by
// the assembler's buffer pool; call Release once the frame has been
// consumed.
type Frame struct {
	// Header is the packet header of the first packet seen for this frame.
	Header   packet.Header
	Number   uint64
	Received int
	Data     []byte
}

// FeedResult reports what a single packet did to the assembly state.
type FeedResult struct {
	// Completed is non-nil when the packet finished a frame. Ownership of
	// Completed.Data passes to the caller until Release.
	Completed *Frame
	// NewFrame is set when the packet opened a new frame.
	NewFrame bool
	// OutOfOrder is set when the packet belonged to a frame older than the
	// one in progress; the packet was discarded.
	OutOfOrder bool
	// Abandoned is the number of packets missing from a partial frame that
	// was given up because this packet started a newer one.
	Abandoned int
}

// Assembler reassembles detector frames from individual packets. It is a
// single-goroutine state machine; the engine's listen loop is its only
// caller. Counters accumulate per acquisition and are cleared by Reset.
type Assembler struct {
	spare   [][]byte
	current *Frame

	// Per-acquisition counters.
	FramesSeen     uint64
	CompleteFrames uint64
	PacketsSeen    uint64
	PacketsDropped uint64
	LastFrameIndex uint64
}

// NewAssembler creates an assembler with buffers pre-allocated frame
// buffers. More are allocated on demand if the consumer holds on to
// completed frames.
func NewAssembler(buffers int) *Assembler {
	a := &Assembler{spare: make([][]byte, 0, buffers)}
	for i := 0; i < buffers; i++ {
		a.spare = append(a.spare, make([]byte, packet.FrameSize))
	}
	return a
}

func (a *Assembler) takeBuffer() []byte {
	if n := len(a.spare); n > 0 {
		buf := a.spare[n-1]
		a.spare = a.spare[:n-1]
		return buf
	}
	return make([]byte, packet.FrameSize)
}

// Release returns a completed frame's buffer to the pool.
func (a *Assembler) Release(f *Frame) {
	if f != nil && f.Data != nil {
		a.spare = append(a.spare, f.Data)
		f.Data = nil
	}
}

// Feed adds one packet to the assembly state. payload must be exactly
// packet.DataSize bytes; hdr.PacketNumber must be below
// packet.PacketsPerFrame (the engine validates both before calling).
func (a *Assembler) Feed(hdr *packet.Header, payload []byte) FeedResult {
	var res FeedResult
	a.PacketsSeen++

	if a.current == nil {
		a.current = &Frame{Header: *hdr, Number: hdr.FrameNumber, Data: a.takeBuffer()}
		a.FramesSeen++
		res.NewFrame = true
	} else if hdr.FrameNumber != a.current.Number {
		if hdr.FrameNumber < a.current.Number {
			// A straggler for a frame we already moved past.
			res.OutOfOrder = true
			return res
		}
		// The previous frame never completed; give up on it.
		res.Abandoned = packet.PacketsPerFrame - a.current.Received
		a.PacketsDropped += uint64(res.Abandoned)
		a.Release(a.current)
		a.current = &Frame{Header: *hdr, Number: hdr.FrameNumber, Data: a.takeBuffer()}
		a.FramesSeen++
		res.NewFrame = true
	}

	cur := a.current
	cur.Received++
	off := int(hdr.PacketNumber) * packet.DataSize
	copy(cur.Data[off:off+packet.DataSize], payload)

	if cur.Received == packet.PacketsPerFrame {
		a.CompleteFrames++
		a.LastFrameIndex = cur.Number
		a.current = nil
		res.Completed = cur
	}
	return res
}

// Flush abandons any partial frame at end of acquisition and returns the
// number of packets it was missing.
func (a *Assembler) Flush() int {
	if a.current == nil {
		return 0
	}
	missing := packet.PacketsPerFrame - a.current.Received
	a.PacketsDropped += uint64(missing)
	a.Release(a.current)
	a.current = nil
	return missing
}

// Reset clears the per-acquisition counters.
func (a *Assembler) Reset() {
	a.FramesSeen = 0
	a.CompleteFrames = 0
	a.PacketsSeen = 0
	a.PacketsDropped = 0
	a.LastFrameIndex = 0
}
