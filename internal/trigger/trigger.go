// Package trigger implements the deluge acquisition-trigger protocol: a
// fixed 32-byte record broadcast over UDP that tells every load generator
// to start sending one acquisition.
package trigger

import (
	"encoding/binary"
	"fmt"
	"math"
)

// WireSize is the on-wire size of a trigger record.
const WireSize = 32

// Trigger starts one simulated acquisition. The wire format reserves 128
// bits for the frame count; only the low 64 are meaningful here.
type Trigger struct {
	// Frames is the number of images each sender should produce.
	Frames uint64
	// ExpTime is the exposure time per frame in seconds; senders pace one
	// frame per ExpTime.
	ExpTime float32
}

// Marshal encodes the trigger into b, which must hold WireSize bytes.
func (t Trigger) Marshal(b []byte) error {
	if len(b) < WireSize {
		return fmt.Errorf("trigger: buffer %d bytes, need %d", len(b), WireSize)
	}
	binary.LittleEndian.PutUint64(b[0:], t.Frames)
	binary.LittleEndian.PutUint64(b[8:], 0) // high word of the frame count
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(t.ExpTime))
	for i := 20; i < WireSize; i++ {
		b[i] = 0
	}
	return nil
}

// Unmarshal decodes a trigger from b. Datagrams of the wrong size are
// rejected rather than partially decoded.
func Unmarshal(b []byte) (Trigger, error) {
	if len(b) != WireSize {
		return Trigger{}, fmt.Errorf("trigger: got %d bytes, want %d", len(b), WireSize)
	}
	return Trigger{
		Frames:  binary.LittleEndian.Uint64(b[0:]),
		ExpTime: math.Float32frombits(binary.LittleEndian.Uint32(b[16:])),
	}, nil
}
