package packet

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	in := Header{
		FrameNumber:    1234567,
		ExposureLength: 10_000, // 1ms in 100ns units
		PacketNumber:   63,
		BunchID:        0xDEADBEEF,
		Timestamp:      987654321,
		ModuleID:       7,
		Row:            2,
		Column:         3,
		DAQInfo:        0x11223344,
		DetectorType:   3,
		Version:        2,
	}

	buf := make([]byte, HeaderSize)
	if err := in.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	var out Header
	if err := out.Unmarshal(buf); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestHeaderFieldOffsets(t *testing.T) {
	// The wire layout is fixed by the detector firmware; pin the offsets of
	// the fields the receiver depends on.
	var h Header
	h.FrameNumber = 0x0102030405060708
	h.PacketNumber = 0x0A0B0C0D
	buf := make([]byte, HeaderSize)
	if err := h.Marshal(buf); err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint64(buf[0:]); got != h.FrameNumber {
		t.Errorf("frame number at offset 0 = %#x, want %#x", got, h.FrameNumber)
	}
	if got := binary.LittleEndian.Uint32(buf[12:]); got != h.PacketNumber {
		t.Errorf("packet number at offset 12 = %#x, want %#x", got, h.PacketNumber)
	}
	// Reserved detSpec fields must marshal as zero.
	if !bytes.Equal(buf[38:40], []byte{0, 0}) || !bytes.Equal(buf[44:46], []byte{0, 0}) {
		t.Error("reserved fields are not zeroed")
	}
}

func TestHeaderShortBuffer(t *testing.T) {
	var h Header
	if err := h.Unmarshal(make([]byte, HeaderSize-1)); err == nil {
		t.Error("Unmarshal accepted short buffer")
	}
	if err := h.Marshal(make([]byte, HeaderSize-1)); err == nil {
		t.Error("Marshal accepted short buffer")
	}
}

func TestFrameGeometry(t *testing.T) {
	if PacketsPerFrame*DataSize != FrameSize {
		t.Fatalf("packet geometry inconsistent: %d packets x %d bytes != %d frame bytes",
			PacketsPerFrame, DataSize, FrameSize)
	}
}
