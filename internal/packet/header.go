// Package packet defines the SLS detector UDP packet layout and its codec.
//
// Every UDP datagram from a detector module carries a fixed 48-byte header
// followed by 8192 bytes of pixel data. A full module image is 64 packets.
package packet

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the size of the on-wire packet header in bytes.
	HeaderSize = 48
	// DataSize is the pixel payload carried by each packet.
	DataSize = 8192
	// PacketSize is the full datagram size.
	PacketSize = HeaderSize + DataSize
	// PacketsPerFrame is the number of packets that make up one module frame.
	PacketsPerFrame = 64

	// ModuleWidth and ModuleHeight describe one detector module in pixels.
	ModuleWidth  = 1024
	ModuleHeight = 256
	// BytesPerPixel for the 16-bit readout mode.
	BytesPerPixel = 2
	// FrameSize is the assembled image size of one module.
	FrameSize = ModuleWidth * ModuleHeight * BytesPerPixel
)

// Header is the per-packet detector header. Field layout and meaning follow
// the SLS UDP detector specification; multi-byte fields are little-endian.
type Header struct {
	// FrameNumber is the frame to which this packet belongs.
	FrameNumber uint64
	// ExposureLength is the measured exposure time in units of 100ns.
	ExposureLength uint32
	// PacketNumber is the index of this packet within its frame.
	PacketNumber uint32
	// BunchID is the bunch identification number received by the detector
	// at the moment of frame acquisition.
	BunchID uint64
	// Timestamp is measured at the start of frame exposure since the start
	// of the current measurement, in units of 100ns.
	Timestamp uint64
	// ModuleID is picked up from the detector module's ID file.
	ModuleID uint16
	// Row and Column give the module's position in the detector system.
	Row    uint16
	Column uint16
	// DAQInfo is the DAQ info bitfield.
	DAQInfo uint32
	// DetectorType identifies the detector family.
	DetectorType uint8
	// Version is the header format version.
	Version uint8
}

// Unmarshal decodes a header from the first HeaderSize bytes of b.
func (h *Header) Unmarshal(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("packet header: got %d bytes, need %d", len(b), HeaderSize)
	}
	h.FrameNumber = binary.LittleEndian.Uint64(b[0:])
	h.ExposureLength = binary.LittleEndian.Uint32(b[8:])
	h.PacketNumber = binary.LittleEndian.Uint32(b[12:])
	h.BunchID = binary.LittleEndian.Uint64(b[16:])
	h.Timestamp = binary.LittleEndian.Uint64(b[24:])
	h.ModuleID = binary.LittleEndian.Uint16(b[32:])
	h.Row = binary.LittleEndian.Uint16(b[34:])
	h.Column = binary.LittleEndian.Uint16(b[36:])
	// b[38:40] is detSpec2, unused for Jungfrau.
	h.DAQInfo = binary.LittleEndian.Uint32(b[40:])
	// b[44:46] is detSpec4, unused for Jungfrau.
	h.DetectorType = b[46]
	h.Version = b[47]
	return nil
}

// Marshal encodes the header into b, which must hold at least HeaderSize bytes.
func (h *Header) Marshal(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("packet header: buffer %d bytes, need %d", len(b), HeaderSize)
	}
	binary.LittleEndian.PutUint64(b[0:], h.FrameNumber)
	binary.LittleEndian.PutUint32(b[8:], h.ExposureLength)
	binary.LittleEndian.PutUint32(b[12:], h.PacketNumber)
	binary.LittleEndian.PutUint64(b[16:], h.BunchID)
	binary.LittleEndian.PutUint64(b[24:], h.Timestamp)
	binary.LittleEndian.PutUint16(b[32:], h.ModuleID)
	binary.LittleEndian.PutUint16(b[34:], h.Row)
	binary.LittleEndian.PutUint16(b[36:], h.Column)
	binary.LittleEndian.PutUint16(b[38:], 0)
	binary.LittleEndian.PutUint32(b[40:], h.DAQInfo)
	binary.LittleEndian.PutUint16(b[44:], 0)
	b[46] = h.DetectorType
	b[47] = h.Version
	return nil
}
