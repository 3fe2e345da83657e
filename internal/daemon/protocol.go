package daemon

import "time"

// Request is sent from a client (morgul status, morgul stop) to the
// daemon over the Unix socket.
type Request struct {
	Method string `json:"method"` // "status" or "shutdown"
}

// Response is sent from the daemon back to the client.
type Response struct {
	OK    bool    `json:"ok"`
	Error string  `json:"error,omitempty"`
	State *Status `json:"state,omitempty"`
}

// Status is the live state returned by the "status" method.
type Status struct {
	PID            int       `json:"pid"`
	Version        string    `json:"version"`
	UDPPort        uint16    `json:"udp_port"`
	StreamEndpoint string    `json:"stream_endpoint,omitempty"`
	StartedAt      time.Time `json:"started_at"`

	Acquiring        bool   `json:"acquiring"`
	AcquisitionIndex uint64 `json:"acquisition_index"`
	// CurrentFrames counts complete frames in the acquisition in
	// progress; TotalFrames accumulates across the daemon's lifetime.
	CurrentFrames uint64 `json:"current_frames"`
	TotalFrames   uint64 `json:"total_frames"`
	LastFrame     uint64 `json:"last_frame,omitempty"`

	// Packet accounting accumulated over finished acquisitions.
	PacketsSeen    uint64 `json:"packets_seen"`
	PacketsDropped uint64 `json:"packets_dropped"`

	// DynamicRange and Shape come from the most recent start header.
	DynamicRange uint32    `json:"dynamic_range,omitempty"`
	Shape        [2]uint32 `json:"shape,omitempty"`
}
