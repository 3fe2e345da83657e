package trigger

import (
	"fmt"
	"net"
)

// Send broadcasts one trigger to addr ("255.255.255.255:9999" or a
// specific host for point-to-point testing).
func Send(addr string, t Trigger) error {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("resolve trigger target %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp4", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("dial trigger target %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	buf := make([]byte, WireSize)
	if err := t.Marshal(buf); err != nil {
		return err
	}
	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("send trigger: %w", err)
	}
	return nil
}
