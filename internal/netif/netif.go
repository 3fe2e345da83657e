// Package netif enumerates the local interface addresses on the detector
// network.
package netif

import (
	"fmt"
	"net"
	"net/netip"
	"sort"
)

// AddrsWithPrefix returns all local IPv4 addresses whose first octet
// equals prefix, sorted. Detector point-to-point links conventionally
// live on 192.*.
func AddrsWithPrefix(prefix byte) ([]netip.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var addrs []netip.Addr
	for _, iface := range ifaces {
		ifAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range ifAddrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipNet.IP.To4()
			if ip4 == nil || ip4[0] != prefix {
				continue
			}
			addr, ok := netip.AddrFromSlice(ip4)
			if !ok {
				continue
			}
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
	return addrs, nil
}
