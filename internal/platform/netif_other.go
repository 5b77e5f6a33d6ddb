//go:build !linux

package platform

import "net"

// HardwareAddr returns iface's MAC address, or "" when it cannot be read.
func HardwareAddr(iface string) string {
	if iface == "" {
		return firstHardwareAddr()
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return firstHardwareAddr()
	}
	return ifi.HardwareAddr.String()
}

// IPv4Addrs returns iface's IPv4 addresses.
func IPv4Addrs(iface string) []string {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil
	}
	var ips []string
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP.String())
		}
	}
	return ips
}
