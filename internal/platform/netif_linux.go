//go:build linux

package platform

import (
	"github.com/vishvananda/netlink"
)

// HardwareAddr returns iface's MAC address, or "" when it cannot be read.
func HardwareAddr(iface string) string {
	if iface == "" {
		return firstHardwareAddr()
	}
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return firstHardwareAddr()
	}
	return link.Attrs().HardwareAddr.String()
}

// IPv4Addrs returns iface's IPv4 addresses.
func IPv4Addrs(iface string) []string {
	if iface == "" {
		return nil
	}
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return nil
	}
	ips := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.IPNet != nil {
			ips = append(ips, addr.IP.String())
		}
	}
	return ips
}
