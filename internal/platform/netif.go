package platform

import "net"

// firstHardwareAddr returns the MAC of the first non-loopback interface
// that has one.
func firstHardwareAddr() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 || len(ifi.HardwareAddr) == 0 {
			continue
		}
		return ifi.HardwareAddr.String()
	}
	return ""
}
