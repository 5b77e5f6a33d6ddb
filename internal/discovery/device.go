package discovery

import (
	"fmt"
	"strings"
	"time"
)

// Device is an onebiot agent found on the network.
type Device struct {
	// Instance is the advertised service instance (the DNS name).
	Instance string

	// Hostname is the mDNS hostname (e.g., "kitchen.local").
	Hostname string

	// IP is the first advertised address, IPv4 preferred.
	IP string

	// Port is the control API port.
	Port int

	// ClientName is the agent's client name from the TXT records.
	ClientName string

	// Mode is "wifi" or "ap".
	Mode string

	// Metadata contains every TXT record.
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered.
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device.
func (d *Device) String() string {
	return fmt.Sprintf("onebiot %s (%s) at %s:%d", d.Instance, d.Hostname, d.IP, d.Port)
}

// BaseURL returns the control API base URL.
func (d *Device) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.IP, d.Port)
}

// Matches reports whether name refers to this device, by instance,
// hostname or client name.
func (d *Device) Matches(name string) bool {
	name = strings.TrimSuffix(strings.TrimSuffix(name, "."), ".local")
	host := strings.TrimSuffix(d.Hostname, ".local")
	return strings.EqualFold(name, d.Instance) ||
		strings.EqualFold(name, host) ||
		(d.ClientName != "" && strings.EqualFold(name, d.ClientName))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found.
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
