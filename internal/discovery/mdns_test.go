package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantHost   string
		wantIP     string
		wantPort   int
		wantClient string
	}{
		{
			name: "agent with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "kitchen"},
				HostName:      "kitchen.local.",
				Port:          80,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"device=onebiot", "path=/", "client=1biot-aabbccddeeff-2a"},
			},
			wantHost:   "kitchen.local",
			wantIP:     "192.168.4.16",
			wantPort:   80,
			wantClient: "1biot-aabbccddeeff-2a",
		},
		{
			name: "agent with custom port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "onebiot"},
				HostName:      "onebiot.local",
				Port:          8080,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
				Text:          []string{"device=onebiot"},
			},
			wantHost: "onebiot.local",
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name: "no port defaults to 80",
			entry: &zeroconf.ServiceEntry{
				HostName: "onebiot.local",
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
				Text:     []string{"device=onebiot"},
			},
			wantHost: "onebiot.local",
			wantIP:   "172.16.0.1",
			wantPort: 80,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "onebiot.local",
				Port:     80,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"device=onebiot"},
			},
			wantHost: "onebiot.local",
			wantIP:   "fe80::1",
			wantPort: 80,
		},
		{
			name: "other http service",
			entry: &zeroconf.ServiceEntry{
				HostName: "printer.local",
				Port:     80,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
				Text:     []string{"path=/"},
			},
			wantNil: true,
		},
		{
			name: "no addresses",
			entry: &zeroconf.ServiceEntry{
				HostName: "onebiot.local",
				Text:     []string{"device=onebiot"},
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if device.Hostname != tt.wantHost {
				t.Errorf("Hostname = %q, want %q", device.Hostname, tt.wantHost)
			}
			if device.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", device.Port, tt.wantPort)
			}
			if device.ClientName != tt.wantClient {
				t.Errorf("ClientName = %q, want %q", device.ClientName, tt.wantClient)
			}
		})
	}
}

func TestParseText(t *testing.T) {
	md := parseText([]string{"a=1", "flag", "b=x=y"})
	if md["a"] != "1" || md["b"] != "x=y" {
		t.Errorf("unexpected metadata: %v", md)
	}
	if _, ok := md["flag"]; !ok {
		t.Error("key without value should be present")
	}
}

func TestNewScanner(t *testing.T) {
	if s := NewScanner(); s.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", s.Timeout, DefaultScanTimeout)
	}
}
