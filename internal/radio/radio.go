package radio

import (
	"context"
	"fmt"
)

// Status is the station link status reported by a driver.
type Status int

// Status values follow the numbering the firmware has always reported in
// "Connecting error: #<status>".
const (
	StatusIdle           Status = 0
	StatusNoSSIDAvail    Status = 1
	StatusScanCompleted  Status = 2
	StatusConnected      Status = 3
	StatusConnectFailed  Status = 4
	StatusConnectionLost Status = 5
	StatusDisconnected   Status = 6
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusNoSSIDAvail:
		return "no ssid available"
	case StatusScanCompleted:
		return "scan completed"
	case StatusConnected:
		return "connected"
	case StatusConnectFailed:
		return "connect failed"
	case StatusConnectionLost:
		return "connection lost"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}

// ScanState is the progress of an asynchronous network scan.
type ScanState int

const (
	ScanIdle ScanState = iota
	ScanRunning
	ScanFailed
	ScanDone
)

// String returns a human-readable name for the scan state.
func (s ScanState) String() string {
	switch s {
	case ScanIdle:
		return "idle"
	case ScanRunning:
		return "running"
	case ScanFailed:
		return "failed"
	case ScanDone:
		return "done"
	default:
		return fmt.Sprintf("ScanState(%d)", int(s))
	}
}

// Network is one scan result.
type Network struct {
	SSID       string `json:"ssid"`
	Encryption string `json:"encryption"`
	RSSI       int    `json:"rssi"`
	BSSID      string `json:"bssid"`
	Channel    int    `json:"channel"`
	Hidden     bool   `json:"isHidden"`
}

// Link describes the current station connection.
type Link struct {
	SSID      string `json:"ssid"`
	RSSI      int    `json:"rssi"`
	BSSID     string `json:"bssid"`
	Channel   int    `json:"channel"`
	LocalIP   string `json:"local_ip"`
	DNSIP     string `json:"dns_ip"`
	GatewayIP string `json:"gateway_ip"`
}

// AccessPoint describes the running soft access point.
type AccessPoint struct {
	SSID       string `json:"ssid"`
	IP         string `json:"ip"`
	MACAddress string `json:"mac_address"`
	Stations   int    `json:"station_num"`
}

// Driver is the radio the agent drives. Implementations must be safe for
// concurrent use.
type Driver interface {
	// Connect joins ssid (open when password is empty) and blocks until the
	// link reaches a definitive status or ctx ends.
	Connect(ctx context.Context, ssid, password string) (Status, error)
	// Disconnect drops the station link
	Disconnect() error
	// Status returns the current station status
	Status() Status
	// Link returns details of the station link
	Link() (Link, error)

	// StartAP brings up the soft access point
	StartAP(ssid, password string) error
	// StopAP tears the soft access point down
	StopAP() error
	// AccessPoint returns details of the soft access point
	AccessPoint() (AccessPoint, error)

	// StartScan begins an asynchronous scan
	StartScan() error
	// Scan returns the scan progress and, once done, the results
	Scan() (ScanState, []Network)
	// ClearScan forgets the last scan so the next one starts fresh
	ClearScan()
}
