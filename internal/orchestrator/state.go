package orchestrator

import (
	"fmt"
	"time"
)

// Phase is the furthest bootstrap step reached.
type Phase int

const (
	PhaseCold Phase = iota
	PhaseStorageMounted
	PhaseConfigLoaded
	PhaseWiFiUp
	PhaseAPUp
	PhaseBothDown
	PhaseDiscoveryUp
	PhaseAPIUp
)

// String returns the phase name as it appears in logs.
func (p Phase) String() string {
	switch p {
	case PhaseCold:
		return "COLD"
	case PhaseStorageMounted:
		return "STORAGE_MOUNTED"
	case PhaseConfigLoaded:
		return "CONFIG_LOADED"
	case PhaseWiFiUp:
		return "WIFI_UP"
	case PhaseAPUp:
		return "AP_UP"
	case PhaseBothDown:
		return "BOTH_DOWN"
	case PhaseDiscoveryUp:
		return "DISCOVERY_UP"
	case PhaseAPIUp:
		return "API_UP"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a snapshot of what the orchestrator has brought up.
type State struct {
	StorageReady     bool
	WiFiConnected    bool
	APActive         bool
	DiscoveryActive  bool
	ControlAPIActive bool

	// Timestamp is the synchronized wall clock time, zero until time sync.
	Timestamp time.Time

	Phase Phase
}

// NetworkUp reports whether the device is reachable over WiFi or its AP.
func (s State) NetworkUp() bool {
	return s.WiFiConnected || s.APActive
}
