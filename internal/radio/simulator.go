package radio

import (
	"context"
	"errors"
	"sync"
)

// ErrAPUnavailable is returned by the simulator when APErr is not set but
// the access point cannot be started.
var ErrAPUnavailable = errors.New("access point unavailable")

// Simulator is an in-memory Driver. It backs the `sim` driver setting and
// the tests. Scans complete after ScanPolls calls to Scan.
type Simulator struct {
	mu sync.Mutex

	// Networks maps reachable SSIDs to their passwords.
	Networks map[string]string
	// Results is what a completed scan reports.
	Results []Network
	// ScanErr fails StartScan.
	ScanErr error
	// ScanFails makes a started scan end in ScanFailed.
	ScanFails bool
	// ScanPolls is how many Scan calls report ScanRunning.
	ScanPolls int
	// APErr fails StartAP.
	APErr error
	// MAC is reported for the access point.
	MAC string

	status    Status
	ssid      string
	apSSID    string
	apUp      bool
	scanState ScanState
	polls     int

	connectCalls    int
	disconnectCalls int
}

// NewSimulator creates a simulator with no reachable networks.
func NewSimulator() *Simulator {
	return &Simulator{
		Networks:  make(map[string]string),
		ScanPolls: 1,
		MAC:       "02:00:00:00:00:01",
		status:    StatusDisconnected,
	}
}

// Connect implements Driver.
func (s *Simulator) Connect(ctx context.Context, ssid, password string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectCalls++

	if err := ctx.Err(); err != nil {
		return s.status, err
	}

	want, ok := s.Networks[ssid]
	switch {
	case !ok:
		s.status = StatusNoSSIDAvail
	case want != password:
		s.status = StatusConnectFailed
	default:
		s.status = StatusConnected
		s.ssid = ssid
	}
	return s.status, nil
}

// Disconnect implements Driver.
func (s *Simulator) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectCalls++
	s.status = StatusDisconnected
	s.ssid = ""
	return nil
}

// Status implements Driver.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Link implements Driver.
func (s *Simulator) Link() (Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusConnected {
		return Link{}, errors.New("not connected")
	}
	return Link{
		SSID:      s.ssid,
		RSSI:      -52,
		BSSID:     "02:00:00:00:00:aa",
		Channel:   6,
		LocalIP:   "192.168.1.50",
		DNSIP:     "192.168.1.1",
		GatewayIP: "192.168.1.1",
	}, nil
}

// StartAP implements Driver.
func (s *Simulator) StartAP(ssid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.APErr != nil {
		return s.APErr
	}
	if ssid == "" {
		return ErrAPUnavailable
	}
	s.apSSID = ssid
	s.apUp = true
	return nil
}

// StopAP implements Driver.
func (s *Simulator) StopAP() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apUp = false
	s.apSSID = ""
	return nil
}

// AccessPoint implements Driver.
func (s *Simulator) AccessPoint() (AccessPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.apUp {
		return AccessPoint{}, errors.New("access point is down")
	}
	return AccessPoint{
		SSID:       s.apSSID,
		IP:         "192.168.4.1",
		MACAddress: s.MAC,
	}, nil
}

// StartScan implements Driver.
func (s *Simulator) StartScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ScanErr != nil {
		s.scanState = ScanFailed
		return s.ScanErr
	}
	s.scanState = ScanRunning
	s.polls = 0
	return nil
}

// Scan implements Driver.
func (s *Simulator) Scan() (ScanState, []Network) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanState == ScanRunning {
		if s.polls < s.ScanPolls {
			s.polls++
			return ScanRunning, nil
		}
		if s.ScanFails {
			s.scanState = ScanFailed
		} else {
			s.scanState = ScanDone
		}
	}
	if s.scanState != ScanDone {
		return s.scanState, nil
	}
	out := make([]Network, len(s.Results))
	copy(out, s.Results)
	return ScanDone, out
}

// ClearScan implements Driver.
func (s *Simulator) ClearScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanState = ScanIdle
	s.polls = 0
}

// DropLink simulates the station losing its connection.
func (s *Simulator) DropLink() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusConnectionLost
}

// APActive reports whether the simulated access point is up.
func (s *Simulator) APActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apUp
}

// ConnectCalls returns how many times Connect was called.
func (s *Simulator) ConnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectCalls
}

// DisconnectCalls returns how many times Disconnect was called.
func (s *Simulator) DisconnectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectCalls
}
