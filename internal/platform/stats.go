package platform

import (
	"os"
	"runtime"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/onebiot/onebiot/internal/storage"
	"github.com/onebiot/onebiot/internal/version"
)

// DeviceStats describes the running agent.
type DeviceStats struct {
	Hostname      string `json:"hostname"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	NumCPU        int    `json:"cpu_count"`
	Goroutines    int    `json:"goroutines"`
	HeapAlloc     uint64 `json:"heap_alloc_bytes"`
	HeapSys       uint64 `json:"heap_sys_bytes"`
	HeapIdle      uint64 `json:"heap_idle_bytes"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	HardwareAddr  string `json:"hardware_address"`
}

// Stats reports device and storage statistics.
type Stats struct {
	fs      storage.FS
	iface   string
	clock   clockwork.Clock
	started time.Time
}

// NewStats creates a stats provider. iface names the network interface
// whose hardware address is reported.
func NewStats(fs storage.FS, iface string, clock clockwork.Clock) *Stats {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Stats{
		fs:      fs,
		iface:   iface,
		clock:   clock,
		started: clock.Now(),
	}
}

// DeviceStats returns a snapshot of the runtime.
func (s *Stats) DeviceStats() DeviceStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	host, _ := os.Hostname()
	info := version.Get()

	return DeviceStats{
		Hostname:      host,
		Version:       info.Version,
		Commit:        info.Commit,
		GoVersion:     info.GoVersion,
		Platform:      info.Platform,
		NumCPU:        runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     mem.HeapAlloc,
		HeapSys:       mem.HeapSys,
		HeapIdle:      mem.HeapIdle,
		UptimeSeconds: int64(s.clock.Since(s.started) / time.Second),
		HardwareAddr:  HardwareAddr(s.iface),
	}
}

// StorageStats returns the storage usage.
func (s *Stats) StorageStats() (storage.Stats, error) {
	return s.fs.Stats()
}
