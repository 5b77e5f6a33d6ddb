package main

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/onebiot/onebiot/internal/config"
	"github.com/onebiot/onebiot/internal/deviceconfig"
	"github.com/onebiot/onebiot/internal/discovery"
	"github.com/onebiot/onebiot/internal/metrics"
	"github.com/onebiot/onebiot/internal/orchestrator"
	"github.com/onebiot/onebiot/internal/platform"
	"github.com/onebiot/onebiot/internal/radio"
	"github.com/onebiot/onebiot/internal/router"
	"github.com/onebiot/onebiot/internal/server"
	"github.com/onebiot/onebiot/internal/storage"
	"github.com/onebiot/onebiot/internal/timesync"
)

// restartDelay lets the reset response reach the client before the exec.
const restartDelay = 500 * time.Millisecond

func openStorage(settings *config.Settings) storage.FS {
	if settings.Storage.Memory {
		return storage.NewMemFS()
	}
	return storage.NewDirFS(settings.Storage.Root)
}

func openStore(settings *config.Settings, fsys storage.FS) *deviceconfig.Store {
	iface := settings.Radio.Interface
	return deviceconfig.NewStore(fsys, settings.Storage.Record,
		deviceconfig.WithHardwareAddr(func() string { return platform.HardwareAddr(iface) }))
}

func newDriver(settings *config.Settings) radio.Driver {
	if settings.Radio.Driver == config.DriverNMCLI {
		return radio.NewNMCLI(settings.Radio.Interface, nil)
	}
	return radio.NewSimulator()
}

// buildAgent wires every component of the agent from settings.
func buildAgent(settings *config.Settings) *orchestrator.Orchestrator {
	clock := clockwork.NewRealClock()
	fsys := openStorage(settings)
	store := openStore(settings, fsys)
	drv := newDriver(settings)
	iface := settings.Radio.Interface

	var orch *orchestrator.Orchestrator

	r := router.New(store, drv, platform.NewStats(fsys, iface, clock),
		router.RestartFunc(func(reason string) { orch.RequestRestart(reason) }))

	api := server.New(server.Config{
		Host:              settings.HTTP.Host,
		Port:              settings.HTTP.Port,
		RequestsPerSecond: settings.HTTP.RequestsPerSecond,
		Burst:             settings.HTTP.Burst,
		RequestTimeout:    settings.HTTP.RequestTimeout,
		Hidden:            []string{store.Path(), store.BackupPath()},
	}, r, fsys)

	responder := discovery.NewResponder()
	responder.Addrs = func() []string { return platform.IPv4Addrs(iface) }
	responder.Text = func() []string {
		mode := "ap"
		if orch.State().WiFiConnected {
			mode = "wifi"
		}
		return []string{"client=" + store.ClientName(), "mode=" + mode}
	}

	syncer := timesync.New(timesync.Options{
		Servers:  settings.Time.Servers,
		Attempts: settings.Time.Attempts,
		Interval: settings.Time.Interval,
		Timeout:  settings.Time.Timeout,
		Clock:    clock,
	})

	orch = orchestrator.New(orchestrator.Deps{
		Storage:   fsys,
		Store:     store,
		Radio:     drv,
		Discovery: responder,
		API:       api,
		Restarter: platform.ExecRestarter{Delay: restartDelay},
		Time:      syncer,
		Observer:  orchestrator.Observers{orchestrator.LoggingObserver{}, metrics.Observer{}},
		Clock:     clock,
	}, orchestrator.Config{
		Port:              settings.HTTP.Port,
		ConnectTimeout:    settings.Radio.ConnectTimeout,
		ReconnectInterval: settings.Loop.ReconnectInterval,
		LinkCheckInterval: settings.Loop.LinkCheckInterval,
		TickInterval:      settings.Loop.TickInterval,
		MaxJobsPerTick:    settings.Loop.MaxJobsPerTick,
	})
	return orch
}
