package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/radio"
)

// Bootstrap brings the device up once: storage, settings, WiFi or the
// fallback access point, discovery and the control API. With
// enforceRestartOnError a failed required stage restarts the device;
// otherwise the device carries on degraded. Returns ErrRestarted when a
// restart was issued.
func (o *Orchestrator) Bootstrap(ctx context.Context, enforceRestartOnError bool) error {
	o.update(func(s *State) { s.Phase = PhaseCold })

	// 1. storage
	if err := o.fs.Mount(); err != nil {
		o.observer.StorageFailed(faults.NewIOError("mount", "storage mount failed", err))
		if enforceRestartOnError {
			return o.restart("storage mount failed")
		}
	} else {
		o.update(func(s *State) {
			s.StorageReady = true
			s.Phase = PhaseStorageMounted
		})
		o.observer.StorageMounted()
	}

	// 2. settings, advisory only
	if o.store.Exists() {
		if err := o.store.Load(); err != nil {
			o.observer.SettingsLoadFailed(err)
		} else {
			o.observer.SettingsLoaded()
		}
	}
	o.update(func(s *State) { s.Phase = PhaseConfigLoaded })

	rec := o.store.Record()

	// 3. WiFi client
	if rec.WiFiEstablish {
		if err := o.ConnectWiFi(ctx); err != nil && !rec.APEstablish && enforceRestartOnError {
			return o.restart("wifi connect failed")
		}
	}

	// 4. fallback access point
	if !o.State().WiFiConnected && rec.APEstablish {
		if err := o.StartAP(); err != nil && enforceRestartOnError {
			return o.restart("access point failed")
		}
	}

	o.update(func(s *State) {
		switch {
		case s.WiFiConnected:
			s.Phase = PhaseWiFiUp
		case s.APActive:
			s.Phase = PhaseAPUp
		default:
			s.Phase = PhaseBothDown
		}
	})

	// 5. discovery
	if rec.DNSEstablish {
		if err := o.StartDiscovery(); err != nil && enforceRestartOnError {
			return o.restart("discovery failed")
		}
	}

	// 6. control API
	if o.State().NetworkUp() {
		o.startAPI()
	}

	logging.Info("Bootstrap finished", zap.Stringer("phase", o.State().Phase))
	return nil
}

func (o *Orchestrator) startAPI() {
	if o.api == nil {
		return
	}
	if err := o.api.Start(); err != nil {
		o.observer.APIFailed(err)
		return
	}
	o.update(func(s *State) {
		s.ControlAPIActive = true
		s.Phase = PhaseAPIUp
	})
	logging.LogStage(logging.StageAPI, "control API started", false, zap.Int("port", o.cfg.Port))
}

// ConnectWiFi joins the configured network, waiting at most ConnectTimeout
// for a definitive result.
func (o *Orchestrator) ConnectWiFi(ctx context.Context) error {
	rec := o.store.Record()

	err := o.connectWiFi(ctx, rec.WiFiEstablish, rec.WiFiSSID, rec.WiFiPassword)
	if err != nil {
		o.update(func(s *State) { s.WiFiConnected = false })
		o.observer.WiFiFailed(err)
		return err
	}

	o.mu.Lock()
	o.state.WiFiConnected = true
	o.wifiEstablished = true
	o.mu.Unlock()
	o.observer.WiFiConnected(rec.WiFiSSID)
	return nil
}

func (o *Orchestrator) connectWiFi(ctx context.Context, enabled bool, ssid, password string) error {
	if !enabled {
		return faults.NewRadioError("connect", "WiFi is off", -1, nil)
	}
	if ssid == "" {
		return faults.NewRadioError("connect", "No SSID is available", -1, nil)
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.ConnectTimeout)
	defer cancel()

	status, err := o.radio.Connect(ctx, ssid, password)
	if status == radio.StatusConnected && err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return faults.NewTimeoutError("connect",
			fmt.Sprintf("Connecting error: #%d", int(status)), ctx.Err())
	}
	return faults.NewRadioError("connect", fmt.Sprintf("Connecting error: #%d", int(status)), int(status), err)
}

// StartAP brings up the fallback access point, dropping any station link
// first.
func (o *Orchestrator) StartAP() error {
	rec := o.store.Record()
	if !rec.APEstablish {
		err := faults.NewRadioError("ap", "Creating AP is off", -1, nil)
		o.update(func(s *State) { s.APActive = false })
		o.observer.APFailed(err)
		return err
	}

	if o.radio.Status() == radio.StatusConnected || o.State().WiFiConnected {
		if err := o.radio.Disconnect(); err != nil {
			logging.Warn("WiFi disconnect before AP start failed", zap.Error(err))
		}
		o.update(func(s *State) { s.WiFiConnected = false })
	}

	ssid := o.store.APSSID()
	if err := o.radio.StartAP(ssid, rec.APPassword); err != nil {
		ferr := faults.NewRadioError("ap", "Creating AP failed", -1, err)
		o.update(func(s *State) { s.APActive = false })
		o.observer.APFailed(ferr)
		return ferr
	}

	o.update(func(s *State) { s.APActive = true })
	o.observer.APStarted(ssid)
	return nil
}

// StartDiscovery registers the mDNS responder. It never touches the WiFi or
// access point state.
func (o *Orchestrator) StartDiscovery() error {
	if o.discovery == nil {
		err := faults.NewDiscoveryError("no discovery responder configured", nil)
		o.observer.DiscoveryFailed(err)
		return err
	}

	name := o.store.DNSName()
	if err := o.discovery.Start(name, o.cfg.Port); err != nil {
		o.update(func(s *State) { s.DiscoveryActive = false })
		o.observer.DiscoveryFailed(err)
		return err
	}

	o.update(func(s *State) {
		s.DiscoveryActive = true
		if s.Phase < PhaseDiscoveryUp {
			s.Phase = PhaseDiscoveryUp
		}
	})
	o.observer.DiscoveryStarted(name)
	return nil
}

// SyncTime sets the timestamp from the time servers. It blocks the loop for
// at most the time source's own timeout.
func (o *Orchestrator) SyncTime(ctx context.Context) error {
	if o.time == nil {
		return faults.NewTimeoutError("timesync", "no time source configured", nil)
	}
	now, err := o.time.Sync(ctx)
	if err != nil {
		logging.LogStage(logging.StageTime, "time sync failed", true, zap.Error(err))
		return err
	}
	o.mu.Lock()
	o.state.Timestamp = now
	o.timeSynced = true
	o.mu.Unlock()
	o.observer.TimeSynced(now)
	return nil
}

// UpdateTime refreshes the timestamp and returns it. It stays zero until
// SyncTime has succeeded.
func (o *Orchestrator) UpdateTime() time.Time {
	if o.time == nil {
		return time.Time{}
	}
	now := o.time.Now()
	o.update(func(s *State) { s.Timestamp = now })
	return now
}

// Restarted reports whether a restart has been issued.
func (o *Orchestrator) Restarted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.restarted
}
