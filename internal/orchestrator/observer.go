package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/logging"
)

// Observer is told about every bootstrap and connectivity event. Failures
// are reported before any restart decision is taken.
type Observer interface {
	StorageMounted()
	StorageFailed(err error)
	SettingsLoaded()
	SettingsLoadFailed(err error)
	WiFiConnected(ssid string)
	WiFiFailed(err error)
	APStarted(ssid string)
	APFailed(err error)
	DiscoveryStarted(name string)
	DiscoveryFailed(err error)
	APIFailed(err error)
	TimeSynced(t time.Time)
	Restarting(reason string)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) StorageMounted() {}
func (NopObserver) StorageFailed(error) {}
func (NopObserver) SettingsLoaded() {}
func (NopObserver) SettingsLoadFailed(error) {}
func (NopObserver) WiFiConnected(string) {}
func (NopObserver) WiFiFailed(error) {}
func (NopObserver) APStarted(string) {}
func (NopObserver) APFailed(error) {}
func (NopObserver) DiscoveryStarted(string) {}
func (NopObserver) DiscoveryFailed(error) {}
func (NopObserver) APIFailed(error) {}
func (NopObserver) TimeSynced(time.Time) {}
func (NopObserver) Restarting(string) {}

// Observers fans every event out to each member in order.
type Observers []Observer

func (obs Observers) StorageMounted() {
	for _, o := range obs {
		o.StorageMounted()
	}
}

func (obs Observers) StorageFailed(err error) {
	for _, o := range obs {
		o.StorageFailed(err)
	}
}

func (obs Observers) SettingsLoaded() {
	for _, o := range obs {
		o.SettingsLoaded()
	}
}

func (obs Observers) SettingsLoadFailed(err error) {
	for _, o := range obs {
		o.SettingsLoadFailed(err)
	}
}

func (obs Observers) WiFiConnected(ssid string) {
	for _, o := range obs {
		o.WiFiConnected(ssid)
	}
}

func (obs Observers) WiFiFailed(err error) {
	for _, o := range obs {
		o.WiFiFailed(err)
	}
}

func (obs Observers) APStarted(ssid string) {
	for _, o := range obs {
		o.APStarted(ssid)
	}
}

func (obs Observers) APFailed(err error) {
	for _, o := range obs {
		o.APFailed(err)
	}
}

func (obs Observers) DiscoveryStarted(name string) {
	for _, o := range obs {
		o.DiscoveryStarted(name)
	}
}

func (obs Observers) DiscoveryFailed(err error) {
	for _, o := range obs {
		o.DiscoveryFailed(err)
	}
}

func (obs Observers) APIFailed(err error) {
	for _, o := range obs {
		o.APIFailed(err)
	}
}

func (obs Observers) TimeSynced(t time.Time) {
	for _, o := range obs {
		o.TimeSynced(t)
	}
}

func (obs Observers) Restarting(reason string) {
	for _, o := range obs {
		o.Restarting(reason)
	}
}

// LoggingObserver writes every event to the stage log.
type LoggingObserver struct{}

func (LoggingObserver) StorageMounted() {
	logging.LogStage(logging.StageStorage, "storage mounted", false)
}

func (LoggingObserver) StorageFailed(err error) {
	logging.LogStage(logging.StageStorage, "storage mount failed", true, zap.Error(err))
}

func (LoggingObserver) SettingsLoaded() {
	logging.LogStage(logging.StageSettings, "settings loaded", false)
}

func (LoggingObserver) SettingsLoadFailed(err error) {
	logging.LogStage(logging.StageSettings, "settings load failed", true, zap.Error(err))
}

func (LoggingObserver) WiFiConnected(ssid string) {
	logging.LogStage(logging.StageWiFi, "connected", false, zap.String("ssid", ssid))
}

func (LoggingObserver) WiFiFailed(err error) {
	logging.LogStage(logging.StageWiFi, "connect failed", true, zap.Error(err))
}

func (LoggingObserver) APStarted(ssid string) {
	logging.LogStage(logging.StageAP, "access point started", false, zap.String("ssid", ssid))
}

func (LoggingObserver) APFailed(err error) {
	logging.LogStage(logging.StageAP, "access point failed", true, zap.Error(err))
}

func (LoggingObserver) DiscoveryStarted(name string) {
	logging.LogStage(logging.StageDiscovery, "responder started", false, zap.String("name", name+".local"))
}

func (LoggingObserver) DiscoveryFailed(err error) {
	logging.LogStage(logging.StageDiscovery, "responder failed", true, zap.Error(err))
}

func (LoggingObserver) APIFailed(err error) {
	logging.LogStage(logging.StageAPI, "control API failed to start", true, zap.Error(err))
}

func (LoggingObserver) TimeSynced(t time.Time) {
	logging.LogStage(logging.StageTime, "time synchronized", false, zap.Time("now", t))
}

func (LoggingObserver) Restarting(reason string) {
	logging.LogStage(logging.StageDevice, "restarting", true, zap.String("reason", reason))
}
