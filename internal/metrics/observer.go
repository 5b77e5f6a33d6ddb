package metrics

import "time"

// Observer records orchestrator events as Prometheus metrics. It satisfies
// orchestrator.Observer.
type Observer struct{}

func (Observer) StorageMounted() {
	StageEventsTotal.WithLabelValues("storage", "success").Inc()
}

func (Observer) StorageFailed(error) {
	StageEventsTotal.WithLabelValues("storage", "failure").Inc()
}

func (Observer) SettingsLoaded() {
	StageEventsTotal.WithLabelValues("settings", "success").Inc()
}

func (Observer) SettingsLoadFailed(error) {
	StageEventsTotal.WithLabelValues("settings", "failure").Inc()
}

func (Observer) WiFiConnected(string) {
	StageEventsTotal.WithLabelValues("wifi", "success").Inc()
	NetworkUp.WithLabelValues("wifi").Set(1)
}

func (Observer) WiFiFailed(error) {
	StageEventsTotal.WithLabelValues("wifi", "failure").Inc()
	NetworkUp.WithLabelValues("wifi").Set(0)
}

func (Observer) APStarted(string) {
	StageEventsTotal.WithLabelValues("ap", "success").Inc()
	NetworkUp.WithLabelValues("ap").Set(1)
}

func (Observer) APFailed(error) {
	StageEventsTotal.WithLabelValues("ap", "failure").Inc()
	NetworkUp.WithLabelValues("ap").Set(0)
}

func (Observer) DiscoveryStarted(string) {
	StageEventsTotal.WithLabelValues("discovery", "success").Inc()
	NetworkUp.WithLabelValues("discovery").Set(1)
}

func (Observer) DiscoveryFailed(error) {
	StageEventsTotal.WithLabelValues("discovery", "failure").Inc()
	NetworkUp.WithLabelValues("discovery").Set(0)
}

func (Observer) APIFailed(error) {
	StageEventsTotal.WithLabelValues("api", "failure").Inc()
}

func (Observer) TimeSynced(time.Time) {
	StageEventsTotal.WithLabelValues("time", "success").Inc()
	ClockSynced.Set(boolGauge(true))
}

func (Observer) Restarting(reason string) {
	RestartsTotal.WithLabelValues(reason).Inc()
}
