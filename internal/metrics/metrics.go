package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bootstrap and connectivity metrics.
var (
	// StageEventsTotal counts observer events by stage and outcome.
	StageEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onebiot_stage_events_total",
			Help: "Bootstrap and connectivity events by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	// NetworkUp reports the current state of each network role (1=up).
	NetworkUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "onebiot_network_up",
			Help: "Whether each network role is up (wifi, ap, discovery)",
		},
		[]string{"role"},
	)

	// RestartsTotal counts restarts by reason.
	RestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onebiot_restarts_total",
			Help: "Device restarts issued by reason",
		},
		[]string{"reason"},
	)

	// ClockSynced is 1 once time sync has succeeded.
	ClockSynced = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onebiot_clock_synced",
			Help: "Whether the wall clock has been synchronized",
		},
	)
)

// Control API metrics.
var (
	// CommandsTotal counts control API commands by route and result.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onebiot_commands_total",
			Help: "Control API commands by route and result",
		},
		[]string{"route", "result"},
	)

	// CommandDuration tracks how long a command waited and ran, in seconds.
	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "onebiot_command_duration_seconds",
			Help:    "Control API command latency including queue time",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"route"},
	)

	// QueueDepth is the number of requests waiting for the loop.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "onebiot_command_queue_depth",
			Help: "Control API requests waiting for the loop",
		},
	)

	// RateLimitedTotal counts requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "onebiot_rate_limited_total",
			Help: "Control API requests rejected by the rate limiter",
		},
	)

	// SettingsSavesTotal counts settings saves by result.
	SettingsSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onebiot_settings_saves_total",
			Help: "Settings saves by result",
		},
		[]string{"result"},
	)
)

func boolGauge(up bool) float64 {
	if up {
		return 1
	}
	return 0
}

// Result returns the label value for a success flag.
func Result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
