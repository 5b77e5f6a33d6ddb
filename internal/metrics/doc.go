// Package metrics defines the agent's Prometheus metrics, served on
// /metrics by the control API.
package metrics
