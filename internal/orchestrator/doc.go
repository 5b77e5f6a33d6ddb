// Package orchestrator owns the device's connectivity lifecycle.
//
// # Bootstrap
//
// Bootstrap runs once and walks the phases
//
//	COLD -> STORAGE_MOUNTED -> CONFIG_LOADED -> WIFI_UP | AP_UP | BOTH_DOWN
//	     -> DISCOVERY_UP -> API_UP
//
// mounting storage, loading the settings record, joining the configured
// WiFi network (or bringing up the fallback access point), registering the
// mDNS responder and finally starting the control API. Every stage outcome
// is reported to the Observer before any restart decision is taken.
//
// # Loop
//
// After bootstrap a single goroutine calls Tick. Each tick applies the
// reconnect policy, runs a bounded number of queued control API requests,
// does discovery housekeeping and, as its very last action, honors a
// pending restart request. Because control API requests run inside Tick,
// the settings store is only ever used from the loop goroutine.
//
// # Reconnect
//
// Once WiFi has been established, a link that drops is reconnected at most
// once per ReconnectInterval. A device that never connected does not retry;
// it waits for new settings and a restart.
package orchestrator
