// Package logging provides structured logging for the onebiot agent.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used by the bootstrap sequence and the control API.
//
// # Log Levels
//
//   - Debug: request routing, radio status polling, scan bookkeeping
//   - Info: bootstrap stages, settings saved, responses sent
//   - Warn: stage failures, reconnect attempts, rejected requests
//   - Error: storage failures, restart decisions
//
// # Stage Logging
//
// Bootstrap stages are tagged the way the device console always tagged them:
//
//	logging.LogStage(logging.StageWiFi, "connected", false,
//	    zap.String("ssid", "Home"),
//	)
//	logging.LogStage(logging.StageAP, "Creating AP is off", true)
//
// Tags: OBI (device), FIS (file system), CNF (settings), WFC (WiFi client),
// WAP (access point), DNS (mDNS), API (control API), NTP (time).
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given and ONEBIOT_LOG_LEVEL is unset the logger is a no-op,
// which keeps CLI subcommands quiet.
package logging
