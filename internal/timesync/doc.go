// Package timesync sets the agent's wall clock from NTP.
//
// The device may boot with a clock that reads 1970. Sync queries the
// configured servers in order and keeps retrying at a fixed interval until
// the corrected clock reads past EpochThreshold, giving up after a bounded
// number of attempts or the overall timeout. The result is an offset applied
// on top of the local clock; the system clock itself is never changed.
package timesync
