// Package deviceconfig holds the device configuration record and persists it
// on the agent's storage.
//
// # Record
//
// The record carries the admin credentials, the client name and the settings
// for the three network roles the device can take: WiFi station, fallback
// access point and mDNS advertisement. Empty client name, AP SSID and DNS
// name fields mean "use the default"; the Store getters resolve them at read
// time and the defaults are never written to storage.
//
// # Change Tracking
//
// Every setter is compare-and-set and reports whether the value changed. A
// change marks the store dirty; Load and Save clear it. Callers use the
// return values to decide whether a Save is needed at all:
//
//	store := deviceconfig.NewStore(fsys, deviceconfig.DefaultPath)
//	changed := store.SetWiFiSSID("home")
//	changed = store.SetWiFiPassword("secret1") || changed
//	if changed {
//	    if err := store.Save(); err != nil {
//	        return err
//	    }
//	}
//
// # Saving
//
// Save is a full rewrite:
//  1. The current file is renamed to <path>.bak
//  2. The new record is written
//  3. The file is read back and must decode to the in-memory record
//  4. The backup is removed
//
// Nothing is rolled back automatically. If any step fails the backup stays
// on storage and RecoverBackup (the `onebiot recover` command) puts it back.
//
// # Decoding
//
// Older firmware wrote booleans as strings or numbers, so decoding accepts
// true/false, "1"/"0", "true"/"false" and 1/0. Encoding always writes JSON
// booleans. Unknown keys are ignored and absent keys stay empty.
package deviceconfig
