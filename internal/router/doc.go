// Package router implements the control API commands.
//
// The route table is fixed:
//
//	GET  /cmd/wifi/list      scan for networks (at most 5 reported)
//	GET  /cmd/stats          device and storage statistics
//	GET  /cmd/stats/esp      device statistics
//	GET  /cmd/stats/spiffs   storage statistics
//	POST /cmd/credentials    change the admin user and password
//	GET  /cmd/option/{name}  read back one setting (no auth, secrets redacted)
//	GET  /cmd/wifi           station link details
//	POST /cmd/wifi           update wifi_ssid, wifi_password, wifi_establish
//	GET  /cmd/ap             access point details
//	POST /cmd/ap             update ap_ssid, ap_password, ap_establish
//	GET  /cmd/dns            mDNS name
//	POST /cmd/dns            update dns_name, dns_establish
//	POST /cmd/reset          request a restart
//
// Every response is an Envelope {success, message, data}. Protected routes
// require HTTP Basic credentials matching the stored admin credentials and
// execute nothing otherwise. Update routes apply only the fields present in
// the request and save once, only when something changed; the new settings
// take effect after a restart.
//
// The router is transport independent. It is meant to run on the loop
// goroutine, which is the only goroutine that touches the settings store.
package router
