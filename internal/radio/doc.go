// Package radio abstracts the WiFi hardware: station connect, soft access
// point and asynchronous scanning.
//
// Two drivers are provided. Simulator keeps everything in memory and is what
// the tests and the `sim` driver setting use. NMCLI drives a real interface
// through NetworkManager's command line client.
package radio
