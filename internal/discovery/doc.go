// Package discovery advertises the agent over mDNS and finds other agents.
//
// Responder registers the control API under the "_http._tcp" service with
// the configured DNS name, so the device answers as <name>.local. Every
// registration carries a "device=onebiot" TXT record plus whatever the
// Text callback returns (client name, current network mode); Poll
// republishes the records when they change.
//
// Scanner browses the same service type and keeps only entries carrying the
// device marker. It backs the `onebiot scan` command:
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	devices, err := scanner.ScanForDevices(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, d := range devices {
//	    fmt.Println(d.Instance, d.BaseURL())
//	}
package discovery
