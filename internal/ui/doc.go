// Package ui renders the terminal output of the onebiot CLI with Lipgloss.
//
// Commands print a Result box when they finish and a Table for listings
// (devices found over mDNS, visible WiFi networks):
//
//	fmt.Println(ui.NewSuccessResult("Device record recovered").
//	    AddDetail("Record", "/config.json").
//	    Render())
//
//	t := ui.NewTable("SSID", "RSSI")
//	t.AddRow("home", "-52 dBm")
//	fmt.Println(t)
//
// Widths follow the terminal, clamped between MinTerminalWidth and
// MaxContentWidth.
package ui
