package radio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/logging"
)

// hotspotConnection is the connection name nmcli gives `device wifi hotspot`
const hotspotConnection = "Hotspot"

const (
	// queryTimeout bounds read-only nmcli calls, which run on the loop
	queryTimeout = 2 * time.Second
	// actionTimeout bounds calls that change the device state
	actionTimeout = 15 * time.Second
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

// NMCLI drives a WiFi interface through NetworkManager's nmcli.
type NMCLI struct {
	iface         string
	run           Runner
	scanTimeout   time.Duration
	queryTimeout  time.Duration
	actionTimeout time.Duration

	mu        sync.Mutex
	scanState ScanState
	scanned   []Network
	apSSID    string
}

// NewNMCLI creates a driver for iface. A nil runner uses ExecRunner.
func NewNMCLI(iface string, run Runner) *NMCLI {
	if run == nil {
		run = ExecRunner
	}
	return &NMCLI{
		iface:         iface,
		run:           run,
		scanTimeout:   30 * time.Second,
		queryTimeout:  queryTimeout,
		actionTimeout: actionTimeout,
	}
}

// nmcli runs one nmcli command bounded by timeout.
func (n *NMCLI) nmcli(timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return n.run(ctx, "nmcli", args...)
}

// Connect implements Driver.
func (n *NMCLI) Connect(ctx context.Context, ssid, password string) (Status, error) {
	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	args = append(args, "ifname", n.iface)

	if deadline, ok := ctx.Deadline(); ok {
		wait := int(time.Until(deadline).Seconds())
		if wait < 1 {
			wait = 1
		}
		args = append([]string{"--wait", strconv.Itoa(wait)}, args...)
	}

	if _, err := n.run(ctx, "nmcli", args...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return n.Status(), ctxErr
		}
		logging.Debug("nmcli connect failed", zap.String("ssid", ssid), zap.Error(err))
		status := n.Status()
		if status == StatusConnected {
			status = StatusConnectFailed
		}
		if strings.Contains(err.Error(), "No network with SSID") {
			status = StatusNoSSIDAvail
		}
		return status, nil
	}
	return n.Status(), nil
}

// Disconnect implements Driver.
func (n *NMCLI) Disconnect() error {
	_, err := n.nmcli(n.actionTimeout, "device", "disconnect", n.iface)
	return err
}

// Status implements Driver.
func (n *NMCLI) Status() Status {
	out, err := n.nmcli(n.queryTimeout, "-t", "-f", "GENERAL.STATE", "device", "show", n.iface)
	if err != nil {
		return StatusIdle
	}
	fields := parseFields(out)
	return statusFromState(fields["GENERAL.STATE"])
}

// statusFromState maps an nmcli device state such as "100 (connected)".
func statusFromState(state string) Status {
	code, _, _ := strings.Cut(strings.TrimSpace(state), " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return StatusIdle
	}
	switch {
	case n == 100:
		return StatusConnected
	case n == 120:
		return StatusConnectFailed
	case n >= 40 && n < 100:
		return StatusIdle
	case n == 20:
		return StatusNoSSIDAvail
	default:
		return StatusDisconnected
	}
}

// Link implements Driver.
func (n *NMCLI) Link() (Link, error) {
	out, err := n.nmcli(n.queryTimeout, "-t",
		"-f", "GENERAL.CONNECTION,IP4.ADDRESS,IP4.GATEWAY,IP4.DNS", "device", "show", n.iface)
	if err != nil {
		return Link{}, err
	}
	fields := parseFields(out)
	link := Link{
		LocalIP:   stripPrefixLen(fields["IP4.ADDRESS[1]"]),
		GatewayIP: fields["IP4.GATEWAY"],
		DNSIP:     fields["IP4.DNS[1]"],
	}

	list, err := n.nmcli(n.queryTimeout, "-t",
		"-f", "ACTIVE,SSID,BSSID,CHAN,SIGNAL,SECURITY", "device", "wifi", "list", "ifname", n.iface, "--rescan", "no")
	if err != nil {
		return link, nil
	}
	for _, line := range splitLines(list) {
		cols := splitTerse(line)
		if len(cols) < 6 || cols[0] != "yes" {
			continue
		}
		link.SSID = cols[1]
		link.BSSID = cols[2]
		link.Channel, _ = strconv.Atoi(cols[3])
		link.RSSI = signalToRSSI(cols[4])
		break
	}
	return link, nil
}

// StartAP implements Driver.
func (n *NMCLI) StartAP(ssid, password string) error {
	args := []string{"device", "wifi", "hotspot", "ifname", n.iface, "con-name", hotspotConnection, "ssid", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	if _, err := n.nmcli(n.actionTimeout, args...); err != nil {
		return err
	}
	n.mu.Lock()
	n.apSSID = ssid
	n.mu.Unlock()
	return nil
}

// StopAP implements Driver.
func (n *NMCLI) StopAP() error {
	_, err := n.nmcli(n.actionTimeout, "connection", "down", hotspotConnection)
	n.mu.Lock()
	n.apSSID = ""
	n.mu.Unlock()
	return err
}

// AccessPoint implements Driver.
func (n *NMCLI) AccessPoint() (AccessPoint, error) {
	n.mu.Lock()
	ssid := n.apSSID
	n.mu.Unlock()
	if ssid == "" {
		return AccessPoint{}, errors.New("access point is down")
	}

	out, err := n.nmcli(n.queryTimeout, "-t",
		"-f", "GENERAL.HWADDR,IP4.ADDRESS", "device", "show", n.iface)
	if err != nil {
		return AccessPoint{SSID: ssid}, err
	}
	fields := parseFields(out)
	return AccessPoint{
		SSID:       ssid,
		IP:         stripPrefixLen(fields["IP4.ADDRESS[1]"]),
		MACAddress: strings.ToLower(fields["GENERAL.HWADDR"]),
	}, nil
}

// StartScan implements Driver.
func (n *NMCLI) StartScan() error {
	n.mu.Lock()
	if n.scanState == ScanRunning {
		n.mu.Unlock()
		return nil
	}
	n.scanState = ScanRunning
	n.scanned = nil
	n.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.scanTimeout)
		defer cancel()

		out, err := n.run(ctx, "nmcli", "-t",
			"-f", "SSID,BSSID,CHAN,SIGNAL,SECURITY", "device", "wifi", "list", "ifname", n.iface, "--rescan", "yes")

		n.mu.Lock()
		defer n.mu.Unlock()
		if n.scanState != ScanRunning {
			// cleared while running
			return
		}
		if err != nil {
			logging.Warn("WiFi scan failed", zap.String("iface", n.iface), zap.Error(err))
			n.scanState = ScanFailed
			return
		}
		n.scanned = parseWiFiList(out)
		n.scanState = ScanDone
	}()
	return nil
}

// Scan implements Driver.
func (n *NMCLI) Scan() (ScanState, []Network) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.scanState != ScanDone {
		return n.scanState, nil
	}
	out := make([]Network, len(n.scanned))
	copy(out, n.scanned)
	return ScanDone, out
}

// ClearScan implements Driver.
func (n *NMCLI) ClearScan() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scanState = ScanIdle
	n.scanned = nil
}

// parseWiFiList parses terse `SSID,BSSID,CHAN,SIGNAL,SECURITY` rows.
func parseWiFiList(out []byte) []Network {
	var nets []Network
	for _, line := range splitLines(out) {
		cols := splitTerse(line)
		if len(cols) < 5 {
			continue
		}
		channel, _ := strconv.Atoi(cols[2])
		nets = append(nets, Network{
			SSID:       cols[0],
			BSSID:      strings.ToLower(cols[1]),
			Channel:    channel,
			RSSI:       signalToRSSI(cols[3]),
			Encryption: encryptionName(cols[4]),
			Hidden:     cols[0] == "",
		})
	}
	return nets
}

// splitTerse splits an nmcli -t row on unescaped colons.
func splitTerse(line string) []string {
	var (
		cols []string
		cur  strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			cols = append(cols, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(cols, cur.String())
}

// parseFields parses `nmcli -t device show` output into a key/value map.
func parseFields(out []byte) map[string]string {
	fields := make(map[string]string)
	for _, line := range splitLines(out) {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[key] = value
	}
	return fields
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func stripPrefixLen(addr string) string {
	ip, _, _ := strings.Cut(addr, "/")
	return ip
}

// signalToRSSI converts nmcli's 0-100 signal quality to dBm.
func signalToRSSI(signal string) int {
	q, err := strconv.Atoi(strings.TrimSpace(signal))
	if err != nil {
		return -100
	}
	if q > 100 {
		q = 100
	}
	return q/2 - 100
}

func encryptionName(security string) string {
	security = strings.TrimSpace(security)
	switch {
	case security == "" || security == "--":
		return "OPEN"
	case strings.Contains(security, "WPA3"):
		return "WPA3"
	case strings.Contains(security, "WPA2") && strings.Contains(security, "WPA1"):
		return "WPA/WPA2"
	case strings.Contains(security, "WPA2"):
		return "WPA2"
	case strings.Contains(security, "WPA"):
		return "WPA"
	case strings.Contains(security, "WEP"):
		return "WEP"
	default:
		return security
	}
}
