package deviceconfig

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	// DefaultAPSSID is the access point name used while ap_ssid is empty.
	DefaultAPSSID = "ONEBIOT.local"

	// DefaultDNSName is the mDNS name used while dns_name is empty.
	DefaultDNSName = "onebiot"

	// ClientNamePrefix starts every generated client name.
	ClientNamePrefix = "1biot-"

	// DefaultPath is where the record lives on storage.
	DefaultPath = "/config.json"

	// BackupSuffix is appended to the record path while a save is in flight.
	BackupSuffix = ".bak"
)

// Record is the persisted device configuration.
// Empty ClientName, APSSID and DNSName mean "use the default"; the defaults
// are resolved by the Store getters and never written back.
type Record struct {
	// Control API admin credentials (HTTP Basic).
	CredentialsUser     string `json:"credentials_user"`
	CredentialsPassword string `json:"credentials_password"`

	// Device identity.
	ClientName string `json:"client_name"`

	// WiFi client (station) mode.
	WiFiSSID      string `json:"wifi_ssid"`
	WiFiPassword  string `json:"wifi_password"`
	WiFiEstablish bool   `json:"wifi_establish"`

	// Fallback access point.
	APSSID      string `json:"ap_ssid"`
	APPassword  string `json:"ap_password"`
	APEstablish bool   `json:"ap_establish"`

	// mDNS advertisement.
	DNSName      string `json:"dns_name"`
	DNSEstablish bool   `json:"dns_establish"`
}

// flexBool decodes the boolean spellings older firmware wrote: JSON booleans,
// the strings "1"/"0" and the numbers 1/0.
type flexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)

	switch {
	case bytes.Equal(raw, []byte("null")):
		return nil
	case bytes.Equal(raw, []byte("true")):
		*b = true
		return nil
	case bytes.Equal(raw, []byte("false")):
		*b = false
		return nil
	case len(raw) > 0 && raw[0] == '"':
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return fmt.Errorf("invalid boolean string %s: %w", raw, err)
		}
		*b = flexBool(ParseFlag(s))
		return nil
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return fmt.Errorf("invalid boolean value %s", raw)
		}
		*b = n != 0
		return nil
	}
}

// ParseFlag interprets a form or string value as a boolean. "1", "true",
// "on" and "yes" are true; anything else is false.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

// recordWire is the decode-side shape of Record.
type recordWire struct {
	CredentialsUser     string   `json:"credentials_user"`
	CredentialsPassword string   `json:"credentials_password"`
	ClientName          string   `json:"client_name"`
	WiFiSSID            string   `json:"wifi_ssid"`
	WiFiPassword        string   `json:"wifi_password"`
	WiFiEstablish       flexBool `json:"wifi_establish"`
	APSSID              string   `json:"ap_ssid"`
	APPassword          string   `json:"ap_password"`
	APEstablish         flexBool `json:"ap_establish"`
	DNSName             string   `json:"dns_name"`
	DNSEstablish        flexBool `json:"dns_establish"`
}

// EncodeRecord serializes the full record. Booleans are always JSON booleans.
func EncodeRecord(rec Record) ([]byte, error) {
	return sonic.ConfigStd.Marshal(rec)
}

// DecodeRecord parses a persisted record. Unknown keys are ignored and
// missing keys keep their zero value.
func DecodeRecord(data []byte) (Record, error) {
	var w recordWire
	if err := sonic.ConfigStd.Unmarshal(data, &w); err != nil {
		return Record{}, err
	}

	return Record{
		CredentialsUser:     w.CredentialsUser,
		CredentialsPassword: w.CredentialsPassword,
		ClientName:          w.ClientName,
		WiFiSSID:            w.WiFiSSID,
		WiFiPassword:        w.WiFiPassword,
		WiFiEstablish:       bool(w.WiFiEstablish),
		APSSID:              w.APSSID,
		APPassword:          w.APPassword,
		APEstablish:         bool(w.APEstablish),
		DNSName:             w.DNSName,
		DNSEstablish:        bool(w.DNSEstablish),
	}, nil
}

// String returns a summary of the record with secrets masked.
func (r Record) String() string {
	mask := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return "********"
	}
	return fmt.Sprintf("client=%q wifi=%q/%s establish=%v ap=%q/%s establish=%v dns=%q establish=%v admin=%q/%s",
		r.ClientName,
		r.WiFiSSID, mask(r.WiFiPassword), r.WiFiEstablish,
		r.APSSID, mask(r.APPassword), r.APEstablish,
		r.DNSName, r.DNSEstablish,
		r.CredentialsUser, mask(r.CredentialsPassword))
}
