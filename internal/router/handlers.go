package router

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/deviceconfig"
	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/metrics"
	"github.com/onebiot/onebiot/internal/radio"
)

// optionNames lists the readable options in response order.
var optionNames = []string{
	"client_name",
	"credentials_user",
	"credentials_password",
	"wifi_ssid",
	"wifi_password",
	"ap_ssid",
	"ap_password",
	"dns_name",
}

var secretOptions = map[string]bool{
	"credentials_user":     true,
	"credentials_password": true,
	"wifi_password":        true,
	"ap_password":          true,
}

// optionValue resolves an allow-listed option. Secrets are always redacted.
func (r *Router) optionValue(name string) (string, bool) {
	if secretOptions[name] {
		return SecureValue, true
	}
	rec := r.store.Record()
	switch name {
	case "client_name":
		return r.store.ClientName(), true
	case "wifi_ssid":
		return rec.WiFiSSID, true
	case "ap_ssid":
		return rec.APSSID, true
	case "dns_name":
		return rec.DNSName, true
	default:
		return UnknownValue, false
	}
}

func (r *Router) option(req Request) Response {
	name := strings.TrimPrefix(strings.TrimSuffix(req.Path, "/"), optionPrefix)
	value, known := r.optionValue(name)

	resp := ok("", map[string]string{"name": name, "value": value})
	resp.Envelope.Success = known
	return resp
}

func (r *Router) wifiList(Request) Response {
	state, nets := r.radio.Scan()

	switch state {
	case radio.ScanRunning:
		return fail(http.StatusOK, "Scanning...")
	case radio.ScanFailed:
		r.radio.ClearScan()
		return fail(http.StatusOK, "Scanning failed.")
	case radio.ScanDone:
		r.radio.ClearScan()
		if len(nets) == 0 {
			return fail(http.StatusOK, "No WiFi networks founds.")
		}
		if len(nets) > MaxNetworks {
			nets = nets[:MaxNetworks]
		}
		return ok("", nets)
	default:
		if err := r.radio.StartScan(); err != nil {
			logging.Warn("WiFi scan could not start", zap.Error(err))
			r.radio.ClearScan()
			return fail(http.StatusOK, "Scanning failed.")
		}
		return fail(http.StatusOK, "Scanning...")
	}
}

func (r *Router) allStats(Request) Response {
	data := map[string]any{"device": r.stats.DeviceStats()}
	if st, err := r.stats.StorageStats(); err == nil {
		data["storage"] = st
	} else {
		logging.Debug("Storage stats unavailable", zap.Error(err))
	}
	return ok("", data)
}

func (r *Router) deviceStats(Request) Response {
	return ok("", r.stats.DeviceStats())
}

func (r *Router) storageStats(Request) Response {
	st, err := r.stats.StorageStats()
	if err != nil {
		return fail(http.StatusOK, "Storage is not available")
	}
	return ok("", st)
}

func (r *Router) wifiStatus(Request) Response {
	if r.radio.Status() != radio.StatusConnected {
		return fail(http.StatusOK, "ESP is disconnected from the WiFi")
	}
	link, err := r.radio.Link()
	if err != nil {
		return fail(http.StatusOK, "ESP is disconnected from the WiFi")
	}
	return ok("", link)
}

func (r *Router) apStatus(Request) Response {
	ap, err := r.radio.AccessPoint()
	if err != nil {
		return fail(http.StatusOK, "ESP has disconnected AP")
	}
	return ok("", ap)
}

func (r *Router) dnsStatus(Request) Response {
	name := r.store.DNSName()
	return ok("", map[string]any{
		"name":       name,
		"local_name": name + ".local",
		"establish":  r.store.Record().DNSEstablish,
	})
}

func (r *Router) reset(Request) Response {
	r.restart.RequestRestart("reset requested")
	return ok("Device restarting", nil)
}

func (r *Router) updateCredentials(req Request) Response {
	user := req.Form.Get("credentials_user")
	password := req.Form.Get("credentials_password")
	if err := deviceconfig.ValidateCredentials(user, password); err != nil {
		return fail(http.StatusBadRequest, faults.ShortMessage(err))
	}

	changedUser := r.store.SetCredentialsUser(user)
	changedPassword := r.store.SetCredentialsPassword(password)
	if changedUser || changedPassword {
		if resp, failed := r.save(); failed {
			return resp
		}
	}
	return ok("Credentials has been changed.", nil)
}

// field is one settable key of an update route.
type field struct {
	key      string
	validate func(string) error
	apply    func(string) bool
}

func (r *Router) updateWiFi(req Request) Response {
	return r.update(req, "WiFi", []field{
		{"wifi_ssid", func(v string) error { return deviceconfig.ValidateSSID("wifi_ssid", v) }, r.store.SetWiFiSSID},
		{"wifi_password", deviceconfig.ValidateWiFiPassword, r.store.SetWiFiPassword},
		{"wifi_establish", nil, func(v string) bool { return r.store.SetWiFiEstablish(deviceconfig.ParseFlag(v)) }},
	})
}

func (r *Router) updateAP(req Request) Response {
	return r.update(req, "AP", []field{
		{"ap_ssid", func(v string) error { return deviceconfig.ValidateSSID("ap_ssid", v) }, r.store.SetAPSSID},
		{"ap_password", deviceconfig.ValidateAPPassword, r.store.SetAPPassword},
		{"ap_establish", nil, func(v string) bool { return r.store.SetAPEstablish(deviceconfig.ParseFlag(v)) }},
	})
}

func (r *Router) updateDNS(req Request) Response {
	return r.update(req, "DNS", []field{
		{"dns_name", deviceconfig.ValidateDNSName, r.store.SetDNSName},
		{"dns_establish", nil, func(v string) bool { return r.store.SetDNSEstablish(deviceconfig.ParseFlag(v)) }},
	})
}

// update validates every present field, applies them all and saves once if
// anything changed. Nothing is applied when any field is invalid.
func (r *Router) update(req Request, label string, fields []field) Response {
	var present []field
	for _, f := range fields {
		if _, ok := req.Form[f.key]; !ok {
			continue
		}
		if f.validate != nil {
			if err := f.validate(req.Form.Get(f.key)); err != nil {
				return fail(http.StatusBadRequest, faults.ShortMessage(err))
			}
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		err := faults.NewValidationError(fmt.Sprintf("No %s settings in the request.", label))
		return fail(http.StatusBadRequest, faults.ShortMessage(err))
	}

	changed := false
	for _, f := range present {
		if f.apply(req.Form.Get(f.key)) {
			changed = true
		}
	}

	if changed {
		if resp, failed := r.save(); failed {
			return resp
		}
	}
	return ok(fmt.Sprintf("%s settings saved. Please restart the ESP.", label), nil)
}

func (r *Router) save() (Response, bool) {
	err := r.store.Save()
	metrics.SettingsSavesTotal.WithLabelValues(metrics.Result(err == nil)).Inc()
	if err != nil {
		logging.Error("Failed to save settings", zap.Error(err))
		return fail(http.StatusInternalServerError, faults.ShortMessage(err)), true
	}
	return Response{}, false
}
