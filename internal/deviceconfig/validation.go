package deviceconfig

import (
	"fmt"
	"strings"

	"github.com/onebiot/onebiot/internal/faults"
)

const (
	maxSSIDLength     = 32
	maxPasswordLength = 63
	minAPPassword     = 8
	maxDNSNameLength  = 63
	maxCredentialLen  = 64
)

// ValidateSSID validates a WiFi or access point SSID.
// Empty is allowed: it disables station mode or selects the default AP name.
func ValidateSSID(field, ssid string) error {
	if len(ssid) > maxSSIDLength {
		return faults.NewValidationError(fmt.Sprintf("%s too long (max %d bytes): %d bytes", field, maxSSIDLength, len(ssid)))
	}
	return nil
}

// ValidateWiFiPassword validates a station password. Anything up to the
// WPA2 maximum is accepted since the network decides what it requires.
func ValidateWiFiPassword(password string) error {
	if len(password) > maxPasswordLength {
		return faults.NewValidationError(fmt.Sprintf("wifi_password too long (max %d bytes): %d bytes", maxPasswordLength, len(password)))
	}
	return nil
}

// ValidateAPPassword validates the access point password.
// Empty means an open AP; otherwise WPA2 needs 8-63 characters.
func ValidateAPPassword(password string) error {
	if password == "" {
		return nil
	}
	if len(password) < minAPPassword {
		return faults.NewValidationError(fmt.Sprintf("ap_password too short (min %d chars): %d chars", minAPPassword, len(password)))
	}
	if len(password) > maxPasswordLength {
		return faults.NewValidationError(fmt.Sprintf("ap_password too long (max %d chars): %d chars", maxPasswordLength, len(password)))
	}
	return nil
}

// ValidateDNSName validates an mDNS host label. Empty selects the default.
func ValidateDNSName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > maxDNSNameLength {
		return faults.NewValidationError(fmt.Sprintf("dns_name too long (max %d chars): %d chars", maxDNSNameLength, len(name)))
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return faults.NewValidationError("dns_name cannot start or end with a hyphen")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return faults.NewValidationError(fmt.Sprintf("dns_name contains invalid character %q", r))
		}
	}
	return nil
}

// ValidateCredentials validates new admin credentials. Both are required.
func ValidateCredentials(user, password string) error {
	if user == "" || password == "" {
		return faults.NewValidationError("User and password are empty. Operation is not allowed.")
	}
	if strings.Contains(user, ":") {
		return faults.NewValidationError("user cannot contain ':'")
	}
	if len(user) > maxCredentialLen || len(password) > maxCredentialLen {
		return faults.NewValidationError(fmt.Sprintf("credentials too long (max %d chars)", maxCredentialLen))
	}
	return nil
}

// ValidateRecord validates every field of a record.
// Returns a slice of validation errors (empty if valid).
func ValidateRecord(rec Record) []error {
	var errs []error

	if err := ValidateSSID("wifi_ssid", rec.WiFiSSID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateWiFiPassword(rec.WiFiPassword); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateSSID("ap_ssid", rec.APSSID); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateAPPassword(rec.APPassword); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateDNSName(rec.DNSName); err != nil {
		errs = append(errs, err)
	}

	return errs
}
