// Package validate normalizes and validates device payloads.
//
// The same per-field rules apply to create and update; create additionally
// requires every field to be present. Validation collects every field error
// before failing so callers can report all problems at once.
package validate

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
)

const maxFieldLen = 100

// AllowedDeviceTypes lists the accepted device_type values (lowercase).
var AllowedDeviceTypes = []string{"other", "router", "server", "switch"}

// Payload is a raw device payload. Pointer fields distinguish "absent"
// from "present but empty", which partial updates depend on.
type Payload struct {
	Name       *string `json:"name"`
	IPAddress  *string `json:"ip_address"`
	DeviceType *string `json:"device_type"`
	Location   *string `json:"location"`
	Status     *string `json:"status"`
}

// Fields is a validated, normalized set of device fields. Nil pointers mean
// the field was not supplied and must be left untouched by an update.
type Fields struct {
	Name       *string
	IPAddress  *string
	DeviceType *string
	Location   *string
	Status     *string
}

// IsEmpty reports whether no field is set.
func (f Fields) IsEmpty() bool {
	return f.Name == nil && f.IPAddress == nil && f.DeviceType == nil &&
		f.Location == nil && f.Status == nil
}

// FieldErrors reports validation failures keyed by field name.
type FieldErrors struct {
	Fields map[string]string
}

func (e *FieldErrors) Error() string {
	if len(e.Fields) == 0 {
		return "invalid device payload"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid device payload: " + strings.Join(parts, "; ")
}

func newFieldErrors() *FieldErrors {
	return &FieldErrors{Fields: make(map[string]string)}
}

// cleanStr trims whitespace and enforces an optional maximum length in
// characters, not bytes, so multi-byte text is never cut mid-rune.
// Truncation happens before the final trim so a cut mid-word never leaves
// trailing whitespace behind.
func cleanStr(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if maxLen > 0 {
		if runes := []rune(s); len(runes) > maxLen {
			s = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return s
}

func isIPv4(s string) bool {
	addr, err := netip.ParseAddr(s)
	return err == nil && addr.Is4()
}

func isAllowedDeviceType(s string) bool {
	for _, t := range AllowedDeviceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// Normalize returns a copy of the payload with string fields trimmed,
// device_type and status lowercased, and name/location capped at 100 chars.
// The input is not mutated.
func Normalize(p Payload) Payload {
	out := Payload{}
	if p.Name != nil {
		v := cleanStr(*p.Name, maxFieldLen)
		out.Name = &v
	}
	if p.IPAddress != nil {
		v := cleanStr(*p.IPAddress, 0)
		out.IPAddress = &v
	}
	if p.DeviceType != nil {
		v := strings.ToLower(cleanStr(*p.DeviceType, 0))
		out.DeviceType = &v
	}
	if p.Location != nil {
		v := cleanStr(*p.Location, maxFieldLen)
		out.Location = &v
	}
	if p.Status != nil {
		v := strings.ToLower(cleanStr(*p.Status, 0))
		out.Status = &v
	}
	return out
}

// validateCommon applies the per-field rules shared by create and update.
// A field is checked when requireAll is set or when it was supplied.
func validateCommon(p Payload, requireAll bool) (Fields, *FieldErrors) {
	errs := newFieldErrors()
	var clean Fields

	require := func(field *string) bool {
		return requireAll || field != nil
	}
	value := func(field *string) string {
		if field == nil {
			return ""
		}
		return *field
	}

	if require(p.Name) {
		name := value(p.Name)
		if name == "" {
			errs.Fields["name"] = "name is required and cannot be empty"
		} else {
			clean.Name = &name
		}
	}

	if require(p.IPAddress) {
		ip := value(p.IPAddress)
		switch {
		case ip == "":
			errs.Fields["ip_address"] = "IP address is required and cannot be empty"
		case !isIPv4(ip):
			errs.Fields["ip_address"] = "IP address must be a valid IPv4 address"
		default:
			clean.IPAddress = &ip
		}
	}

	if require(p.DeviceType) {
		dtype := value(p.DeviceType)
		switch {
		case dtype == "":
			errs.Fields["device_type"] = "device type is required and cannot be empty"
		case !isAllowedDeviceType(dtype):
			errs.Fields["device_type"] = fmt.Sprintf(
				"device type must be one of: %s", strings.Join(AllowedDeviceTypes, ", "))
		default:
			clean.DeviceType = &dtype
		}
	}

	if require(p.Location) {
		loc := value(p.Location)
		if loc == "" {
			errs.Fields["location"] = "location is required and cannot be empty"
		} else {
			clean.Location = &loc
		}
	}

	// status is passthrough: kept when supplied and non-empty, never an error.
	if p.Status != nil && *p.Status != "" {
		clean.Status = p.Status
	}

	if len(errs.Fields) > 0 {
		return Fields{}, errs
	}
	return clean, nil
}

// ValidateCreate validates a payload for device creation. All of name,
// ip_address, device_type and location must be present and valid.
func ValidateCreate(p Payload) (Fields, error) {
	normalized := Normalize(p)
	clean, errs := validateCommon(normalized, true)
	if errs != nil {
		return Fields{}, errs
	}
	return clean, nil
}

// ValidateUpdate validates a payload for a partial update. Every field is
// optional, but a supplied field must pass the same rule as on create. A
// payload with no fields, or whose fields all normalize away, is rejected.
func ValidateUpdate(p Payload) (Fields, error) {
	normalized := Normalize(p)
	if normalized == (Payload{}) {
		return Fields{}, &FieldErrors{Fields: map[string]string{
			"payload": "no fields provided for update",
		}}
	}

	clean, errs := validateCommon(normalized, false)
	if errs != nil {
		return Fields{}, errs
	}
	if clean.IsEmpty() {
		return Fields{}, &FieldErrors{Fields: map[string]string{
			"payload": "no valid fields provided for update",
		}}
	}
	return clean, nil
}
