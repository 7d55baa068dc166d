package domain

import "strings"

// SecurityType represents the declared encryption of an emitter.
type SecurityType string

const (
	SecurityOpen           SecurityType = "open"
	SecurityWEP            SecurityType = "wep"
	SecurityWPA            SecurityType = "wpa"
	SecurityWPA2           SecurityType = "wpa2"
	SecurityWPA3           SecurityType = "wpa3"
	SecurityWPA2Enterprise SecurityType = "wpa2_enterprise"
	SecurityWPA3Enterprise SecurityType = "wpa3_enterprise"
	SecurityUnknown        SecurityType = "unknown"
)

// ParseSecurity maps a scanner-reported security string to a SecurityType.
func ParseSecurity(s string) SecurityType {
	switch v := strings.ToLower(strings.TrimSpace(s)); {
	case v == "" || v == "unknown":
		return SecurityUnknown
	case strings.Contains(v, "wpa3") && strings.Contains(v, "enterprise"):
		return SecurityWPA3Enterprise
	case strings.Contains(v, "wpa2") && strings.Contains(v, "enterprise"):
		return SecurityWPA2Enterprise
	case strings.Contains(v, "wpa3"):
		return SecurityWPA3
	case strings.Contains(v, "wpa2"):
		return SecurityWPA2
	case strings.Contains(v, "wpa"):
		return SecurityWPA
	case strings.Contains(v, "wep"):
		return SecurityWEP
	case strings.Contains(v, "open") || v == "none":
		return SecurityOpen
	default:
		return SecurityUnknown
	}
}

// Strength returns an ordering for security comparison: higher is stronger.
func (s SecurityType) Strength() int {
	switch s {
	case SecurityOpen:
		return 0
	case SecurityWEP:
		return 1
	case SecurityWPA:
		return 2
	case SecurityWPA2:
		return 3
	case SecurityWPA2Enterprise:
		return 4
	case SecurityWPA3:
		return 5
	case SecurityWPA3Enterprise:
		return 6
	default:
		return 2 // unknown is treated mid-range, never "weak"
	}
}

// Weak reports whether the declared encryption is always flagged
// regardless of any other signal.
func (s SecurityType) Weak() bool {
	return s == SecurityOpen || s == SecurityWEP
}

// Enterprise reports whether the emitter declares enterprise auth.
func (s SecurityType) Enterprise() bool {
	return s == SecurityWPA2Enterprise || s == SecurityWPA3Enterprise
}
