package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ObservationSource records how a sighting was obtained.
type ObservationSource string

const (
	SourcePassive     ObservationSource = "passive"
	SourceActiveProbe ObservationSource = "active_probe"
)

// ErrMalformedObservation is returned when a raw sighting cannot be
// normalized into an Observation. The affected sighting is dropped; the
// scan cycle continues.
var ErrMalformedObservation = errors.New("malformed observation")

var addressPattern = regexp.MustCompile(`^([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// NormalizeAddress lowercases a hardware address and converts dash
// separators to colons. It does not validate.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(addr), "-", ":"))
}

// ValidAddress reports whether addr is a normalized colon-separated
// hardware address.
func ValidAddress(addr string) bool {
	return addressPattern.MatchString(addr)
}

// RawSighting is one emitter sighting as delivered by a Scanner
// collaborator, before normalization. Field values are trusted only after
// they survive Normalize.
type RawSighting struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Channel      int       `json:"channel"`
	FrequencyMHz int       `json:"frequency_mhz"`
	RSSI         int       `json:"rssi_dbm"`
	Security     string    `json:"security"`
	Capabilities []string  `json:"capabilities,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Observation is one canonical emitter sighting in one scan cycle.
// Immutable once created.
type Observation struct {
	Address      string            `json:"address"`
	Name         string            `json:"name"`
	Channel      int               `json:"channel"`
	Band         Band              `json:"band"`
	RSSI         int               `json:"rssi_dbm"`
	Security     SecurityType      `json:"security"`
	Capabilities []string          `json:"capabilities,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Source       ObservationSource `json:"source"`
}

// Hidden reports whether the emitter advertised no name.
func (o Observation) Hidden() bool {
	return strings.TrimSpace(o.Name) == ""
}

// Normalize converts a raw sighting into an Observation. The address is
// required and must be a hardware address; channel and frequency are
// reconciled (either may be absent, both present must agree on band).
func Normalize(raw RawSighting, source ObservationSource) (Observation, error) {
	addr := NormalizeAddress(raw.Address)
	if !ValidAddress(addr) {
		return Observation{}, fmt.Errorf("%w: address %q", ErrMalformedObservation, raw.Address)
	}
	if raw.Timestamp.IsZero() {
		return Observation{}, fmt.Errorf("%w: %s missing timestamp", ErrMalformedObservation, addr)
	}

	channel := raw.Channel
	freq := raw.FrequencyMHz
	if channel == 0 && freq == 0 {
		return Observation{}, fmt.Errorf("%w: %s has neither channel nor frequency", ErrMalformedObservation, addr)
	}
	if channel == 0 {
		channel = FrequencyToChannel(freq)
	}
	if freq == 0 {
		freq = ChannelToFrequency(channel)
	}

	return Observation{
		Address:      addr,
		Name:         strings.TrimSpace(raw.Name),
		Channel:      channel,
		Band:         BandFromFrequency(freq),
		RSSI:         raw.RSSI,
		Security:     ParseSecurity(raw.Security),
		Capabilities: raw.Capabilities,
		Timestamp:    raw.Timestamp,
		Source:       source,
	}, nil
}
