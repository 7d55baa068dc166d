package domain

// Band represents a WiFi frequency band.
type Band string

const (
	Band24GHz Band = "2.4GHz"
	Band5GHz  Band = "5GHz"
	Band6GHz  Band = "6GHz"
)

// BandFromFrequency maps a center frequency in MHz to its band.
func BandFromFrequency(mhz int) Band {
	switch {
	case mhz < 3000:
		return Band24GHz
	case mhz < 5935:
		return Band5GHz
	default:
		return Band6GHz
	}
}

// ChannelToFrequency returns the center frequency in MHz for a channel.
// Channel 14 is the Japanese special case; channels above 14 follow the
// 5 GHz spacing.
func ChannelToFrequency(channel int) int {
	switch {
	case channel == 14:
		return 2484
	case channel >= 1 && channel <= 13:
		return 2407 + channel*5
	case channel >= 36 && channel <= 177:
		return 5000 + channel*5
	default:
		return 0
	}
}

// FrequencyToChannel inverts ChannelToFrequency.
func FrequencyToChannel(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5000:
		return (mhz - 5000) / 5
	default:
		return 0
	}
}

// Signal strength boundaries in dBm. The percent mapping is linear
// between RSSIMin and RSSIExcellent; values outside are clamped.
const (
	RSSIExcellent = -30
	RSSIGood      = -60
	RSSIFair      = -70
	RSSIWeak      = -80
	RSSIMin       = -90
)

// RSSIToPercent converts dBm to a 0-100 percentage.
func RSSIToPercent(rssi int) int {
	if rssi > RSSIExcellent {
		rssi = RSSIExcellent
	}
	if rssi < RSSIMin {
		rssi = RSSIMin
	}
	return (rssi - RSSIMin) * 100 / (RSSIExcellent - RSSIMin)
}

// SignalQuality returns a human-readable label for an RSSI value.
func SignalQuality(rssi int) string {
	switch pct := RSSIToPercent(rssi); {
	case pct >= 80:
		return "excellent"
	case pct >= 60:
		return "good"
	case pct >= 40:
		return "fair"
	default:
		return "weak"
	}
}
