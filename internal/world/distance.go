package world

import (
	"math"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
)

// Log-distance path loss parameters per frequency band. Higher bands
// attenuate faster and start from a lower reference strength at 1 m.
var pathLossExponent = map[domain.Band]float64{
	domain.Band24GHz: 2.8,
	domain.Band5GHz:  3.2,
	domain.Band6GHz:  3.5,
}

var referenceRSSI = map[domain.Band]float64{
	domain.Band24GHz: -30,
	domain.Band5GHz:  -35,
	domain.Band6GHz:  -38,
}

// Environment adjustment to the path loss exponent: open space loses
// less per decade, indoor clutter loses more.
var environmentDelta = map[config.Environment]float64{
	config.EnvIndoor:  0,
	config.EnvOutdoor: -0.4,
	config.EnvOpen:    -0.8,
}

const referenceDistanceMeters = 1.0

// EstimateDistance converts a strength reading to meters using the
// log-distance path loss model: d = d0 * 10^((ref - rssi) / (10 n)).
// Pure function; estimates are derived, never persisted as ground truth.
// The result is clamped to a plausible 0.5-100 m range.
func EstimateDistance(rssi int, band domain.Band, env config.Environment) float64 {
	n := pathLossExponent[band]
	if n == 0 {
		n = 3.0
	}
	n += environmentDelta[env]

	ref, ok := referenceRSSI[band]
	if !ok {
		ref = -32
	}

	exp := (ref - float64(rssi)) / (10 * n)
	d := referenceDistanceMeters * math.Pow(10, exp)

	return math.Max(0.5, math.Min(100, d))
}
