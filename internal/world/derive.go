package world

import (
	"math"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
)

// View is the read-only per-evaluation snapshot handed to the classifiers.
// Derived fields are recomputed from history at snapshot time; consumers
// must not retain a View across cycles.
type View struct {
	domain.EmitterRecord

	Stability      domain.StabilityState
	Movement       domain.MovementState
	DistanceMeters float64
}

func (m *Model) view(rec *domain.EmitterRecord) View {
	strengths := rec.History.Strengths()
	return View{
		EmitterRecord:  copyRecord(rec),
		Stability:      ClassifyStability(strengths, m.thresholds),
		Movement:       ClassifyMovement(strengths, m.thresholds),
		DistanceMeters: EstimateDistance(rec.RSSI, rec.Band, m.env),
	}
}

// ClassifyStability buckets the variance of the most recent window of
// strengths. Insufficient history is stable by definition, not erratic.
func ClassifyStability(strengths []float64, t config.Thresholds) domain.StabilityState {
	strengths = window(strengths, t.StabilityWindow)
	if len(strengths) < 2 {
		return domain.StabilityStable
	}
	v := variance(strengths)
	switch {
	case v < t.StableVarianceMax:
		return domain.StabilityStable
	case v < t.UnstableVarianceMax:
		return domain.StabilityUnstable
	default:
		return domain.StabilityErratic
	}
}

// ClassifyMovement looks for a sustained directional strength trend over
// the window. A mostly monotonic net change beyond MovingTrendDBm means
// the emitter (or the observer) is moving; a per-sample rate beyond
// FastRatePerSample upgrades that to fast_moving.
func ClassifyMovement(strengths []float64, t config.Thresholds) domain.MovementState {
	strengths = window(strengths, t.StabilityWindow)
	if len(strengths) < 3 {
		return domain.MovementStationary
	}

	net := strengths[len(strengths)-1] - strengths[0]
	if math.Abs(net) < t.MovingTrendDBm {
		return domain.MovementStationary
	}

	// Count steps agreeing with the net direction; a trend is only a
	// trend if most steps point the same way.
	agree := 0
	steps := len(strengths) - 1
	for i := 1; i < len(strengths); i++ {
		d := strengths[i] - strengths[i-1]
		if d == 0 || (d > 0) == (net > 0) {
			agree++
		}
	}
	if float64(agree)/float64(steps) < t.TrendMonotonicFrac {
		return domain.MovementStationary
	}

	if math.Abs(net)/float64(steps) >= t.FastRatePerSample {
		return domain.MovementFastMoving
	}
	return domain.MovementMoving
}

func window(values []float64, n int) []float64 {
	if n > 0 && len(values) > n {
		return values[len(values)-n:]
	}
	return values
}

func variance(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
