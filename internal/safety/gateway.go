package safety

import (
	"sync"
	"time"

	"wifiradar/internal/config"
)

// RejectReason identifies which gateway rule rejected an operation.
// Rejections are expected outcomes under normal operation, not errors.
type RejectReason string

const (
	// ReasonFrameType exists for completeness of the rule set; the
	// closed Operation type makes it unreachable through the public API.
	ReasonFrameType       RejectReason = "frame_type"
	ReasonRateLimit       RejectReason = "rate_limit"
	ReasonPerTarget       RejectReason = "per_target"
	ReasonPerChannel      RejectReason = "per_channel"
	ReasonBurstCooldown   RejectReason = "burst_cooldown"
	ReasonExcludedChannel RejectReason = "excluded_channel"
)

// Decision is the outcome of a gateway request.
type Decision struct {
	Accepted bool
	Reason   RejectReason // set when rejected
}

func accepted() Decision { return Decision{Accepted: true} }

func rejected(r RejectReason) Decision { return Decision{Reason: r} }

// Gateway serializes all transmit decisions. Its internal SafetyState is
// owned exclusively here; check and counter update happen under one lock
// so concurrent callers can never overrun a limit.
type Gateway struct {
	limits config.SafetyLimits
	now    func() time.Time

	mu            sync.Mutex
	tokens        float64
	lastRefill    time.Time
	perTarget     map[string]time.Time
	channelCounts map[int]int
	currentChan   int
	burstTimes    []time.Time
	cooldownUntil time.Time

	acceptedCount int64
	rejectedCount int64
}

// NewGateway builds a gateway from clamped limits. Limits are re-clamped
// defensively; a gateway must never run with loosened ceilings.
func NewGateway(limits config.SafetyLimits) *Gateway {
	return newGateway(limits, time.Now)
}

func newGateway(limits config.SafetyLimits, now func() time.Time) *Gateway {
	limits.Clamp()
	return &Gateway{
		limits:        limits,
		now:           now,
		tokens:        float64(limits.GlobalPerSecond),
		lastRefill:    now(),
		perTarget:     make(map[string]time.Time),
		channelCounts: make(map[int]int),
	}
}

// Request evaluates the safety rules in order and rejects on the first
// failure. On acceptance all counters are updated atomically with the
// check; a rejected request consumes nothing.
func (g *Gateway) Request(op Operation) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.refill(now)

	// Rule 1, frame-type whitelist, is enforced by the Operation type.

	// Rule 2: global token bucket with a hard ceiling.
	if g.tokens < 1 {
		g.rejectedCount++
		return rejected(ReasonRateLimit)
	}

	// Rule 3: at most one directed probe per target per interval.
	target := ""
	if d, ok := op.(DirectedProbe); ok {
		target = d.Target
		if last, seen := g.perTarget[target]; seen && now.Sub(last) < g.limits.PerTargetInterval {
			g.rejectedCount++
			return rejected(ReasonPerTarget)
		}
	}

	// Rule 4: bounded probes per channel-dwell visit. A channel switch
	// starts a new visit and resets the dwell counter.
	if _, isSwitch := op.(ChannelSwitch); !isSwitch {
		if g.channelCounts[op.Channel()] >= g.limits.PerChannelProbes {
			g.rejectedCount++
			return rejected(ReasonPerChannel)
		}
	}

	// Rule 5: burst cooldown after too many accepted operations in a
	// short window.
	if now.Before(g.cooldownUntil) {
		g.rejectedCount++
		return rejected(ReasonBurstCooldown)
	}

	// Rule 6: excluded (radar-sensitive) channels, no override.
	if g.limits.Excluded(op.Channel()) {
		g.rejectedCount++
		return rejected(ReasonExcludedChannel)
	}

	// All rules passed; commit.
	g.tokens--
	if target != "" {
		g.perTarget[target] = now
	}
	if _, isSwitch := op.(ChannelSwitch); isSwitch {
		g.currentChan = op.Channel()
		g.channelCounts[op.Channel()] = 0
	} else {
		g.channelCounts[op.Channel()]++
	}
	g.recordBurst(now)
	g.acceptedCount++
	return accepted()
}

// refill adds tokens at the global rate, capped at one second's worth so
// an idle gateway cannot bank a burst above the rolling ceiling.
func (g *Gateway) refill(now time.Time) {
	elapsed := now.Sub(g.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	g.tokens += elapsed * float64(g.limits.GlobalPerSecond)
	if ceiling := float64(g.limits.GlobalPerSecond); g.tokens > ceiling {
		g.tokens = ceiling
	}
	g.lastRefill = now
}

func (g *Gateway) recordBurst(now time.Time) {
	cutoff := now.Add(-g.limits.BurstWindow)
	kept := g.burstTimes[:0]
	for _, t := range g.burstTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.burstTimes = append(kept, now)
	if len(g.burstTimes) >= g.limits.BurstSize {
		g.cooldownUntil = now.Add(g.limits.BurstCooldown)
		g.burstTimes = g.burstTimes[:0]
	}
}

// Stats reports accepted/rejected totals for the rejection-rate watchdog.
func (g *Gateway) Stats() (accepted, rejected int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acceptedCount, g.rejectedCount
}
