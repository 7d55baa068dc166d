package config

import "time"

// Hard ceilings for the safety gateway. Configuration may only tighten
// these; Clamp enforces that on every load path.
const (
	MaxGlobalPerSecond = 5
	MinTargetInterval  = 10 * time.Second
	MaxChannelProbes   = 3
	MaxBurstSize       = 10
	MinBurstCooldown   = 5 * time.Second
)

// DFSChannels are radar-sensitive 5 GHz channels (UNII-2A/2C and the
// extended set). Transmission on these is always excluded, with no
// override.
var DFSChannels = []int{
	52, 56, 60, 64,
	100, 104, 108, 112, 116,
	120, 124, 128, 132, 136, 140, 144,
}

// SafetyLimits are the gateway ceilings as configured. After Clamp they
// are guaranteed to be at or inside the hard bounds above.
type SafetyLimits struct {
	GlobalPerSecond   int           `yaml:"global_per_second"`
	PerTargetInterval time.Duration `yaml:"per_target_interval"`
	PerChannelProbes  int           `yaml:"per_channel_probes"`
	BurstSize         int           `yaml:"burst_size"`
	BurstWindow       time.Duration `yaml:"burst_window"`
	BurstCooldown     time.Duration `yaml:"burst_cooldown"`
	ExcludedChannels  []int         `yaml:"excluded_channels"`

	// ConfirmToken is the session-scoped arming confirmation; the probe
	// session cannot reach Active without it.
	ConfirmToken string `yaml:"confirm_token"`
}

func (s *SafetyLimits) applyDefaults() {
	if s.GlobalPerSecond == 0 {
		s.GlobalPerSecond = MaxGlobalPerSecond
	}
	if s.PerTargetInterval == 0 {
		s.PerTargetInterval = MinTargetInterval
	}
	if s.PerChannelProbes == 0 {
		s.PerChannelProbes = MaxChannelProbes
	}
	if s.BurstSize == 0 {
		s.BurstSize = MaxBurstSize
	}
	if s.BurstWindow == 0 {
		s.BurstWindow = 2 * time.Second
	}
	if s.BurstCooldown == 0 {
		s.BurstCooldown = MinBurstCooldown
	}
}

// Clamp tightens every limit to its hard bound and merges the DFS set
// into the excluded channels. Idempotent.
func (s *SafetyLimits) Clamp() {
	s.applyDefaults()

	if s.GlobalPerSecond > MaxGlobalPerSecond {
		s.GlobalPerSecond = MaxGlobalPerSecond
	}
	if s.PerTargetInterval < MinTargetInterval {
		s.PerTargetInterval = MinTargetInterval
	}
	if s.PerChannelProbes > MaxChannelProbes {
		s.PerChannelProbes = MaxChannelProbes
	}
	if s.BurstSize > MaxBurstSize {
		s.BurstSize = MaxBurstSize
	}
	if s.BurstCooldown < MinBurstCooldown {
		s.BurstCooldown = MinBurstCooldown
	}

	have := make(map[int]bool, len(s.ExcludedChannels))
	for _, ch := range s.ExcludedChannels {
		have[ch] = true
	}
	for _, ch := range DFSChannels {
		if !have[ch] {
			s.ExcludedChannels = append(s.ExcludedChannels, ch)
			have[ch] = true
		}
	}
}

// Excluded reports whether a channel is in the exclusion set.
func (s *SafetyLimits) Excluded(channel int) bool {
	for _, ch := range s.ExcludedChannels {
		if ch == channel {
			return true
		}
	}
	return false
}
