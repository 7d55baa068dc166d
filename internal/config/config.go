// Package config provides wifiradar's runtime configuration.
//
// Config file locations (priority order):
//  1. $WIFIRADAR_CONFIG
//  2. ./wifiradar.yaml
//
// Classifier thresholds and safety ceilings are values only; scan cadence
// and capture setup belong to the platform collaborators. Safety ceilings
// are clamped to hard-coded maximum-permissiveness bounds on load:
// configuration can tighten them, never loosen them.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment selects the path-loss profile for distance estimation.
type Environment string

const (
	EnvIndoor  Environment = "indoor"
	EnvOutdoor Environment = "outdoor"
	EnvOpen    Environment = "open"
)

// Thresholds holds the classification constants. The source material does
// not pin exact values; these defaults are validated against the scenario
// suite and are tunable.
type Thresholds struct {
	// Stability: variance of the last StabilityWindow samples (dBm^2).
	StabilityWindow     int     `yaml:"stability_window"`
	StableVarianceMax   float64 `yaml:"stable_variance_max"`
	UnstableVarianceMax float64 `yaml:"unstable_variance_max"`

	// Movement: sustained monotonic trend magnitude (dBm) and per-sample
	// rate (dBm/sample) over the same window.
	MovingTrendDBm     float64 `yaml:"moving_trend_dbm"`
	FastRatePerSample  float64 `yaml:"fast_rate_per_sample"`
	TrendMonotonicFrac float64 `yaml:"trend_monotonic_frac"`

	// Rogue score weights (0-100 total, clamped).
	RogueSecurityMismatch int `yaml:"rogue_security_mismatch"`
	RogueVendorMismatch   int `yaml:"rogue_vendor_mismatch"`
	RogueDuplicateName    int `yaml:"rogue_duplicate_name"`
	RogueRandomizedAP     int `yaml:"rogue_randomized_ap"`
	RogueAlertScore       int `yaml:"rogue_alert_score"`
}

// Config is the root configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// WorldCapacity is the emitter count above which least-recently-seen
	// eviction starts.
	WorldCapacity int `yaml:"world_capacity"`

	// FeedCapacity bounds the event feed FIFO.
	FeedCapacity int `yaml:"feed_capacity"`

	Thresholds Thresholds   `yaml:"thresholds"`
	Safety     SafetyLimits `yaml:"safety"`

	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// DatabaseConfig locates the sqlite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig configures the optional event export publisher.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// ScannerConfig configures the capture interface for the pcap scanner.
type ScannerConfig struct {
	Interface string        `yaml:"interface"`
	Dwell     time.Duration `yaml:"dwell"`
}

// HTTPConfig configures the SSE event hub listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load finds and loads the config file, or returns defaults if none found.
func Load() (*Config, string, error) {
	path := os.Getenv("WIFIRADAR_CONFIG")
	if path == "" {
		if _, err := os.Stat("./wifiradar.yaml"); err == nil {
			path = "./wifiradar.yaml"
		}
	}
	if path == "" {
		cfg := DefaultConfig()
		return cfg, "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	configured := cfg.Safety
	cfg.Safety.Clamp()
	warnClamped(configured, cfg.Safety)

	return &cfg, path, nil
}

// warnClamped reports configured safety values that exceeded a hard
// ceiling. The clamped value is what runs.
func warnClamped(configured, clamped SafetyLimits) {
	if configured.GlobalPerSecond > clamped.GlobalPerSecond {
		slog.Warn("safety limit clamped", "limit", "global_per_second",
			"configured", configured.GlobalPerSecond, "effective", clamped.GlobalPerSecond)
	}
	if configured.PerTargetInterval < clamped.PerTargetInterval {
		slog.Warn("safety limit clamped", "limit", "per_target_interval",
			"configured", configured.PerTargetInterval, "effective", clamped.PerTargetInterval)
	}
	if configured.PerChannelProbes > clamped.PerChannelProbes {
		slog.Warn("safety limit clamped", "limit", "per_channel_probes",
			"configured", configured.PerChannelProbes, "effective", clamped.PerChannelProbes)
	}
	if configured.BurstSize > clamped.BurstSize {
		slog.Warn("safety limit clamped", "limit", "burst_size",
			"configured", configured.BurstSize, "effective", clamped.BurstSize)
	}
	if configured.BurstCooldown < clamped.BurstCooldown {
		slog.Warn("safety limit clamped", "limit", "burst_cooldown",
			"configured", configured.BurstCooldown, "effective", clamped.BurstCooldown)
	}
}

// DefaultConfig returns sensible defaults for a new installation.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Safety.Clamp()
	return cfg
}

// DefaultThresholds returns the scenario-validated classifier defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StabilityWindow:     10,
		StableVarianceMax:   4.0,
		UnstableVarianceMax: 25.0,
		MovingTrendDBm:      5.0,
		FastRatePerSample:   2.0,
		TrendMonotonicFrac:  0.7,

		RogueSecurityMismatch: 45,
		RogueVendorMismatch:   25,
		RogueDuplicateName:    30,
		RogueRandomizedAP:     10,
		RogueAlertScore:       60,
	}
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvIndoor
	}
	if c.WorldCapacity == 0 {
		c.WorldCapacity = 1024
	}
	if c.FeedCapacity == 0 {
		c.FeedCapacity = 500
	}

	def := DefaultThresholds()
	if c.Thresholds.StabilityWindow == 0 {
		c.Thresholds.StabilityWindow = def.StabilityWindow
	}
	if c.Thresholds.StableVarianceMax == 0 {
		c.Thresholds.StableVarianceMax = def.StableVarianceMax
	}
	if c.Thresholds.UnstableVarianceMax == 0 {
		c.Thresholds.UnstableVarianceMax = def.UnstableVarianceMax
	}
	if c.Thresholds.MovingTrendDBm == 0 {
		c.Thresholds.MovingTrendDBm = def.MovingTrendDBm
	}
	if c.Thresholds.FastRatePerSample == 0 {
		c.Thresholds.FastRatePerSample = def.FastRatePerSample
	}
	if c.Thresholds.TrendMonotonicFrac == 0 {
		c.Thresholds.TrendMonotonicFrac = def.TrendMonotonicFrac
	}
	if c.Thresholds.RogueSecurityMismatch == 0 {
		c.Thresholds.RogueSecurityMismatch = def.RogueSecurityMismatch
	}
	if c.Thresholds.RogueVendorMismatch == 0 {
		c.Thresholds.RogueVendorMismatch = def.RogueVendorMismatch
	}
	if c.Thresholds.RogueDuplicateName == 0 {
		c.Thresholds.RogueDuplicateName = def.RogueDuplicateName
	}
	if c.Thresholds.RogueRandomizedAP == 0 {
		c.Thresholds.RogueRandomizedAP = def.RogueRandomizedAP
	}
	if c.Thresholds.RogueAlertScore == 0 {
		c.Thresholds.RogueAlertScore = def.RogueAlertScore
	}

	c.Safety.applyDefaults()

	if c.Database.Path == "" {
		c.Database.Path = "./wifiradar.db"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "wifiradar/events"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "wifiradar"
	}
	if c.Scanner.Dwell == 0 {
		c.Scanner.Dwell = 300 * time.Millisecond
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
}
