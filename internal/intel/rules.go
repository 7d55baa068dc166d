package intel

import (
	"fmt"
	"strings"

	"wifiradar/internal/domain"
	"wifiradar/internal/world"
)

// ruleContext is the read-only state a rule may consult. Rules are pure
// functions of it; none holds its own mutable history.
type ruleContext struct {
	view    world.View
	profile *domain.HiddenNetworkProfile // nil for visible emitters
	core    *Core
}

// deviceRule contributes a weighted score toward one device type.
// Highest aggregate wins; ties break toward unknown.
type deviceRule struct {
	deviceType DeviceType
	weight     int
	match      func(world.View) bool
}

var deviceRules = []deviceRule{
	{DeviceRouter, 40, func(v world.View) bool {
		return v.Name != "" && (v.Vendor.Class == domain.ClassConsumer ||
			v.Vendor.Class == domain.ClassISP || v.Vendor.Class == domain.ClassMesh ||
			v.Vendor.Class == domain.ClassEnterprise)
	}},
	{DeviceRouter, 15, func(v world.View) bool { return v.Movement == domain.MovementStationary && v.Name != "" }},
	{DeviceMobile, 45, func(v world.View) bool { return v.Vendor.Class == domain.ClassMobile }},
	{DeviceMobile, 20, func(v world.View) bool {
		return v.Vendor.Class == domain.ClassRandomized && v.Movement != domain.MovementStationary
	}},
	{DeviceIoT, 45, func(v world.View) bool { return v.Vendor.Class == domain.ClassIoT }},
	{DeviceIoT, 10, func(v world.View) bool { return hasCapability(v, "low-rate") }},
	{DeviceCamera, 35, func(v world.View) bool { return nameContains(v, "cam", "camera", "ring", "doorbell") }},
	{DeviceSpeaker, 35, func(v world.View) bool { return nameContains(v, "sonos", "echo", "homepod", "speaker") }},
	{DeviceGaming, 35, func(v world.View) bool { return nameContains(v, "xbox", "playstation", "nintendo", "ps4", "ps5") }},
	{DevicePrinter, 35, func(v world.View) bool { return nameContains(v, "printer", "epson", "hp-print", "canon", "brother") }},
	{DeviceComputer, 25, func(v world.View) bool { return nameContains(v, "macbook", "laptop", "desktop", "-pc") }},
}

// threatRule evaluates one detection independently and emits zero or one
// event per evaluation. Rules de-duplicate per subject address unless
// key widens the scope.
type threatRule struct {
	name string
	eval func(ruleContext) *domain.Event
	key  func(ruleContext, *domain.Event) string
}

var threatRules = []threatRule{
	{name: "weak_encryption", eval: evalWeakEncryption},
	{name: "ssid_spoofing", eval: evalSSIDSpoofing, key: spoofPairKey},
	{name: "rogue_ap", eval: evalRogueAP},
	{name: "channel_anomaly", eval: evalChannelAnomaly},
	{name: "hidden_high_rogue", eval: evalHiddenHighRogue},
}

// Open or WEP emitters are always flagged regardless of other signals.
func evalWeakEncryption(rc ruleContext) *domain.Event {
	if !rc.view.Security.Weak() {
		return nil
	}
	sev := domain.SeverityHigh
	if rc.view.Security == domain.SecurityOpen {
		sev = domain.SeverityCritical
	}
	return &domain.Event{
		Category: domain.EventThreat,
		Severity: sev,
		Subject:  rc.view.Address,
		Summary:  fmt.Sprintf("%s uses %s encryption", rc.view.DisplayName(), rc.view.Security),
		Detail: map[string]any{
			"rule":     "weak_encryption",
			"security": string(rc.view.Security),
		},
	}
}

// Duplicate visible name across addresses with divergent vendor or
// capabilities and no relationship edge is the spoof pattern.
func evalSSIDSpoofing(rc ruleContext) *domain.Event {
	if rc.view.Name == "" {
		return nil
	}
	for _, other := range rc.core.model.WithName(rc.view.Name) {
		if other.Address == rc.view.Address {
			continue
		}
		divergent := other.Vendor.Class != rc.view.Vendor.Class ||
			(other.Security != rc.view.Security &&
				other.Security != domain.SecurityUnknown && rc.view.Security != domain.SecurityUnknown)
		if !divergent || rc.core.model.VerifiedMesh(rc.view.Address, other.Address) {
			continue
		}
		return &domain.Event{
			Category: domain.EventThreat,
			Severity: domain.SeverityHigh,
			Subject:  rc.view.Address,
			Summary:  fmt.Sprintf("possible SSID spoofing of %q", rc.view.Name),
			Detail: map[string]any{
				"rule":          "ssid_spoofing",
				"name":          rc.view.Name,
				"peer":          other.Address,
				"vendor":        string(rc.view.Vendor.Class),
				"peer_vendor":   string(other.Vendor.Class),
				"security":      string(rc.view.Security),
				"peer_security": string(other.Security),
			},
		}
	}
	return nil
}

// spoofPairKey scopes de-duplication to the address pair so the spoof
// fires once regardless of which side is evaluated first.
func spoofPairKey(rc ruleContext, ev *domain.Event) string {
	peer, _ := ev.Detail["peer"].(string)
	a, b := rc.view.Address, peer
	if b < a {
		a, b = b, a
	}
	return a + "+" + b
}

// A randomized-address emitter impersonating infrastructure naming with
// erratic signal is the rogue-AP heuristic.
func evalRogueAP(rc ruleContext) *domain.Event {
	if rc.view.Vendor.Class != domain.ClassRandomized || rc.view.Name == "" {
		return nil
	}
	if rc.view.Stability != domain.StabilityErratic {
		return nil
	}
	return &domain.Event{
		Category: domain.EventThreat,
		Severity: domain.SeverityMedium,
		Subject:  rc.view.Address,
		Summary:  fmt.Sprintf("rogue AP heuristic: randomized address serving %q with erratic signal", rc.view.Name),
		Detail: map[string]any{
			"rule":      "rogue_ap",
			"name":      rc.view.Name,
			"stability": string(rc.view.Stability),
		},
	}
}

const channelHopThreshold = 3

func evalChannelAnomaly(rc ruleContext) *domain.Event {
	if rc.view.ChannelChanges < channelHopThreshold {
		return nil
	}
	return &domain.Event{
		Category: domain.EventThreat,
		Severity: domain.SeverityMedium,
		Subject:  rc.view.Address,
		Summary:  fmt.Sprintf("%s hopped channels %d times", rc.view.DisplayName(), rc.view.ChannelChanges),
		Detail: map[string]any{
			"rule":    "channel_anomaly",
			"hops":    rc.view.ChannelChanges,
			"channel": rc.view.Channel,
		},
	}
}

func evalHiddenHighRogue(rc ruleContext) *domain.Event {
	if rc.profile == nil || rc.profile.RogueScore < rc.core.thresholds.RogueAlertScore {
		return nil
	}
	return &domain.Event{
		Category: domain.EventThreat,
		Severity: domain.SeverityHigh,
		Subject:  rc.view.Address,
		Summary:  fmt.Sprintf("hidden emitter with elevated rogue score %d", rc.profile.RogueScore),
		Detail: map[string]any{
			"rule":        "hidden_high_rogue",
			"rogue_score": rc.profile.RogueScore,
			"class":       string(rc.profile.Class),
		},
	}
}

func nameContains(v world.View, words ...string) bool {
	name := strings.ToLower(v.DisplayName())
	for _, w := range words {
		if strings.Contains(name, w) {
			return true
		}
	}
	return false
}

func hasCapability(v world.View, cap string) bool {
	for _, c := range v.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}
