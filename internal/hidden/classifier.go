// Package hidden implements the hidden network classification engine:
// reveal bookkeeping, type labeling, and rogue scoring for emitters that
// advertise no name.
package hidden

import (
	"fmt"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/vendor"
	"wifiradar/internal/world"
)

// Classifier analyzes nameless emitters against the rest of the world
// model. It owns only the candidate-name trial state; everything else is
// recomputed per call from model views.
type Classifier struct {
	model      *world.Model
	thresholds config.Thresholds
	trials     map[string][]domain.CandidateTrial
}

// NewClassifier returns a classifier bound to a world model.
func NewClassifier(model *world.Model, cfg *config.Config) *Classifier {
	return &Classifier{
		model:      model,
		thresholds: cfg.Thresholds,
		trials:     make(map[string][]domain.CandidateTrial),
	}
}

// RecordPassiveReveal adopts a name captured incidentally from another
// device's traffic. Passive correlation is the highest-trust method.
func (c *Classifier) RecordPassiveReveal(addr, name string) bool {
	c.recordTrial(addr, domain.CandidateTrial{Name: name, Method: domain.RevealPassive, Matched: true})
	return c.model.CommitReveal(addr, name, domain.RevealPassive)
}

// RecordProbeResult records the outcome of one directed-probe candidate
// attempt. A match commits the revealed name at probe confidence.
func (c *Classifier) RecordProbeResult(addr, name string, matched bool) bool {
	c.recordTrial(addr, domain.CandidateTrial{Name: name, Method: domain.RevealProbe, Matched: matched})
	if !matched {
		return false
	}
	return c.model.CommitReveal(addr, name, domain.RevealProbe)
}

// Tried reports whether a candidate name was already attempted for addr.
func (c *Classifier) Tried(addr, name string) bool {
	for _, t := range c.trials[addr] {
		if t.Name == name {
			return true
		}
	}
	return false
}

func (c *Classifier) recordTrial(addr string, trial domain.CandidateTrial) {
	c.trials[addr] = append(c.trials[addr], trial)
}

// Classify produces the derived profile for a hidden emitter. Called for
// emitters whose revealed name is absent; once a reveal lands the profile
// keeps the revealed name as a classification input.
func (c *Classifier) Classify(addr string) (domain.HiddenNetworkProfile, error) {
	view, ok := c.model.Snapshot(addr)
	if !ok {
		return domain.HiddenNetworkProfile{}, fmt.Errorf("classify %s: unknown emitter", addr)
	}

	profile := domain.HiddenNetworkProfile{
		Address: addr,
		Trials:  append([]domain.CandidateTrial(nil), c.trials[addr]...),
	}

	// Strategy 2: vendor/mesh correlation proposes a candidate name.
	// Never committed as the revealed name, only a classification input.
	if name, conf := c.correlateSibling(view); name != "" {
		profile.CandidateName = name
		profile.CandidateConfidence = conf
	}

	profile.RogueScore = c.rogueScore(view)
	profile.Class = c.classify(view, profile)
	return profile, nil
}

// correlateSibling finds an already-named emitter sharing vendor class,
// channel, and strength cluster, and proposes its name scaled by
// similarity.
func (c *Classifier) correlateSibling(view world.View) (string, int) {
	bestName := ""
	bestConf := 0
	for _, sibling := range c.model.NamedOnChannel(view.Channel) {
		if sibling.Address == view.Address {
			continue
		}
		if sibling.Vendor.Class != view.Vendor.Class {
			continue
		}
		conf := 50
		if diff := view.RSSI - sibling.RSSI; diff >= -10 && diff <= 10 {
			conf += 25
		}
		if sibling.Vendor.Manufacturer == view.Vendor.Manufacturer {
			conf += 15
		}
		if conf > bestConf {
			bestName, bestConf = sibling.Name, conf
		}
	}
	return bestName, bestConf
}

// classify applies the fixed decision table, first match wins.
func (c *Classifier) classify(view world.View, profile domain.HiddenNetworkProfile) domain.HiddenClass {
	if profile.RogueScore >= c.thresholds.RogueAlertScore {
		return domain.HiddenRogueCandidate
	}
	if c.hasVisibleSiblings(view) {
		return domain.HiddenMeshNode
	}
	if view.Vendor.Class == domain.ClassEnterprise {
		return domain.HiddenEnterpriseBackhaul
	}
	if view.Vendor.Class == domain.ClassIoT {
		return domain.HiddenIoTHub
	}
	if vendor.Randomized(view.Address) && shortSpan(view) {
		return domain.HiddenGuestIsolated
	}
	if legacyCapabilities(view.Capabilities) {
		return domain.HiddenLegacyDevice
	}
	return domain.HiddenUnknown
}

func (c *Classifier) hasVisibleSiblings(view world.View) bool {
	for _, sibling := range c.model.NamedOnChannel(view.Channel) {
		if sibling.Address != view.Address && sibling.Vendor.Class == view.Vendor.Class {
			return true
		}
	}
	return false
}

// rogueScore accumulates spoof evidence: a claimed name colliding with a
// known-good network under mismatched security or vendor, duplicate
// names without a verified mesh relationship, and a randomized-address
// AP claiming infrastructure.
func (c *Classifier) rogueScore(view world.View) int {
	score := 0
	claimed := view.Name
	if claimed == "" {
		claimed = view.RevealedName
	}

	if claimed != "" {
		for _, other := range c.model.WithName(claimed) {
			if other.Address == view.Address {
				continue
			}
			if other.Security != view.Security && view.Security != domain.SecurityUnknown {
				score += c.thresholds.RogueSecurityMismatch
			}
			if other.Vendor.Class != view.Vendor.Class {
				score += c.thresholds.RogueVendorMismatch
			}
			if !c.model.VerifiedMesh(view.Address, other.Address) {
				score += c.thresholds.RogueDuplicateName
			}
		}
	}

	if view.Vendor.Class == domain.ClassRandomized && view.ObservationCount >= 5 {
		score += c.thresholds.RogueRandomizedAP
	}

	if score > 100 {
		score = 100
	}
	return score
}

func shortSpan(view world.View) bool {
	if view.ObservationCount < 2 {
		return true
	}
	return view.LastSeen.Sub(view.FirstSeen).Minutes() < 10
}

// legacyCapabilities flags capability sets typical of pre-WPA2 hardware.
func legacyCapabilities(caps []string) bool {
	for _, c := range caps {
		switch c {
		case "short-preamble", "pbcc", "wep-only", "11b":
			return true
		}
	}
	return false
}
