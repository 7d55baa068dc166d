package intel

import (
	"fmt"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/hidden"
	"wifiradar/internal/world"
)

// summaryCycleInterval is how many completed evaluation cycles pass
// between system summary events.
const summaryCycleInterval = 10

// Core is the intelligence aggregation point. It holds no per-emitter
// mutable state beyond event de-duplication; every verdict is recomputed
// from read-only world and HNCE views per evaluation.
type Core struct {
	model      *world.Model
	hnce       *hidden.Classifier
	thresholds config.Thresholds

	cycles  int
	emitted map[string]bool // de-duplication keys already reported
}

// NewCore wires the intelligence core.
func NewCore(model *world.Model, hnce *hidden.Classifier, cfg *config.Config) *Core {
	return &Core{
		model:      model,
		hnce:       hnce,
		thresholds: cfg.Thresholds,
		emitted:    make(map[string]bool),
	}
}

// Evaluate produces the classification, threat assessment, and any newly
// fired threat events for one emitter.
func (c *Core) Evaluate(addr string) (DeviceClassification, ThreatAssessment, []domain.Event, error) {
	view, ok := c.model.Snapshot(addr)
	if !ok {
		return DeviceClassification{}, ThreatAssessment{}, nil, fmt.Errorf("evaluate %s: unknown emitter", addr)
	}

	var profile *domain.HiddenNetworkProfile
	if view.Hidden() || view.RevealedName != "" {
		if p, err := c.hnce.Classify(addr); err == nil {
			profile = &p
		}
	}

	classification := c.classifyDevice(view)
	assessment := c.assess(view, profile)

	rc := ruleContext{view: view, profile: profile, core: c}
	var events []domain.Event
	for _, rule := range threatRules {
		ev := rule.eval(rc)
		if ev == nil {
			continue
		}
		assessment.Threats = append(assessment.Threats, rule.name)
		key := addr
		if rule.key != nil {
			key = rule.key(rc, ev)
		}
		key += "/" + rule.name
		if c.emitted[key] {
			continue // already reported, condition unchanged
		}
		c.emitted[key] = true
		events = append(events, *ev)
	}

	return classification, assessment, events, nil
}

// classifyDevice runs the weighted rule set; the highest aggregate score
// wins and ties break toward unknown.
func (c *Core) classifyDevice(view world.View) DeviceClassification {
	scores := make(map[DeviceType]int)
	for _, rule := range deviceRules {
		if rule.match(view) {
			scores[rule.deviceType] += rule.weight
		}
	}

	best := DeviceUnknown
	bestScore := 0
	tied := false
	for dt, score := range scores {
		switch {
		case score > bestScore:
			best, bestScore, tied = dt, score, false
		case score == bestScore && score > 0 && dt != best:
			tied = true
		}
	}
	if tied || bestScore == 0 {
		return DeviceClassification{Type: DeviceUnknown}
	}

	conf := bestScore
	if conf > 100 {
		conf = 100
	}
	return DeviceClassification{Type: best, Score: bestScore, Confidence: conf}
}

// assess derives the monotonic security rating. Open and WEP are always
// flagged regardless of other signals; WPA2/WPA3 ratings degrade when
// the rogue score is elevated.
func (c *Core) assess(view world.View, profile *domain.HiddenNetworkProfile) ThreatAssessment {
	rogue := 0
	if profile != nil {
		rogue = profile.RogueScore
	}
	elevated := rogue >= c.thresholds.RogueAlertScore

	var rating SecurityRating
	switch view.Security {
	case domain.SecurityOpen:
		rating = RatingCritical
	case domain.SecurityWEP, domain.SecurityWPA:
		rating = RatingPoor
	case domain.SecurityWPA2, domain.SecurityWPA2Enterprise:
		rating = RatingGood
		if elevated {
			rating = RatingFair
		}
	case domain.SecurityWPA3, domain.SecurityWPA3Enterprise:
		rating = RatingStrong
		if elevated {
			rating = RatingFair
		}
	default:
		rating = RatingFair
	}

	return ThreatAssessment{Rating: rating, RogueScore: rogue}
}

// FinishCycle marks one completed evaluation pass over the model; every
// tenth cycle it returns a system summary event aggregating counts.
func (c *Core) FinishCycle(stats CycleStats) *domain.Event {
	c.cycles++
	if c.cycles%summaryCycleInterval != 0 {
		return nil
	}
	return &domain.Event{
		Category: domain.EventSystem,
		Severity: domain.SeverityLow,
		Summary: fmt.Sprintf("cycle %d: %d networks, %d threats, %d unknown, %d weak signals",
			c.cycles, stats.Networks, stats.Threats, stats.Unknown, stats.WeakSignals),
		Detail: map[string]any{
			"cycles":       c.cycles,
			"networks":     stats.Networks,
			"hidden":       stats.Hidden,
			"threats":      stats.Threats,
			"unknown":      stats.Unknown,
			"weak_signals": stats.WeakSignals,
		},
	}
}
