package intel

import (
	"testing"
	"time"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/hidden"
	"wifiradar/internal/vendor"
	"wifiradar/internal/world"
)

func at(sec int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
}

func obsAt(addr, name string, channel, rssi int, sec domain.SecurityType, ts time.Time) domain.Observation {
	return domain.Observation{
		Address:   addr,
		Name:      name,
		Channel:   channel,
		Band:      domain.BandFromFrequency(domain.ChannelToFrequency(channel)),
		RSSI:      rssi,
		Security:  sec,
		Timestamp: ts,
		Source:    domain.SourcePassive,
	}
}

func newFixture() (*world.Model, *Core) {
	cfg := config.DefaultConfig()
	m := world.NewModel(cfg, vendor.NewResolver())
	hnce := hidden.NewClassifier(m, cfg)
	return m, NewCore(m, hnce, cfg)
}

func hasRule(events []domain.Event, rule string) bool {
	for _, ev := range events {
		if ev.Detail["rule"] == rule {
			return true
		}
	}
	return false
}

func TestClassifyDevice(t *testing.T) {
	t.Run("named consumer hardware is a router", func(t *testing.T) {
		m, core := newFixture()
		addr := "f4:f2:6d:00:00:01"
		m.Ingest(obsAt(addr, "HomeNet", 6, -50, domain.SecurityWPA2, at(0)))
		c, _, _, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		if c.Type != DeviceRouter {
			t.Errorf("expected router, got %s", c.Type)
		}
		if c.Confidence <= 0 {
			t.Errorf("expected positive confidence, got %d", c.Confidence)
		}
	})

	t.Run("mobile vendor classifies as mobile", func(t *testing.T) {
		m, core := newFixture()
		addr := "3c:22:fb:00:00:01"
		m.Ingest(obsAt(addr, "", 6, -55, domain.SecurityUnknown, at(0)))
		c, _, _, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		if c.Type != DeviceMobile {
			t.Errorf("expected mobile, got %s", c.Type)
		}
	})

	t.Run("name keywords beat weak signals", func(t *testing.T) {
		m, core := newFixture()
		addr := "00:11:99:00:00:01"
		m.Ingest(obsAt(addr, "Sonos-Living-Room", 11, -60, domain.SecurityWPA2, at(0)))
		c, _, _, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		if c.Type != DeviceSpeaker {
			t.Errorf("expected speaker, got %s", c.Type)
		}
	})

	t.Run("no matching rule stays unknown", func(t *testing.T) {
		m, core := newFixture()
		addr := "00:11:99:00:00:01"
		m.Ingest(obsAt(addr, "", 1, -70, domain.SecurityWPA2, at(0)))
		c, _, _, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		if c.Type != DeviceUnknown {
			t.Errorf("expected unknown, got %s", c.Type)
		}
	})

	t.Run("unknown emitter is an error", func(t *testing.T) {
		_, core := newFixture()
		if _, _, _, err := core.Evaluate("aa:aa:aa:aa:aa:aa"); err == nil {
			t.Error("expected error for untracked emitter")
		}
	})
}

func TestSecurityRating(t *testing.T) {
	cases := []struct {
		sec  domain.SecurityType
		want SecurityRating
	}{
		{domain.SecurityOpen, RatingCritical},
		{domain.SecurityWEP, RatingPoor},
		{domain.SecurityWPA, RatingPoor},
		{domain.SecurityWPA2, RatingGood},
		{domain.SecurityWPA3, RatingStrong},
		{domain.SecurityUnknown, RatingFair},
	}
	for _, tc := range cases {
		m, core := newFixture()
		addr := "f4:f2:6d:00:00:01"
		m.Ingest(obsAt(addr, "Net", 6, -50, tc.sec, at(0)))
		_, a, _, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		if a.Rating != tc.want {
			t.Errorf("security %s: expected rating %s, got %s", tc.sec, tc.want, a.Rating)
		}
	}
}

func TestWeakEncryptionRule(t *testing.T) {
	m, core := newFixture()
	addr := "f4:f2:6d:00:00:01"
	m.Ingest(obsAt(addr, "OpenNet", 6, -50, domain.SecurityOpen, at(0)))

	_, _, events, err := core.Evaluate(addr)
	if err != nil {
		t.Fatal(err)
	}
	if !hasRule(events, "weak_encryption") {
		t.Fatal("expected weak_encryption event")
	}
	for _, ev := range events {
		if ev.Detail["rule"] == "weak_encryption" && ev.Severity != domain.SeverityCritical {
			t.Errorf("open network must be critical, got %s", ev.Severity)
		}
	}

	t.Run("fires once per emitter while the condition holds", func(t *testing.T) {
		_, _, again, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		if hasRule(again, "weak_encryption") {
			t.Error("expected the repeated condition to be de-duplicated")
		}
	})

	t.Run("assessment still lists the threat after de-duplication", func(t *testing.T) {
		_, a, _, err := core.Evaluate(addr)
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, name := range a.Threats {
			if name == "weak_encryption" {
				found = true
			}
		}
		if !found {
			t.Error("expected weak_encryption in the assessment")
		}
	})
}

func TestSSIDSpoofingRule(t *testing.T) {
	m, core := newFixture()
	legit := "f4:f2:6d:00:00:01"
	rogue := "02:66:77:00:00:02"
	for i := 0; i < 3; i++ {
		m.Ingest(obsAt(legit, "CoffeeShop", 6, -50, domain.SecurityWPA2, at(i*2)))
		m.Ingest(obsAt(rogue, "CoffeeShop", 6, -45, domain.SecurityOpen, at(i*2+1)))
	}

	_, _, events, err := core.Evaluate(rogue)
	if err != nil {
		t.Fatal(err)
	}
	if !hasRule(events, "ssid_spoofing") {
		t.Error("expected ssid_spoofing event for a divergent duplicate name")
	}
	if !hasRule(events, "weak_encryption") {
		t.Error("expected weak_encryption to fire independently")
	}

	t.Run("one event per duplicate-name pair", func(t *testing.T) {
		m, core := newFixture()
		legit := "f4:f2:6d:00:00:01"
		rogue := "02:66:77:00:00:02"
		for i := 0; i < 3; i++ {
			m.Ingest(obsAt(legit, "CoffeeShop", 6, -50, domain.SecurityWPA2, at(i*2)))
			m.Ingest(obsAt(rogue, "CoffeeShop", 6, -45, domain.SecurityOpen, at(i*2+1)))
		}

		spoofs := 0
		for _, addr := range []string{legit, rogue} {
			_, a, events, err := core.Evaluate(addr)
			if err != nil {
				t.Fatal(err)
			}
			for _, ev := range events {
				if ev.Detail["rule"] == "ssid_spoofing" {
					spoofs++
				}
			}
			found := false
			for _, name := range a.Threats {
				if name == "ssid_spoofing" {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s assessment to list ssid_spoofing", addr)
			}
		}
		if spoofs != 1 {
			t.Errorf("expected one spoofing event for the pair, got %d", spoofs)
		}
	})

	t.Run("verified mesh peers do not spoof each other", func(t *testing.T) {
		m, core := newFixture()
		a := "88:de:a9:00:00:01"
		b := "88:de:a9:00:00:02"
		for i := 0; i < 3; i++ {
			m.Ingest(obsAt(a, "HomeNet", 36, -50, domain.SecurityWPA2, at(i*2)))
			m.Ingest(obsAt(b, "", 36, -53, domain.SecurityWPA3, at(i*2+1)))
		}
		m.CommitReveal(b, "HomeNet", domain.RevealPassive)

		_, _, events, err := core.Evaluate(a)
		if err != nil {
			t.Fatal(err)
		}
		if hasRule(events, "ssid_spoofing") {
			t.Error("mesh peers sharing a name must not be flagged")
		}
	})
}

func TestChannelAnomalyRule(t *testing.T) {
	m, core := newFixture()
	addr := "f4:f2:6d:00:00:01"
	channels := []int{1, 6, 11, 1}
	for i, ch := range channels {
		m.Ingest(obsAt(addr, "Hopper", ch, -50, domain.SecurityWPA2, at(i)))
	}

	_, _, events, err := core.Evaluate(addr)
	if err != nil {
		t.Fatal(err)
	}
	if !hasRule(events, "channel_anomaly") {
		t.Error("expected channel_anomaly after three hops")
	}
}

func TestHiddenHighRogueRule(t *testing.T) {
	m, core := newFixture()
	legit := "88:de:a9:00:00:01"
	impostor := "c8:3a:35:00:00:02"
	for i := 0; i < 3; i++ {
		m.Ingest(obsAt(legit, "HomeNet", 36, -50, domain.SecurityWPA2, at(i)))
		m.Ingest(obsAt(impostor, "", 36, -75, domain.SecurityOpen, at(10+i)))
	}
	m.CommitReveal(impostor, "HomeNet", domain.RevealProbe)

	_, a, events, err := core.Evaluate(impostor)
	if err != nil {
		t.Fatal(err)
	}
	if !hasRule(events, "hidden_high_rogue") {
		t.Error("expected hidden_high_rogue for an elevated rogue score")
	}
	if a.RogueScore < config.DefaultThresholds().RogueAlertScore {
		t.Errorf("expected elevated rogue score, got %d", a.RogueScore)
	}
}

func TestRatingDegradesUnderElevatedRogue(t *testing.T) {
	m, core := newFixture()
	legit := "88:de:a9:00:00:01"
	impostor := "02:77:88:00:00:02"
	for i := 0; i < 3; i++ {
		m.Ingest(obsAt(legit, "HomeNet", 36, -50, domain.SecurityWPA2, at(i)))
	}
	// Enough sightings that the randomized-AP factor applies on top of
	// the vendor mismatch and duplicate name.
	for i := 0; i < 5; i++ {
		m.Ingest(obsAt(impostor, "", 36, -75, domain.SecurityWPA2, at(10+i)))
	}
	m.CommitReveal(impostor, "HomeNet", domain.RevealProbe)

	_, a, _, err := core.Evaluate(impostor)
	if err != nil {
		t.Fatal(err)
	}
	if a.Rating != RatingFair {
		t.Errorf("expected wpa2 degraded to fair under elevated rogue score, got %s", a.Rating)
	}
}

func TestFinishCycle(t *testing.T) {
	_, core := newFixture()
	stats := CycleStats{Networks: 4, Hidden: 1, Threats: 2, Unknown: 1, WeakSignals: 1}

	for i := 1; i <= 9; i++ {
		if ev := core.FinishCycle(stats); ev != nil {
			t.Fatalf("expected no summary at cycle %d", i)
		}
	}
	ev := core.FinishCycle(stats)
	if ev == nil {
		t.Fatal("expected a summary on the tenth cycle")
	}
	if ev.Category != domain.EventSystem {
		t.Errorf("expected system category, got %s", ev.Category)
	}
	if ev.Detail["networks"] != 4 {
		t.Errorf("expected networks count in detail, got %v", ev.Detail["networks"])
	}

	for i := 11; i <= 19; i++ {
		if core.FinishCycle(stats) != nil {
			t.Fatalf("expected no summary at cycle %d", i)
		}
	}
	if core.FinishCycle(stats) == nil {
		t.Error("expected a summary on the twentieth cycle")
	}
}
