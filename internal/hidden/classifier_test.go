package hidden

import (
	"testing"
	"time"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
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

func newFixture() (*world.Model, *Classifier) {
	cfg := config.DefaultConfig()
	m := world.NewModel(cfg, vendor.NewResolver())
	return m, NewClassifier(m, cfg)
}

func TestClassifyMeshNode(t *testing.T) {
	m, c := newFixture()
	// Visible eero units and one hidden unit of the same vendor, channel,
	// and strength cluster.
	for i := 0; i < 3; i++ {
		m.Ingest(obsAt("88:de:a9:00:00:01", "HomeNet", 36, -50, domain.SecurityWPA2, at(i*3)))
		m.Ingest(obsAt("88:de:a9:00:00:02", "HomeNet", 36, -53, domain.SecurityWPA2, at(i*3+1)))
		m.Ingest(obsAt("88:de:a9:00:00:03", "", 36, -52, domain.SecurityWPA2, at(i*3+2)))
	}

	profile, err := c.Classify("88:de:a9:00:00:03")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if profile.Class != domain.HiddenMeshNode {
		t.Errorf("expected mesh_node, got %s", profile.Class)
	}
	if profile.CandidateName != "HomeNet" {
		t.Errorf("expected sibling name HomeNet as candidate, got %q", profile.CandidateName)
	}
	if profile.CandidateConfidence < 75 {
		t.Errorf("expected strength and vendor bonuses, got confidence %d", profile.CandidateConfidence)
	}
}

func TestClassifyDecisionTable(t *testing.T) {
	t.Run("enterprise vendor without siblings is backhaul", func(t *testing.T) {
		m, c := newFixture()
		m.Ingest(obsAt("00:0b:86:00:00:01", "", 149, -60, domain.SecurityWPA2Enterprise, at(0)))
		profile, err := c.Classify("00:0b:86:00:00:01")
		if err != nil {
			t.Fatal(err)
		}
		if profile.Class != domain.HiddenEnterpriseBackhaul {
			t.Errorf("expected enterprise_backhaul, got %s", profile.Class)
		}
	})

	t.Run("iot vendor is an iot hub", func(t *testing.T) {
		m, c := newFixture()
		m.Ingest(obsAt("b4:e6:2d:00:00:01", "", 1, -62, domain.SecurityWPA2, at(0)))
		profile, err := c.Classify("b4:e6:2d:00:00:01")
		if err != nil {
			t.Fatal(err)
		}
		if profile.Class != domain.HiddenIoTHub {
			t.Errorf("expected iot_hub, got %s", profile.Class)
		}
	})

	t.Run("short-lived randomized emitter is guest isolated", func(t *testing.T) {
		m, c := newFixture()
		m.Ingest(obsAt("02:11:22:00:00:01", "", 11, -58, domain.SecurityWPA2, at(0)))
		m.Ingest(obsAt("02:11:22:00:00:01", "", 11, -59, domain.SecurityWPA2, at(30)))
		profile, err := c.Classify("02:11:22:00:00:01")
		if err != nil {
			t.Fatal(err)
		}
		if profile.Class != domain.HiddenGuestIsolated {
			t.Errorf("expected guest_isolated, got %s", profile.Class)
		}
	})

	t.Run("legacy capabilities flag a legacy device", func(t *testing.T) {
		m, c := newFixture()
		o := obsAt("00:11:99:00:00:01", "", 1, -70, domain.SecurityWEP, at(0))
		o.Capabilities = []string{"short-preamble", "11b"}
		m.Ingest(o)
		profile, err := c.Classify("00:11:99:00:00:01")
		if err != nil {
			t.Fatal(err)
		}
		if profile.Class != domain.HiddenLegacyDevice {
			t.Errorf("expected legacy_device, got %s", profile.Class)
		}
	})

	t.Run("nothing distinctive stays unknown", func(t *testing.T) {
		m, c := newFixture()
		m.Ingest(obsAt("00:11:99:00:00:01", "", 1, -70, domain.SecurityWPA2, at(0)))
		profile, err := c.Classify("00:11:99:00:00:01")
		if err != nil {
			t.Fatal(err)
		}
		if profile.Class != domain.HiddenUnknown {
			t.Errorf("expected unknown, got %s", profile.Class)
		}
	})

	t.Run("unknown emitter is an error", func(t *testing.T) {
		_, c := newFixture()
		if _, err := c.Classify("aa:aa:aa:aa:aa:aa"); err == nil {
			t.Error("expected error for untracked emitter")
		}
	})
}

func TestRogueScoring(t *testing.T) {
	m, c := newFixture()
	// Legitimate named network, wpa2.
	for i := 0; i < 3; i++ {
		m.Ingest(obsAt("88:de:a9:00:00:01", "HomeNet", 36, -50, domain.SecurityWPA2, at(i)))
	}
	// Hidden emitter later revealed as the same name but open: security
	// mismatch plus duplicate name without a verified mesh edge.
	impostor := "c8:3a:35:00:00:02"
	for i := 0; i < 3; i++ {
		m.Ingest(obsAt(impostor, "", 36, -75, domain.SecurityOpen, at(10+i)))
	}
	m.CommitReveal(impostor, "HomeNet", domain.RevealProbe)

	profile, err := c.Classify(impostor)
	if err != nil {
		t.Fatal(err)
	}
	th := config.DefaultThresholds()
	wantMin := th.RogueSecurityMismatch + th.RogueDuplicateName
	if profile.RogueScore < wantMin {
		t.Errorf("expected rogue score >= %d, got %d", wantMin, profile.RogueScore)
	}
	if profile.Class != domain.HiddenRogueCandidate {
		t.Errorf("expected rogue_candidate, got %s", profile.Class)
	}

	t.Run("score is capped at 100", func(t *testing.T) {
		if profile.RogueScore > 100 {
			t.Errorf("rogue score exceeded cap: %d", profile.RogueScore)
		}
	})
}

func TestRevealBookkeeping(t *testing.T) {
	m, c := newFixture()
	addr := "88:de:a9:00:00:01"
	m.Ingest(obsAt(addr, "", 36, -50, domain.SecurityWPA2, at(0)))

	t.Run("miss records the trial without committing", func(t *testing.T) {
		if c.RecordProbeResult(addr, "WrongName", false) {
			t.Error("a miss must not commit")
		}
		if !c.Tried(addr, "WrongName") {
			t.Error("expected the miss to be remembered")
		}
		rec, _ := m.Record(addr)
		if rec.RevealedName != "" {
			t.Error("miss must not set a revealed name")
		}
	})

	t.Run("match commits at probe confidence", func(t *testing.T) {
		if !c.RecordProbeResult(addr, "HomeNet", true) {
			t.Fatal("expected the match to commit")
		}
		rec, _ := m.Record(addr)
		if rec.RevealedName != "HomeNet" || rec.RevealMethod != domain.RevealProbe {
			t.Errorf("unexpected reveal state %+v", rec)
		}
	})

	t.Run("passive correlation overrides a probe reveal", func(t *testing.T) {
		if !c.RecordPassiveReveal(addr, "HomeNet-Main") {
			t.Fatal("expected passive reveal to override")
		}
		rec, _ := m.Record(addr)
		if rec.RevealMethod != domain.RevealPassive {
			t.Errorf("expected passive method, got %s", rec.RevealMethod)
		}
	})
}

func TestCandidates(t *testing.T) {
	m, c := newFixture()
	hiddenAddr := "88:de:a9:00:00:03"
	m.Ingest(obsAt("88:de:a9:00:00:01", "HomeNet", 36, -50, domain.SecurityWPA2, at(0)))
	m.Ingest(obsAt(hiddenAddr, "", 36, -52, domain.SecurityWPA2, at(1)))

	t.Run("sibling name leads the list", func(t *testing.T) {
		cands := c.Candidates(hiddenAddr, 20)
		if len(cands) == 0 {
			t.Fatal("expected candidates")
		}
		if cands[0] != "HomeNet" {
			t.Errorf("expected HomeNet first, got %s", cands[0])
		}
		found := false
		for _, name := range cands {
			if name == "HomeNet-Guest" {
				found = true
			}
		}
		if !found {
			t.Error("expected suffix variants among the candidates")
		}
	})

	t.Run("respects the limit", func(t *testing.T) {
		cands := c.Candidates(hiddenAddr, 3)
		if len(cands) > 3 {
			t.Errorf("expected at most 3 candidates, got %d", len(cands))
		}
	})

	t.Run("tried names are skipped", func(t *testing.T) {
		c.RecordProbeResult(hiddenAddr, "HomeNet", false)
		for _, name := range c.Candidates(hiddenAddr, 20) {
			if name == "HomeNet" {
				t.Error("tried candidate must not be offered again")
			}
		}
	})

	t.Run("unknown emitter yields nothing", func(t *testing.T) {
		if cands := c.Candidates("aa:aa:aa:aa:aa:aa", 20); cands != nil {
			t.Errorf("expected nil, got %v", cands)
		}
	})
}
