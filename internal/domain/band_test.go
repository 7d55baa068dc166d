package domain

import (
	"testing"
	"time"
)

func timeAt(sec int) time.Time {
	return time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC)
}

func TestBandFromFrequency(t *testing.T) {
	cases := map[int]Band{
		2412: Band24GHz,
		2484: Band24GHz,
		5180: Band5GHz,
		5825: Band5GHz,
		5955: Band6GHz,
		6115: Band6GHz,
	}
	for mhz, want := range cases {
		if got := BandFromFrequency(mhz); got != want {
			t.Errorf("BandFromFrequency(%d) = %s, want %s", mhz, got, want)
		}
	}
}

func TestChannelFrequencyRoundTrip(t *testing.T) {
	t.Run("2.4GHz channels", func(t *testing.T) {
		for ch := 1; ch <= 13; ch++ {
			if got := FrequencyToChannel(ChannelToFrequency(ch)); got != ch {
				t.Errorf("channel %d round-tripped to %d", ch, got)
			}
		}
	})

	t.Run("channel 14 special case", func(t *testing.T) {
		if ChannelToFrequency(14) != 2484 {
			t.Errorf("expected 2484, got %d", ChannelToFrequency(14))
		}
		if FrequencyToChannel(2484) != 14 {
			t.Errorf("expected 14, got %d", FrequencyToChannel(2484))
		}
	})

	t.Run("5GHz channels", func(t *testing.T) {
		for _, ch := range []int{36, 40, 100, 149, 165} {
			if got := FrequencyToChannel(ChannelToFrequency(ch)); got != ch {
				t.Errorf("channel %d round-tripped to %d", ch, got)
			}
		}
	})

	t.Run("unknown channel maps to zero", func(t *testing.T) {
		if ChannelToFrequency(0) != 0 || ChannelToFrequency(20) != 0 {
			t.Error("expected unmapped channels to return 0")
		}
	})
}

func TestRSSIToPercent(t *testing.T) {
	if got := RSSIToPercent(-30); got != 100 {
		t.Errorf("expected 100 at -30 dBm, got %d", got)
	}
	if got := RSSIToPercent(-90); got != 0 {
		t.Errorf("expected 0 at -90 dBm, got %d", got)
	}
	if got := RSSIToPercent(-10); got != 100 {
		t.Errorf("expected clamp to 100, got %d", got)
	}
	if got := RSSIToPercent(-120); got != 0 {
		t.Errorf("expected clamp to 0, got %d", got)
	}
	mid := RSSIToPercent(-60)
	if mid <= 0 || mid >= 100 {
		t.Errorf("expected mid-range percent at -60 dBm, got %d", mid)
	}
}

func TestSignalHistory(t *testing.T) {
	base := timeAt(0)

	t.Run("appends in order", func(t *testing.T) {
		h := NewSignalHistory(5)
		for i := 0; i < 3; i++ {
			h.Append(SignalSample{Timestamp: timeAt(i), RSSI: -50 - i})
		}
		if h.Len() != 3 {
			t.Fatalf("expected 3 samples, got %d", h.Len())
		}
		s := h.Strengths()
		if s[0] != -50 || s[2] != -52 {
			t.Errorf("unexpected order %v", s)
		}
	})

	t.Run("evicts oldest beyond capacity", func(t *testing.T) {
		h := NewSignalHistory(3)
		for i := 0; i < 5; i++ {
			h.Append(SignalSample{Timestamp: timeAt(i), RSSI: -50 - i})
		}
		if h.Len() != 3 {
			t.Fatalf("expected capacity 3, got %d", h.Len())
		}
		if h.Contains(base) {
			t.Error("expected oldest sample to be evicted")
		}
		if !h.Contains(timeAt(4)) {
			t.Error("expected newest sample to be present")
		}
	})

	t.Run("contains matches exact timestamps only", func(t *testing.T) {
		h := NewSignalHistory(5)
		h.Append(SignalSample{Timestamp: base, RSSI: -50})
		if !h.Contains(base) {
			t.Error("expected exact timestamp match")
		}
		if h.Contains(timeAt(1)) {
			t.Error("expected no match for a different timestamp")
		}
	})
}

func TestRevealMethodConfidence(t *testing.T) {
	if RevealPassive.Confidence() <= RevealProbe.Confidence() {
		t.Error("passive reveal must outrank directed probe")
	}
	if RevealProbe.Confidence() <= RevealCorrelation.Confidence() {
		t.Error("directed probe must outrank heuristic correlation")
	}
}
