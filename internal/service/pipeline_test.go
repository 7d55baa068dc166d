package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/feed"
	"wifiradar/internal/hidden"
	"wifiradar/internal/intel"
	"wifiradar/internal/safety"
	"wifiradar/internal/vendor"
	"wifiradar/internal/world"
)

type fakeRepo struct {
	mu           sync.Mutex
	emitters     map[string]int
	events       []domain.Event
	observations []domain.Observation
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{emitters: make(map[string]int)}
}

func (f *fakeRepo) SaveEmitter(_ context.Context, rec domain.EmitterRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitters[rec.Address]++
	return nil
}

func (f *fakeRepo) AppendEvent(_ context.Context, ev domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepo) AppendObservation(_ context.Context, obs domain.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, obs)
	return nil
}

type fixture struct {
	cfg      *config.Config
	model    *world.Model
	hnce     *hidden.Classifier
	feed     *feed.Feed
	repo     *fakeRepo
	gateway  *safety.Gateway
	pipeline *Pipeline
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	model := world.NewModel(cfg, vendor.NewResolver())
	hnce := hidden.NewClassifier(model, cfg)
	core := intel.NewCore(model, hnce, cfg)
	fd := feed.New(cfg.FeedCapacity)
	repo := newFakeRepo()
	gw := safety.NewGateway(cfg.Safety)
	p := NewPipeline(cfg, model, hnce, core, fd, repo, gw, log)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go p.Run(ctx)

	return &fixture{cfg: cfg, model: model, hnce: hnce, feed: fd, repo: repo, gateway: gw, pipeline: p}
}

// barrier waits until the worker has drained everything queued so far.
func (f *fixture) barrier(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.pipeline.Exec(ctx, func(context.Context) {}); err != nil {
		t.Fatalf("pipeline worker did not drain: %v", err)
	}
}

func rawAt(addr, name string, channel, rssi, sec int) domain.RawSighting {
	return domain.RawSighting{
		Address:   addr,
		Name:      name,
		Channel:   channel,
		RSSI:      rssi,
		Security:  "wpa2",
		Timestamp: time.Date(2026, 3, 1, 12, 0, sec, 0, time.UTC),
	}
}

func hasSummary(events []domain.Event, fragment string) bool {
	for _, ev := range events {
		if strings.Contains(ev.Summary, fragment) {
			return true
		}
	}
	return false
}

func TestPipelineCycle(t *testing.T) {
	t.Run("normalizes and ingests a scan cycle", func(t *testing.T) {
		f := newFixture(t, nil)
		f.pipeline.Submit([]domain.RawSighting{
			rawAt("F4-F2-6D-00-00-01", "HomeNet", 6, -50, 0),
			rawAt("88:de:a9:00:00:02", "", 36, -70, 1),
		})
		f.barrier(t)

		if f.model.Len() != 2 {
			t.Fatalf("expected 2 emitters, got %d", f.model.Len())
		}
		rec, ok := f.model.Record("f4:f2:6d:00:00:01")
		if !ok {
			t.Fatal("expected the dash-separated address to be normalized")
		}
		if rec.Name != "HomeNet" {
			t.Errorf("unexpected name %q", rec.Name)
		}

		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		if len(f.repo.observations) != 2 {
			t.Errorf("expected 2 persisted observations, got %d", len(f.repo.observations))
		}
		if f.repo.emitters["f4:f2:6d:00:00:01"] == 0 {
			t.Error("expected the emitter snapshot to be persisted")
		}
	})

	t.Run("malformed sightings are dropped, cycle continues", func(t *testing.T) {
		f := newFixture(t, nil)
		f.pipeline.Submit([]domain.RawSighting{
			rawAt("bogus", "", 6, -50, 0),
			rawAt("f4:f2:6d:00:00:01", "HomeNet", 6, -50, 1),
		})
		f.barrier(t)

		if f.model.Len() != 1 {
			t.Errorf("expected only the valid sighting ingested, got %d emitters", f.model.Len())
		}
		if hasSummary(f.feed.Snapshot(), "malformed") {
			t.Error("a single malformed sighting must not raise the watchdog")
		}
	})

	t.Run("a burst of malformed sightings raises an anomaly", func(t *testing.T) {
		f := newFixture(t, nil)
		batch := make([]domain.RawSighting, 0, malformedBurstThreshold)
		for i := 0; i < malformedBurstThreshold; i++ {
			batch = append(batch, rawAt(fmt.Sprintf("junk-%d", i), "", 6, -50, i))
		}
		f.pipeline.Submit(batch)
		f.barrier(t)

		if !hasSummary(f.feed.Snapshot(), "malformed") {
			t.Error("expected a malformed-burst anomaly event")
		}
	})

	t.Run("capacity churn raises a system event", func(t *testing.T) {
		f := newFixture(t, func(cfg *config.Config) { cfg.WorldCapacity = 2 })
		batch := make([]domain.RawSighting, 0, 14)
		for i := 0; i < 14; i++ {
			batch = append(batch, rawAt(fmt.Sprintf("00:11:99:00:00:%02x", i), "n", 6, -50, i))
		}
		f.pipeline.Submit(batch)
		f.barrier(t)

		if !hasSummary(f.feed.Snapshot(), "capacity churn") {
			t.Error("expected a capacity churn event")
		}
		if f.model.Len() != 2 {
			t.Errorf("expected the model held at capacity, got %d", f.model.Len())
		}
	})

	t.Run("sustained gateway rejections raise an anomaly", func(t *testing.T) {
		f := newFixture(t, nil)
		for i := 0; i < rejectionRateMinVolume+5; i++ {
			f.gateway.Request(safety.DirectedProbe{Target: "aa:bb:cc:dd:ee:ff", Name: "x", Chan: 52})
		}
		f.pipeline.Submit(nil)
		f.barrier(t)

		if !hasSummary(f.feed.Snapshot(), "rejection rate") {
			t.Error("expected a rejection-rate anomaly event")
		}
	})

	t.Run("threat events flow into the feed and archive", func(t *testing.T) {
		f := newFixture(t, nil)
		f.pipeline.Submit([]domain.RawSighting{{
			Address:   "f4:f2:6d:00:00:01",
			Name:      "OpenNet",
			Channel:   6,
			RSSI:      -50,
			Security:  "open",
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}})
		f.barrier(t)

		if !hasSummary(f.feed.Snapshot(), "open encryption") {
			t.Error("expected a weak-encryption threat in the feed")
		}
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		if len(f.repo.events) == 0 {
			t.Error("expected the event to be archived")
		}
	})

	t.Run("summary event appears every tenth cycle", func(t *testing.T) {
		f := newFixture(t, nil)
		for i := 0; i < 10; i++ {
			f.pipeline.Submit([]domain.RawSighting{rawAt("f4:f2:6d:00:00:01", "HomeNet", 6, -50, i)})
		}
		f.barrier(t)

		if !hasSummary(f.feed.Snapshot(), "cycle 10") {
			t.Error("expected a cycle summary after ten cycles")
		}
	})
}

func TestIngestObservationsReplay(t *testing.T) {
	seq := []domain.Observation{
		{Address: "f4:f2:6d:00:00:01", Name: "HomeNet", Channel: 6, Band: domain.Band24GHz,
			RSSI: -50, Security: domain.SecurityWPA2,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Source: domain.SourcePassive},
		{Address: "88:de:a9:00:00:02", Channel: 36, Band: domain.Band5GHz,
			RSSI: -70, Security: domain.SecurityWPA2,
			Timestamp: time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC), Source: domain.SourcePassive},
	}

	a := newFixture(t, nil)
	b := newFixture(t, nil)
	ctx := context.Background()
	if err := a.pipeline.IngestObservations(ctx, seq); err != nil {
		t.Fatal(err)
	}
	if err := b.pipeline.IngestObservations(ctx, seq); err != nil {
		t.Fatal(err)
	}

	if a.model.Len() != b.model.Len() {
		t.Fatalf("replayed models diverged: %d vs %d", a.model.Len(), b.model.Len())
	}
	for _, addr := range a.model.Addresses() {
		va, _ := a.model.Snapshot(addr)
		vb, ok := b.model.Snapshot(addr)
		if !ok || va.RSSI != vb.RSSI || va.ObservationCount != vb.ObservationCount {
			t.Errorf("replayed state diverged for %s", addr)
		}
	}
}
