// Package service orchestrates the scan pipeline: normalize raw
// sightings, ingest into the world model, classify, evaluate threats,
// and publish events. All world-model access happens on one worker
// goroutine fed by a single inbound queue, so concurrent scan sources
// serialize through one ingestion point.
package service

import (
	"context"
	"log/slog"
	"sort"

	"wifiradar/internal/adapter"
	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/feed"
	"wifiradar/internal/hidden"
	"wifiradar/internal/intel"
	"wifiradar/internal/safety"
	"wifiradar/internal/world"
)

// Repository is the optional persistence sink.
type Repository interface {
	SaveEmitter(ctx context.Context, rec domain.EmitterRecord) error
	AppendEvent(ctx context.Context, ev domain.Event) error
	AppendObservation(ctx context.Context, obs domain.Observation) error
}

// Thresholds for the failure watchdogs. Crossing one surfaces an event;
// none of these conditions is fatal.
const (
	malformedBurstThreshold = 5    // malformed sightings in one cycle
	rejectionRateThreshold  = 0.8  // sustained gateway rejection ratio
	rejectionRateMinVolume  = 20   // requests before the ratio is judged
	evictionChurnThreshold  = 10   // evictions in one cycle
)

// Pipeline owns the world model worker and the per-cycle evaluation.
type Pipeline struct {
	log     *slog.Logger
	cfg     *config.Config
	model   *world.Model
	hnce    *hidden.Classifier
	core    *intel.Core
	feed    *feed.Feed
	repo    Repository // may be nil
	gateway *safety.Gateway

	cycles chan []domain.RawSighting
	tasks  chan func(context.Context)

	lastAccepted int64
	lastRejected int64
}

// NewPipeline wires the pipeline. repo and gateway may be nil (no
// persistence / probing disabled).
func NewPipeline(cfg *config.Config, model *world.Model, hnce *hidden.Classifier,
	core *intel.Core, fd *feed.Feed, repo Repository, gw *safety.Gateway, log *slog.Logger) *Pipeline {
	return &Pipeline{
		log:     log,
		cfg:     cfg,
		model:   model,
		hnce:    hnce,
		core:    core,
		feed:    fd,
		repo:    repo,
		gateway: gw,
		cycles:  make(chan []domain.RawSighting, 4),
		tasks:   make(chan func(context.Context)),
	}
}

// Submit queues one cycle's raw sightings for the worker. Multiple scan
// sources may call Submit concurrently; the channel is the single
// serialization point into the world model.
func (p *Pipeline) Submit(sightings []domain.RawSighting) {
	p.cycles <- sightings
}

// Run processes queued cycles until ctx is cancelled. It is the only
// goroutine that touches the world model.
func (p *Pipeline) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sightings := <-p.cycles:
			p.processCycle(ctx, sightings)
		case task := <-p.tasks:
			task(ctx)
		}
	}
}

// Exec runs fn on the pipeline worker goroutine and waits for it to
// finish. The world model has no internal locking; anything touching it
// from outside a scan cycle (probe discovery, replay queries) goes
// through here. The worker does not ingest while fn runs, which matches
// the radio: it cannot scan and probe at the same time anyway.
func (p *Pipeline) Exec(ctx context.Context, fn func(context.Context)) error {
	done := make(chan struct{})
	wrapped := func(c context.Context) {
		defer close(done)
		fn(c)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- wrapped:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	return nil
}

// RunScanner drives a scanner adapter, submitting each completed capture
// cycle. Multiple RunScanner goroutines may feed one pipeline.
func (p *Pipeline) RunScanner(ctx context.Context, scanner adapter.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		sightings, err := scanner.Scan(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("scan cycle failed", "scanner", scanner.Name(), "err", err)
			continue
		}
		p.Submit(sightings)
	}
}

// processCycle runs the full pipeline for one cycle's sightings.
func (p *Pipeline) processCycle(ctx context.Context, sightings []domain.RawSighting) {
	malformed := 0
	evictions := 0

	for _, raw := range sightings {
		obs, err := domain.Normalize(raw, domain.SourcePassive)
		if err != nil {
			malformed++
			p.log.Debug("dropped sighting", "err", err)
			continue
		}
		evictions += p.ingest(ctx, obs)
	}

	p.evaluate(ctx, malformed, evictions)
}

// IngestObservations pushes pre-normalized observations (replay, probe
// feedback) through the same ingest path, on the worker goroutine.
func (p *Pipeline) IngestObservations(ctx context.Context, observations []domain.Observation) error {
	return p.Exec(ctx, func(c context.Context) {
		evictions := 0
		for _, obs := range observations {
			evictions += p.ingest(c, obs)
		}
		p.evaluate(c, 0, evictions)
	})
}

func (p *Pipeline) ingest(ctx context.Context, obs domain.Observation) (evictions int) {
	addr, upd, err := p.model.Ingest(obs)
	if err != nil {
		p.log.Debug("ingest rejected", "err", err)
		return 0
	}

	// A hidden emitter whose name shows up in passively captured
	// traffic is revealed by passive correlation, the highest-trust
	// method.
	if upd.NewName && obs.Source == domain.SourcePassive {
		p.hnce.RecordPassiveReveal(addr, obs.Name)
	}

	if p.repo != nil {
		if err := p.repo.AppendObservation(ctx, obs); err != nil {
			p.log.Warn("persist observation", "err", err)
		}
	}

	for _, evicted := range upd.Evicted {
		p.log.Info("emitter evicted", "address", evicted)
	}
	return len(upd.Evicted)
}

// evaluate runs the intelligence pass over every tracked emitter and
// finishes the cycle with watchdog checks and the periodic summary.
func (p *Pipeline) evaluate(ctx context.Context, malformed, evictions int) {
	var stats intel.CycleStats
	threatsFired := 0

	addrs := p.model.Addresses()
	sort.Strings(addrs)
	for _, addr := range addrs {
		view, ok := p.model.Snapshot(addr)
		if !ok {
			continue
		}
		stats.Networks++
		if view.Hidden() {
			stats.Hidden++
		}
		if view.RSSI <= domain.RSSIWeak {
			stats.WeakSignals++
		}

		classification, _, events, err := p.core.Evaluate(addr)
		if err != nil {
			p.log.Warn("evaluate emitter", "address", addr, "err", err)
			continue
		}
		if classification.Type == intel.DeviceUnknown {
			stats.Unknown++
		}
		threatsFired += len(events)
		for _, ev := range events {
			p.publish(ctx, ev)
		}

		if p.repo != nil {
			if rec, ok := p.model.Record(addr); ok {
				if err := p.repo.SaveEmitter(ctx, rec); err != nil {
					p.log.Warn("persist emitter", "address", addr, "err", err)
				}
			}
		}
	}
	stats.Threats = threatsFired

	p.watchdogs(ctx, malformed, evictions)

	if summary := p.core.FinishCycle(stats); summary != nil {
		p.publish(ctx, *summary)
	}
}

// watchdogs surface the user-visible failure modes: malformed bursts,
// sustained gateway rejection, and capacity churn. All informational;
// none aborts the pipeline.
func (p *Pipeline) watchdogs(ctx context.Context, malformed, evictions int) {
	if malformed >= malformedBurstThreshold {
		p.publish(ctx, domain.Event{
			Category: domain.EventAnomaly,
			Severity: domain.SeverityMedium,
			Summary:  "burst of malformed observations dropped",
			Detail:   map[string]any{"count": malformed},
		})
	}

	if evictions >= evictionChurnThreshold {
		p.publish(ctx, domain.Event{
			Category: domain.EventSystem,
			Severity: domain.SeverityLow,
			Summary:  "world model capacity churn",
			Detail:   map[string]any{"evictions": evictions, "capacity": p.cfg.WorldCapacity},
		})
	}

	if p.gateway != nil {
		accepted, rejected := p.gateway.Stats()
		dAcc := accepted - p.lastAccepted
		dRej := rejected - p.lastRejected
		p.lastAccepted, p.lastRejected = accepted, rejected
		if total := dAcc + dRej; total >= rejectionRateMinVolume {
			if ratio := float64(dRej) / float64(total); ratio > rejectionRateThreshold {
				p.publish(ctx, domain.Event{
					Category: domain.EventAnomaly,
					Severity: domain.SeverityMedium,
					Summary:  "sustained safety gateway rejection rate",
					Detail:   map[string]any{"rejected": dRej, "accepted": dAcc},
				})
			}
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, ev domain.Event) {
	stamped := p.feed.Append(ev)
	if p.repo != nil {
		if err := p.repo.AppendEvent(ctx, stamped); err != nil {
			p.log.Warn("archive event", "err", err)
		}
	}
}
